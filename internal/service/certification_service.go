package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/certtrack-api/internal/dto"
	"github.com/noah-isme/certtrack-api/internal/models"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
	"github.com/noah-isme/certtrack-api/pkg/export"
)

const dateLayout = "2006-01-02"

type certificationStore interface {
	NextID(ctx context.Context, year int) (string, error)
	Create(ctx context.Context, cert *models.Certification) error
	FindByID(ctx context.Context, id string) (*models.Certification, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]models.Certification, error)
	ListAll(ctx context.Context) ([]models.Certification, error)
	Validate(ctx context.Context, id, validatedBy string, at time.Time) (*models.Certification, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type attachmentStorage interface {
	SaveStream(employeeID, originalName string, r io.Reader) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
}

type attachmentSigner interface {
	Generate(certID, relPath string) (string, time.Time, error)
	Parse(token string) (certID, relPath string, expiresAt time.Time, err error)
}

// AttachmentUpload carries upload metadata and stream reader.
type AttachmentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// AttachmentDownload bundles file reader metadata for streaming.
type AttachmentDownload struct {
	File     *os.File
	Filename string
}

// CertificationServiceConfig holds attachment validation parameters.
type CertificationServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// CertificationService owns the certification lifecycle: creation with a
// minted identifier, reads with derived status, manager validation and
// deletion, and the register export. All authorization goes through the
// policy table; every successful mutation is audited.
type CertificationService struct {
	repo      certificationStore
	storage   attachmentStorage
	signer    attachmentSigner
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       CertificationServiceConfig
	mimeSet   map[string]struct{}
	now       func() time.Time
}

// NewCertificationService constructs the service with defaults.
func NewCertificationService(repo certificationStore, storage attachmentStorage, signer attachmentSigner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, cfg CertificationServiceConfig) *CertificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/png", "image/jpeg"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &CertificationService{
		repo:      repo,
		storage:   storage,
		signer:    signer,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Used by tests for deterministic
// status computation and year selection.
func (s *CertificationService) WithClock(now func() time.Time) *CertificationService {
	s.now = now
	return s
}

// Create mints an identifier and persists a new certification. The record's
// owner is always the caller; no actor may create on behalf of another.
func (s *CertificationService) Create(ctx context.Context, actor models.Actor, req dto.CreateCertificationRequest, upload *AttachmentUpload, ip string) (*models.Certification, error) {
	if err := Authorize(actor.Role, OpCreateCertification); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certification payload")
	}

	dateObtained, err := time.Parse(dateLayout, req.DateObtained)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, use YYYY-MM-DD")
	}
	var expiryDate *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse(dateLayout, req.ExpiryDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, use YYYY-MM-DD")
		}
		if parsed.Before(dateObtained) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expiry date must be after date obtained")
		}
		expiryDate = &parsed
	}

	var filePath *string
	if upload != nil {
		relPath, err := s.storeAttachment(actor.ID, upload)
		if err != nil {
			return nil, err
		}
		filePath = &relPath
	}

	now := s.now().UTC()
	certID, err := s.repo.NextID(ctx, now.Year())
	if err != nil {
		// No certification record exists without an id: the create fails whole.
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint certification id")
	}

	cert := &models.Certification{
		ID:                certID,
		EmployeeID:        actor.ID,
		EmployeeName:      actor.FullName,
		EmployeeEmail:     actor.Email,
		VendorOEM:         req.VendorOEM,
		CertificationName: req.CertificationName,
		DateObtained:      dateObtained,
		ExpiryDate:        expiryDate,
		FilePath:          filePath,
	}
	if req.CredentialID != "" {
		cert.CredentialID = &req.CredentialID
	}

	if err := s.repo.Create(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certification")
	}

	s.audit.Record(ctx, actor, models.AuditActionUpload, "certification", cert.ID, "Uploaded: "+cert.CertificationName, ip)

	result := cert.WithStatus(now)
	return &result, nil
}

// Get returns one certification with derived status. Employees may only read
// their own records; a foreign id yields a forbidden denial, not not-found.
func (s *CertificationService) Get(ctx context.Context, actor models.Actor, id string) (*models.Certification, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certification")
	}

	if cert.EmployeeID != actor.ID {
		if err := Authorize(actor.Role, OpViewAnyCertification); err != nil {
			return nil, err
		}
	}

	result := cert.WithStatus(s.now().UTC())
	return &result, nil
}

// ListOwn returns the caller's certifications with derived statuses.
func (s *CertificationService) ListOwn(ctx context.Context, actor models.Actor) ([]models.Certification, error) {
	if err := Authorize(actor.Role, OpViewOwnCertifications); err != nil {
		return nil, err
	}
	certs, err := s.repo.ListByEmployee(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certifications")
	}
	return s.withStatuses(certs), nil
}

// ListAll returns every certification. Managers only.
func (s *CertificationService) ListAll(ctx context.Context, actor models.Actor) ([]models.Certification, error) {
	if err := Authorize(actor.Role, OpListAllCertifications); err != nil {
		return nil, err
	}
	certs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certifications")
	}
	return s.withStatuses(certs), nil
}

// Validate marks a certification as validated by the calling manager.
// Employees are denied even for their own records. The existence check and
// the write happen in one atomic statement; re-validation overwrites.
func (s *CertificationService) Validate(ctx context.Context, actor models.Actor, id, ip string) (*models.Certification, error) {
	if err := Authorize(actor.Role, OpValidateCertification); err != nil {
		return nil, err
	}

	cert, err := s.repo.Validate(ctx, id, actor.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate certification")
	}

	s.audit.Record(ctx, actor, models.AuditActionValidate, "certification", cert.ID, "Validated: "+cert.CertificationName, ip)

	result := cert.WithStatus(s.now().UTC())
	return &result, nil
}

// Delete removes a certification. The record is read first so the audit entry
// can describe what was deleted.
func (s *CertificationService) Delete(ctx context.Context, actor models.Actor, id, ip string) error {
	if err := Authorize(actor.Role, OpDeleteCertification); err != nil {
		return err
	}

	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "certification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certification")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete certification")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "certification not found")
	}

	if cert.FilePath != nil {
		if err := s.storage.Delete(*cert.FilePath); err != nil {
			s.logger.Warn("failed to delete attachment", zap.String("cert_id", id), zap.Error(err))
		}
	}

	notes := fmt.Sprintf("Deleted: %s (%s) owned by %s", cert.CertificationName, cert.VendorOEM, cert.EmployeeEmail)
	s.audit.Record(ctx, actor, models.AuditActionDelete, "certification", id, notes, ip)
	return nil
}

// Export renders the full register as CSV or PDF. Managers only.
func (s *CertificationService) Export(ctx context.Context, actor models.Actor, format, ip string) (filename, contentType string, data []byte, err error) {
	if err := Authorize(actor.Role, OpExportCertifications); err != nil {
		return "", "", nil, err
	}

	certs, err := s.repo.ListAll(ctx)
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certifications")
	}

	today := s.now().UTC()
	dataset := export.Dataset{
		Headers: []string{"ID", "Employee", "Vendor", "Certification", "Obtained", "Expires", "Status"},
	}
	for _, cert := range certs {
		expires := ""
		if cert.ExpiryDate != nil {
			expires = cert.ExpiryDate.Format(dateLayout)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":            cert.ID,
			"Employee":      cert.EmployeeEmail,
			"Vendor":        cert.VendorOEM,
			"Certification": cert.CertificationName,
			"Obtained":      cert.DateObtained.Format(dateLayout),
			"Expires":       expires,
			"Status":        string(models.ComputeStatus(cert.ExpiryDate, cert.ValidatedAt, today)),
		})
	}

	if format != "pdf" {
		format = "csv"
	}
	stamp := today.Format("20060102")
	switch format {
	case "pdf":
		data, err = export.NewPDFExporter().Render(dataset, "Certification Register")
		filename = "certifications-" + stamp + ".pdf"
		contentType = "application/pdf"
	default:
		data, err = export.NewCSVExporter().Render(dataset)
		filename = "certifications-" + stamp + ".csv"
		contentType = "text/csv"
	}
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.audit.Record(ctx, actor, models.AuditActionExport, "certification", "", fmt.Sprintf("Exported %d records as %s", len(certs), strings.ToUpper(format)), ip)
	return filename, contentType, data, nil
}

// AttachmentURL returns a signed download token for a certification's
// attachment. Access follows the same owner-or-manager rule as Get.
func (s *CertificationService) AttachmentURL(ctx context.Context, actor models.Actor, certID string) (string, time.Time, error) {
	cert, err := s.Get(ctx, actor, certID)
	if err != nil {
		return "", time.Time{}, err
	}
	if cert.FilePath == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "certification has no attachment")
	}
	token, expiresAt, err := s.signer.Generate(cert.ID, *cert.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, expiresAt, nil
}

// OpenAttachment resolves a signed token and opens the underlying file. The
// token itself carries the authorization.
func (s *CertificationService) OpenAttachment(ctx context.Context, token string) (*AttachmentDownload, error) {
	certID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	f, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	return &AttachmentDownload{File: f, Filename: certID + strings.ToLower(filePathExt(relPath))}, nil
}

func (s *CertificationService) storeAttachment(employeeID string, upload *AttachmentUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "attachment is empty")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("attachment exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return "", err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return "", appErrors.Clone(appErrors.ErrValidation, "attachment type not allowed")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	relPath, err := s.storage.SaveStream(employeeID, upload.Filename, upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}
	return relPath, nil
}

func (s *CertificationService) detectMime(upload *AttachmentUpload) (string, error) {
	buf := make([]byte, 512)
	n, err := upload.Content.Read(buf)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload stream")
	}
	sniffed := http.DetectContentType(buf[:n])
	if idx := strings.Index(sniffed, ";"); idx > 0 {
		sniffed = sniffed[:idx]
	}
	if sniffed == "application/octet-stream" && upload.MimeType != "" {
		return upload.MimeType, nil
	}
	return sniffed, nil
}

func (s *CertificationService) withStatuses(certs []models.Certification) []models.Certification {
	today := s.now().UTC()
	out := make([]models.Certification, len(certs))
	for i, c := range certs {
		out[i] = c.WithStatus(today)
	}
	return out
}

func filePathExt(relPath string) string {
	if idx := strings.LastIndex(relPath, "."); idx >= 0 {
		return relPath[idx:]
	}
	return ""
}
