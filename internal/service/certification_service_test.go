package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certtrack-api/internal/dto"
	"github.com/noah-isme/certtrack-api/internal/models"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
)

type mockCertStore struct {
	mu      sync.Mutex
	seq     map[int]int
	certs   map[string]*models.Certification
	nextErr error
}

func newMockCertStore() *mockCertStore {
	return &mockCertStore{seq: make(map[int]int), certs: make(map[string]*models.Certification)}
}

func (m *mockCertStore) NextID(ctx context.Context, year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextErr != nil {
		return "", m.nextErr
	}
	m.seq[year]++
	return fmt.Sprintf("CERT-%d-%04d", year, m.seq[year]), nil
}

func (m *mockCertStore) Create(ctx context.Context, cert *models.Certification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certs[cert.ID] = cert
	return nil
}

func (m *mockCertStore) FindByID(ctx context.Context, id string) (*models.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cert, ok := m.certs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *cert
	return &copied, nil
}

func (m *mockCertStore) ListByEmployee(ctx context.Context, employeeID string) ([]models.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Certification
	for _, c := range m.certs {
		if c.EmployeeID == employeeID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCertStore) ListAll(ctx context.Context) ([]models.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Certification
	for _, c := range m.certs {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCertStore) Validate(ctx context.Context, id, validatedBy string, at time.Time) (*models.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cert, ok := m.certs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cert.ValidatedBy = &validatedBy
	cert.ValidatedAt = &at
	copied := *cert
	return &copied, nil
}

func (m *mockCertStore) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.certs[id]; !ok {
		return false, nil
	}
	delete(m.certs, id)
	return true, nil
}

type testStorage struct {
	saved   []string
	deleted []string
}

func (s *testStorage) SaveStream(employeeID, originalName string, r io.Reader) (string, error) {
	rel := employeeID + "/" + originalName
	s.saved = append(s.saved, rel)
	return rel, nil
}

func (s *testStorage) Open(relPath string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (s *testStorage) Delete(relPath string) error {
	s.deleted = append(s.deleted, relPath)
	return nil
}

type recordedAudit struct {
	actor      models.Actor
	action     models.AuditAction
	entityType string
	entityID   string
	notes      string
	ip         string
}

type mockRecorder struct {
	mu      sync.Mutex
	entries []recordedAudit
}

func (m *mockRecorder) Record(ctx context.Context, actor models.Actor, action models.AuditAction, entityType, entityID, notes, ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, recordedAudit{actor, action, entityType, entityID, notes, ip})
}

func (m *mockRecorder) last(t *testing.T) recordedAudit {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.entries)
	return m.entries[len(m.entries)-1]
}

type stubSigner struct{}

func (stubSigner) Generate(certID, relPath string) (string, time.Time, error) {
	return "token-" + certID, time.Now().Add(time.Minute), nil
}

func (stubSigner) Parse(token string) (string, string, time.Time, error) {
	return "", "", time.Time{}, fmt.Errorf("not implemented")
}

var (
	employee = models.Actor{ID: "emp-1", Email: "rupesh@example.com", FullName: "Rupesh Thakur", Role: models.RoleEmployee}
	manager  = models.Actor{ID: "mgr-1", Email: "gajanan@example.com", FullName: "Gajanan Patil", Role: models.RoleManager}
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newCertService(store *mockCertStore, storage *testStorage, audit *mockRecorder) *CertificationService {
	return NewCertificationService(store, storage, stubSigner{}, audit, nil, nil, CertificationServiceConfig{}).
		WithClock(fixedClock(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)))
}

func TestCreateForcesOwnerToActor(t *testing.T) {
	store := newMockCertStore()
	audit := &mockRecorder{}
	svc := newCertService(store, &testStorage{}, audit)

	cert, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
		VendorOEM:         "Cisco",
		CertificationName: "CCNA",
		DateObtained:      "2026-01-15",
		ExpiryDate:        "2029-01-15",
	}, nil, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "CERT-2026-0001", cert.ID)
	assert.Equal(t, employee.ID, cert.EmployeeID)
	assert.Equal(t, employee.Email, cert.EmployeeEmail)
	assert.Equal(t, models.StatusInProgress, cert.Status)

	entry := audit.last(t)
	assert.Equal(t, models.AuditActionUpload, entry.action)
	assert.Equal(t, cert.ID, entry.entityID)
	assert.Equal(t, "Uploaded: CCNA", entry.notes)
	assert.Equal(t, "10.0.0.1", entry.ip)
}

func TestCreateRejectsExpiryBeforeObtained(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	_, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
		VendorOEM:         "AWS",
		CertificationName: "Solutions Architect",
		DateObtained:      "2026-05-01",
		ExpiryDate:        "2026-04-30",
	}, nil, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRejectsMalformedDate(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	_, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
		VendorOEM:         "AWS",
		CertificationName: "Solutions Architect",
		DateObtained:      "01/05/2026",
	}, nil, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateStoresAttachment(t *testing.T) {
	store := newMockCertStore()
	storage := &testStorage{}
	svc := newCertService(store, storage, &mockRecorder{})

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, 64)...)
	upload := &AttachmentUpload{
		Filename: "ccna.pdf",
		Size:     int64(len(pdf)),
		MimeType: "application/pdf",
		Content:  bytes.NewReader(pdf),
	}

	cert, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
		VendorOEM:         "Cisco",
		CertificationName: "CCNA",
		DateObtained:      "2026-01-15",
	}, upload, "")
	require.NoError(t, err)
	require.NotNil(t, cert.FilePath)
	assert.Len(t, storage.saved, 1)
}

func TestCreateRejectsOversizedAttachment(t *testing.T) {
	store := newMockCertStore()
	svc := NewCertificationService(store, &testStorage{}, stubSigner{}, &mockRecorder{}, nil, nil, CertificationServiceConfig{MaxFileSize: 10}).
		WithClock(fixedClock(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)))

	payload := []byte("%PDF-1.4 a much longer body")
	upload := &AttachmentUpload{Filename: "big.pdf", Size: int64(len(payload)), Content: bytes.NewReader(payload)}

	_, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
		VendorOEM:         "Cisco",
		CertificationName: "CCNA",
		DateObtained:      "2026-01-15",
	}, upload, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooLarge.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.certs)
}

func TestCreateRejectsDisallowedMime(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	payload := []byte("MZ\x90\x00 executable header")
	upload := &AttachmentUpload{Filename: "tool.exe", Size: int64(len(payload)), MimeType: "application/x-msdownload", Content: bytes.NewReader(payload)}

	_, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
		VendorOEM:         "Cisco",
		CertificationName: "CCNA",
		DateObtained:      "2026-01-15",
	}, upload, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConcurrentCreatesMintUniqueIDs(t *testing.T) {
	store := newMockCertStore()
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	const workers = 20
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cert, err := svc.Create(context.Background(), employee, dto.CreateCertificationRequest{
				VendorOEM:         "Cisco",
				CertificationName: "CCNA",
				DateObtained:      "2026-01-15",
			}, nil, "")
			if err == nil {
				ids <- cert.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

func TestGetForeignRecordDeniedForEmployee(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", EmployeeID: "someone-else"}
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	// The record exists, so the denial is forbidden, not not-found.
	_, err := svc.Get(context.Background(), employee, "CERT-2026-0001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGetForeignRecordAllowedForManager(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", EmployeeID: "someone-else"}
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	cert, err := svc.Get(context.Background(), manager, "CERT-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, cert.Status)
}

func TestGetMissingRecordIsNotFound(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	_, err := svc.Get(context.Background(), manager, "CERT-2026-9999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestValidateDeniedForEmployee(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", EmployeeID: employee.ID}
	audit := &mockRecorder{}
	svc := newCertService(store, &testStorage{}, audit)

	// Even the owner may not validate their own certification.
	_, err := svc.Validate(context.Background(), employee, "CERT-2026-0001", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, audit.entries)
}

func TestValidateSetsFieldsAndAudits(t *testing.T) {
	store := newMockCertStore()
	expiry := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	store.certs["CERT-2026-0001"] = &models.Certification{
		ID:                "CERT-2026-0001",
		EmployeeID:        employee.ID,
		CertificationName: "CCNA",
		ExpiryDate:        &expiry,
	}
	audit := &mockRecorder{}
	svc := newCertService(store, &testStorage{}, audit)

	cert, err := svc.Validate(context.Background(), manager, "CERT-2026-0001", "10.0.0.2")
	require.NoError(t, err)
	require.NotNil(t, cert.ValidatedBy)
	assert.Equal(t, manager.ID, *cert.ValidatedBy)
	require.NotNil(t, cert.ValidatedAt)
	assert.Equal(t, models.StatusActive, cert.Status)

	entry := audit.last(t)
	assert.Equal(t, models.AuditActionValidate, entry.action)
	assert.Equal(t, "Validated: CCNA", entry.notes)
}

func TestRevalidationOverwrites(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", CertificationName: "CCNA"}
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	first, err := svc.Validate(context.Background(), manager, "CERT-2026-0001", "")
	require.NoError(t, err)

	other := models.Actor{ID: "mgr-2", Email: "other@example.com", Role: models.RoleManager}
	second, err := svc.Validate(context.Background(), other, "CERT-2026-0001", "")
	require.NoError(t, err)

	assert.Equal(t, manager.ID, *first.ValidatedBy)
	assert.Equal(t, other.ID, *second.ValidatedBy)
}

func TestValidateMissingRecordIsNotFound(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	_, err := svc.Validate(context.Background(), manager, "CERT-2026-9999", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteRecordsDescriptiveAudit(t *testing.T) {
	store := newMockCertStore()
	filePath := "emp-1/abc.pdf"
	store.certs["CERT-2026-0001"] = &models.Certification{
		ID:                "CERT-2026-0001",
		EmployeeID:        employee.ID,
		EmployeeEmail:     employee.Email,
		VendorOEM:         "Cisco",
		CertificationName: "CCNA",
		FilePath:          &filePath,
	}
	storage := &testStorage{}
	audit := &mockRecorder{}
	svc := newCertService(store, storage, audit)

	err := svc.Delete(context.Background(), manager, "CERT-2026-0001", "10.0.0.3")
	require.NoError(t, err)
	assert.Empty(t, store.certs)
	assert.Equal(t, []string{filePath}, storage.deleted)

	entry := audit.last(t)
	assert.Equal(t, models.AuditActionDelete, entry.action)
	assert.Equal(t, "Deleted: CCNA (Cisco) owned by rupesh@example.com", entry.notes)
}

func TestDeleteDeniedForEmployee(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", EmployeeID: employee.ID}
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	err := svc.Delete(context.Background(), employee, "CERT-2026-0001", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, store.certs, 1)
}

func TestListAllDeniedForEmployee(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	_, err := svc.ListAll(context.Background(), employee)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListOwnReturnsOnlyCallers(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", EmployeeID: employee.ID}
	store.certs["CERT-2026-0002"] = &models.Certification{ID: "CERT-2026-0002", EmployeeID: "someone-else"}
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	certs, err := svc.ListOwn(context.Background(), employee)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "CERT-2026-0001", certs[0].ID)
	assert.Equal(t, models.StatusInProgress, certs[0].Status)
}

func TestExportCSVAudits(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{
		ID:                "CERT-2026-0001",
		EmployeeEmail:     employee.Email,
		VendorOEM:         "Cisco",
		CertificationName: "CCNA",
		DateObtained:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	audit := &mockRecorder{}
	svc := newCertService(store, &testStorage{}, audit)

	filename, contentType, data, err := svc.Export(context.Background(), manager, "csv", "10.0.0.4")
	require.NoError(t, err)
	assert.Equal(t, "certifications-20260831.csv", filename)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(data), "CERT-2026-0001")
	assert.Contains(t, string(data), "in_progress")

	entry := audit.last(t)
	assert.Equal(t, models.AuditActionExport, entry.action)
	assert.Equal(t, "Exported 1 records as CSV", entry.notes)
}

func TestExportDeniedForEmployee(t *testing.T) {
	svc := newCertService(newMockCertStore(), &testStorage{}, &mockRecorder{})

	_, _, _, err := svc.Export(context.Background(), employee, "csv", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttachmentURLWithoutFile(t *testing.T) {
	store := newMockCertStore()
	store.certs["CERT-2026-0001"] = &models.Certification{ID: "CERT-2026-0001", EmployeeID: employee.ID}
	svc := newCertService(store, &testStorage{}, &mockRecorder{})

	_, _, err := svc.AttachmentURL(context.Background(), employee, "CERT-2026-0001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
