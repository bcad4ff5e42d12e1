package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/certtrack-api/internal/models"
)

const certColumns = `id, employee_id, employee_name, employee_email, vendor_oem, certification_name, credential_id, date_obtained, expiry_date, file_path, validated_by, validated_at, created_at, updated_at`

// CertificationRepository provides database access for certification records
// and the per-year sequence counter backing their identifiers.
type CertificationRepository struct {
	db *sqlx.DB
}

// NewCertificationRepository creates a new instance of CertificationRepository.
func NewCertificationRepository(db *sqlx.DB) *CertificationRepository {
	return &CertificationRepository{db: db}
}

// NextID mints the next certification identifier for the given year, format
// CERT-YYYY-NNNN. The increment-and-read is one atomic upsert so concurrent
// callers in the same year never receive the same sequence number, even
// across processes sharing the store.
func (r *CertificationRepository) NextID(ctx context.Context, year int) (string, error) {
	const query = `INSERT INTO cert_sequence (year, last_number) VALUES ($1, 1) ON CONFLICT (year) DO UPDATE SET last_number = cert_sequence.last_number + 1 RETURNING last_number`
	var seq int
	if err := r.db.GetContext(ctx, &seq, query, year); err != nil {
		return "", fmt.Errorf("next certification id: %w", err)
	}
	return fmt.Sprintf("CERT-%d-%04d", year, seq), nil
}

// Create inserts a new certification record.
func (r *CertificationRepository) Create(ctx context.Context, cert *models.Certification) error {
	now := time.Now().UTC()
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = now
	}
	cert.UpdatedAt = now

	const query = `INSERT INTO certifications (id, employee_id, employee_name, employee_email, vendor_oem, certification_name, credential_id, date_obtained, expiry_date, file_path, validated_by, validated_at, created_at, updated_at) VALUES (:id, :employee_id, :employee_name, :employee_email, :vendor_oem, :certification_name, :credential_id, :date_obtained, :expiry_date, :file_path, :validated_by, :validated_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certification: %w", err)
	}
	return nil
}

// FindByID returns a certification by identifier.
func (r *CertificationRepository) FindByID(ctx context.Context, id string) (*models.Certification, error) {
	query := fmt.Sprintf("SELECT %s FROM certifications WHERE id = $1 LIMIT 1", certColumns)
	var cert models.Certification
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certification by id: %w", err)
	}
	return &cert, nil
}

// ListByEmployee returns all certifications owned by an employee, newest first.
func (r *CertificationRepository) ListByEmployee(ctx context.Context, employeeID string) ([]models.Certification, error) {
	query := fmt.Sprintf("SELECT %s FROM certifications WHERE employee_id = $1 ORDER BY created_at DESC", certColumns)
	var certs []models.Certification
	if err := r.db.SelectContext(ctx, &certs, query, employeeID); err != nil {
		return nil, fmt.Errorf("list certifications by employee: %w", err)
	}
	return certs, nil
}

// ListAll returns every certification, newest first.
func (r *CertificationRepository) ListAll(ctx context.Context) ([]models.Certification, error) {
	query := fmt.Sprintf("SELECT %s FROM certifications ORDER BY created_at DESC", certColumns)
	var certs []models.Certification
	if err := r.db.SelectContext(ctx, &certs, query); err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	return certs, nil
}

// Validate sets the validation fields atomically with the existence check:
// the single UPDATE ... RETURNING both confirms the record exists and writes
// validated_by/validated_at together. Re-validation overwrites (last writer
// wins). Returns sql.ErrNoRows when the record is missing.
func (r *CertificationRepository) Validate(ctx context.Context, id, validatedBy string, at time.Time) (*models.Certification, error) {
	query := fmt.Sprintf("UPDATE certifications SET validated_by = $2, validated_at = $3, updated_at = $3 WHERE id = $1 RETURNING %s", certColumns)
	var cert models.Certification
	if err := r.db.GetContext(ctx, &cert, query, id, validatedBy, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("validate certification: %w", err)
	}
	return &cert, nil
}

// Delete removes a certification record. Returns false when no row matched.
func (r *CertificationRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM certifications WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete certification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete certification rows affected: %w", err)
	}
	return affected > 0, nil
}
