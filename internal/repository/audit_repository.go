package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/certtrack-api/internal/models"
)

const auditColumns = `id, timestamp, actor_role, actor_email, action, entity_type, entity_id, notes, ip_address`

// AuditRepository provides append and read access to the audit trail. The
// table is append-only: no update or delete statements exist here.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit log entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, timestamp, actor_role, actor_email, action, entity_type, entity_id, notes, ip_address) VALUES (:id, :timestamp, :actor_role, :actor_email, :action, :entity_type, :entity_id, :notes, :ip_address)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns audit logs newest first with total count for pagination.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s FROM audit_logs ORDER BY timestamp DESC LIMIT $1 OFFSET $2", auditColumns)
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs"); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	return logs, total, nil
}

// ListByEntity returns all audit logs for a specific entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditLog, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY timestamp DESC", auditColumns)
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit logs by entity: %w", err)
	}
	return logs, nil
}
