package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/certtrack-api/internal/models"
)

type auditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditLog, error)
}

// auditRecorder is the interface other services use to emit audit entries.
type auditRecorder interface {
	Record(ctx context.Context, actor models.Actor, action models.AuditAction, entityType, entityID, notes, ip string)
}

// AuditService appends to and reads from the audit trail.
type AuditService struct {
	repo   auditStore
	logger *zap.Logger
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(repo auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends an audit entry for a successful operation. A failed audit
// write never rolls back the business result that already happened; it is
// surfaced on the operator log channel instead.
func (s *AuditService) Record(ctx context.Context, actor models.Actor, action models.AuditAction, entityType, entityID, notes, ip string) {
	entry := &models.AuditLog{
		ActorRole:  actor.Role,
		ActorEmail: actor.Email,
		Action:     action,
		EntityType: entityType,
		EntityID:   optional(entityID),
		Notes:      optional(notes),
		IPAddress:  optional(ip),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", string(action)),
			zap.String("actor_email", actor.Email),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// GetLogs returns paginated audit logs. Managers only.
func (s *AuditService) GetLogs(ctx context.Context, actor models.Actor, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	if err := Authorize(actor.Role, OpReadAuditLogs); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

// GetEntityLogs returns the audit trail for one entity. Managers only.
func (s *AuditService) GetEntityLogs(ctx context.Context, actor models.Actor, entityType, entityID string) ([]models.AuditLog, error) {
	if err := Authorize(actor.Role, OpReadAuditLogs); err != nil {
		return nil, err
	}
	return s.repo.ListByEntity(ctx, entityType, entityID)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
