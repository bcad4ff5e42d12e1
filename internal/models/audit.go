package models

import "time"

// AuditAction enumerates the actions that may appear in the audit trail.
type AuditAction string

const (
	AuditActionUpload   AuditAction = "UPLOAD"
	AuditActionValidate AuditAction = "VALIDATE"
	AuditActionDelete   AuditAction = "DELETE"
	AuditActionView     AuditAction = "VIEW"
	AuditActionExport   AuditAction = "EXPORT"
	AuditActionLogin    AuditAction = "LOGIN"
	AuditActionLogout   AuditAction = "LOGOUT"
	AuditActionAdvisory AuditAction = "ADVISORY"
)

// AuditLog represents one append-only audit trail record. Entries are never
// mutated or deleted once written.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	Timestamp  time.Time   `db:"timestamp" json:"timestamp"`
	ActorRole  UserRole    `db:"actor_role" json:"actor_role"`
	ActorEmail string      `db:"actor_email" json:"actor_email"`
	Action     AuditAction `db:"action" json:"action"`
	EntityType string      `db:"entity_type" json:"entity_type"`
	EntityID   *string     `db:"entity_id" json:"entity_id,omitempty"`
	Notes      *string     `db:"notes" json:"notes,omitempty"`
	IPAddress  *string     `db:"ip_address" json:"ip_address,omitempty"`
}

// AuditFilter captures pagination criteria for listing audit logs.
type AuditFilter struct {
	Limit  int
	Offset int
}
