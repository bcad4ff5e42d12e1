package service

import (
	"github.com/noah-isme/certtrack-api/internal/models"
	appErrors "github.com/noah-isme/certtrack-api/pkg/errors"
)

// Operation identifies a policy-gated operation. Every authorization decision
// in the system goes through the single table below so the full matrix is
// testable in one place; handlers and services never do ad hoc role checks.
type Operation string

const (
	OpCreateCertification   Operation = "certification:create"
	OpViewOwnCertifications Operation = "certification:view_own"
	OpViewAnyCertification  Operation = "certification:view_any"
	OpListAllCertifications Operation = "certification:list_all"
	OpValidateCertification Operation = "certification:validate"
	OpDeleteCertification   Operation = "certification:delete"
	OpExportCertifications  Operation = "certification:export"
	OpRequestAdvisory       Operation = "advisory:request"
	OpReadAuditLogs         Operation = "audit:read"
)

var policy = map[Operation]map[models.UserRole]bool{
	OpCreateCertification:   {models.RoleEmployee: true, models.RoleManager: true},
	OpViewOwnCertifications: {models.RoleEmployee: true, models.RoleManager: true},
	OpViewAnyCertification:  {models.RoleManager: true},
	OpListAllCertifications: {models.RoleManager: true},
	OpValidateCertification: {models.RoleManager: true},
	OpDeleteCertification:   {models.RoleManager: true},
	OpExportCertifications:  {models.RoleManager: true},
	OpRequestAdvisory:       {models.RoleEmployee: true, models.RoleManager: true},
	OpReadAuditLogs:         {models.RoleManager: true},
}

// Authorize returns nil when the role may perform the operation, otherwise a
// FORBIDDEN error. Authorization failures are denials for the caller to
// render, never panics or crashes.
func Authorize(role models.UserRole, op Operation) error {
	if allowed, ok := policy[op]; ok && allowed[role] {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role "+string(role)+" may not perform "+string(op))
}
