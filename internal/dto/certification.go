package dto

// CreateCertificationRequest carries the multipart form fields for a new
// certification upload. Dates arrive as YYYY-MM-DD strings and are parsed by
// the service so malformed input maps to a validation error, not a bind error.
type CreateCertificationRequest struct {
	VendorOEM         string `form:"vendor_oem" validate:"required,max=100"`
	CertificationName string `form:"certification_name" validate:"required,max=200"`
	CredentialID      string `form:"credential_id"`
	DateObtained      string `form:"date_obtained" validate:"required"`
	ExpiryDate        string `form:"expiry_date"`
}

// ExportQuery selects the register export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// AuditLogQuery paginates the audit trail listing.
type AuditLogQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
