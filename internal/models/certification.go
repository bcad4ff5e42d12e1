package models

import "time"

// CertificationStatus is derived from stored dates and never persisted.
type CertificationStatus string

const (
	StatusActive       CertificationStatus = "active"
	StatusExpired      CertificationStatus = "expired"
	StatusInProgress   CertificationStatus = "in_progress"
	StatusNeverExpires CertificationStatus = "never_expires"
)

// Certification represents an uploaded professional certification.
// The ID is a human readable identifier (CERT-2026-0001) minted once at
// creation and immutable afterwards. ValidatedBy and ValidatedAt are either
// both null or both set.
type Certification struct {
	ID                string     `db:"id" json:"id"`
	EmployeeID        string     `db:"employee_id" json:"employee_id"`
	EmployeeName      string     `db:"employee_name" json:"employee_name"`
	EmployeeEmail     string     `db:"employee_email" json:"employee_email"`
	VendorOEM         string     `db:"vendor_oem" json:"vendor_oem"`
	CertificationName string     `db:"certification_name" json:"certification_name"`
	CredentialID      *string    `db:"credential_id" json:"credential_id,omitempty"`
	DateObtained      time.Time  `db:"date_obtained" json:"date_obtained"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	FilePath          *string    `db:"file_path" json:"file_path,omitempty"`
	ValidatedBy       *string    `db:"validated_by" json:"validated_by,omitempty"`
	ValidatedAt       *time.Time `db:"validated_at" json:"validated_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"-"`
	Status            CertificationStatus `db:"-" json:"status"`
}

// WithStatus returns a copy with Status derived for the given day.
func (c Certification) WithStatus(today time.Time) Certification {
	c.Status = ComputeStatus(c.ExpiryDate, c.ValidatedAt, today)
	return c
}

// ComputeStatus derives the lifecycle status from stored dates. It is a pure
// function: today must be supplied by the caller, never read from the clock
// here. Rules, in order:
//
//  1. not validated yet             -> in_progress
//  2. validated, no expiry date     -> never_expires
//  3. validated, expiry before today -> expired
//  4. otherwise                     -> active
func ComputeStatus(expiryDate, validatedAt *time.Time, today time.Time) CertificationStatus {
	if validatedAt == nil {
		return StatusInProgress
	}
	if expiryDate == nil {
		return StatusNeverExpires
	}
	if truncateToDay(*expiryDate).Before(truncateToDay(today)) {
		return StatusExpired
	}
	return StatusActive
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
