package domain

import (
	"strings"
	"time"
)

// UserForm carries the applicant details captured on the check-score step.
type UserForm struct {
	Name   string `json:"name"`
	PAN    string `json:"pan"`
	Mobile string `json:"mobile"`
	DOB    string `json:"dob"`
}

// MissingFields lists the form fields that are blank after trimming.
func (f UserForm) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.PAN) == "" {
		missing = append(missing, "pan")
	}
	if strings.TrimSpace(f.Mobile) == "" {
		missing = append(missing, "mobile")
	}
	if strings.TrimSpace(f.DOB) == "" {
		missing = append(missing, "dob")
	}
	return missing
}

// UserID derives the stable applicant identifier used by the remote backend.
func (f UserForm) UserID() string {
	return NormalizePAN(f.PAN)
}

// NormalizePAN upper-cases a PAN and strips whitespace.
func NormalizePAN(pan string) string {
	return strings.ToUpper(strings.Join(strings.Fields(pan), ""))
}

// Applicant is the bureau view of a person, keyed by PAN.
type Applicant struct {
	PAN         string
	FullName    string
	Mobile      string
	DateOfBirth *time.Time
	Bureau      *BureauRecord
	LatestScore *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BureauRecord holds the credit bureau attributes that drive a score and its report factors.
type BureauRecord struct {
	Score             int       `json:"score"`
	OpenAccounts      int       `json:"openAccounts"`
	CreditUtilization float64   `json:"creditUtilization"`
	Delinquencies     int       `json:"delinquencies"`
	HardEnquiries     int       `json:"hardEnquiries"`
	OldestAccountAge  int       `json:"oldestAccountMonths"`
	ReportedAt        time.Time `json:"reportedAt"`
}
