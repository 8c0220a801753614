package service

import (
	"time"

	"github.com/vanshika/creditscore/internal/domain"
)

// BureauInput is the bureau section of an ingested applicant.
type BureauInput struct {
	Score             int        `json:"score"`
	OpenAccounts      int        `json:"openAccounts"`
	CreditUtilization float64    `json:"creditUtilization"`
	Delinquencies     int        `json:"delinquencies"`
	HardEnquiries     int        `json:"hardEnquiries"`
	OldestAccountAge  int        `json:"oldestAccountMonths"`
	ReportedAt        *time.Time `json:"reportedAt,omitempty"`
}

// ApplicantInput is one record of a bureau dataset.
type ApplicantInput struct {
	PAN         string       `json:"pan"`
	FullName    string       `json:"fullName"`
	Mobile      string       `json:"mobile"`
	DateOfBirth *time.Time   `json:"dateOfBirth,omitempty"`
	Bureau      *BureauInput `json:"bureau,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}

// ToDomain converts the input into a normalized domain.Applicant, filling
// timestamps with now when absent.
func (in ApplicantInput) ToDomain(now time.Time) domain.Applicant {
	applicant := domain.Applicant{
		PAN:         domain.NormalizePAN(in.PAN),
		FullName:    sanitizeString(in.FullName),
		Mobile:      normalizeMobile(in.Mobile),
		DateOfBirth: in.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.CreatedAt != nil {
		applicant.CreatedAt = in.CreatedAt.UTC()
	}
	if in.UpdatedAt != nil {
		applicant.UpdatedAt = in.UpdatedAt.UTC()
	}
	if in.Bureau != nil {
		b := domain.BureauRecord{
			Score:             in.Bureau.Score,
			OpenAccounts:      in.Bureau.OpenAccounts,
			CreditUtilization: in.Bureau.CreditUtilization,
			Delinquencies:     in.Bureau.Delinquencies,
			HardEnquiries:     in.Bureau.HardEnquiries,
			OldestAccountAge:  in.Bureau.OldestAccountAge,
			ReportedAt:        now,
		}
		if in.Bureau.ReportedAt != nil {
			b.ReportedAt = in.Bureau.ReportedAt.UTC()
		}
		if !domain.ScoreInRange(b.Score) {
			b.Score = domain.EstimateScore(b)
		}
		applicant.Bureau = &b
	}
	return applicant
}
