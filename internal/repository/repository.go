package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/graph"
)

// Repository encapsulates graph persistence of applicants, bureau records,
// score checks and subscriptions.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// UpsertApplicant ensures an applicant node exists with the latest profile and,
// when present, its bureau record.
func (r *Repository) UpsertApplicant(ctx context.Context, applicant domain.Applicant) error {
	pan := domain.NormalizePAN(applicant.PAN)
	if pan == "" {
		return errors.New("applicant PAN is required")
	}

	params := map[string]any{
		"pan":    pan,
		"props":  applicantProperties(applicant),
		"bureau": bureauParams(applicant.Bureau),
	}

	if _, err := r.client.ExecuteWrite(ctx, upsertApplicantCypher, params); err != nil {
		return fmt.Errorf("upsert applicant %s: %w", pan, err)
	}
	return nil
}

// FindApplicant loads an applicant with its bureau record and latest score.
// The boolean is false when no applicant exists for the PAN.
func (r *Repository) FindApplicant(ctx context.Context, pan string) (domain.Applicant, bool, error) {
	pan = domain.NormalizePAN(pan)
	if pan == "" {
		return domain.Applicant{}, false, errors.New("applicant PAN is required")
	}

	res, err := r.client.ExecuteRead(ctx, findApplicantCypher, map[string]any{"pan": pan})
	if err != nil {
		return domain.Applicant{}, false, fmt.Errorf("find applicant %s: %w", pan, err)
	}
	rec, ok := res.First()
	if !ok {
		return domain.Applicant{}, false, nil
	}

	applicant := domain.Applicant{
		PAN:       rec.String("pan"),
		FullName:  rec.String("fullName"),
		Mobile:    rec.String("mobile"),
		CreatedAt: rec.Time("createdAt"),
		UpdatedAt: rec.Time("updatedAt"),
	}
	if dob := rec.Time("dateOfBirth"); !dob.IsZero() {
		applicant.DateOfBirth = &dob
	}
	if score, ok := rec.Int("latestScore"); ok {
		applicant.LatestScore = &score
	}
	if score, ok := rec.Int("bureauScore"); ok {
		bureau := &domain.BureauRecord{
			Score:             score,
			CreditUtilization: rec.Float("creditUtilization"),
			ReportedAt:        rec.Time("reportedAt"),
		}
		bureau.OpenAccounts, _ = rec.Int("openAccounts")
		bureau.Delinquencies, _ = rec.Int("delinquencies")
		bureau.HardEnquiries, _ = rec.Int("hardEnquiries")
		bureau.OldestAccountAge, _ = rec.Int("oldestAccountMonths")
		applicant.Bureau = bureau
	}
	return applicant, true, nil
}

// RecordScoreCheck stores a served score and marks it as the applicant's latest.
func (r *Repository) RecordScoreCheck(ctx context.Context, pan string, score int, source string, at time.Time) error {
	pan = domain.NormalizePAN(pan)
	if pan == "" {
		return errors.New("applicant PAN is required")
	}
	params := map[string]any{
		"pan":       pan,
		"score":     score,
		"source":    source,
		"checkedAt": formatTime(at),
	}
	if _, err := r.client.ExecuteWrite(ctx, recordScoreCheckCypher, params); err != nil {
		return fmt.Errorf("record score check %s: %w", pan, err)
	}
	return nil
}

// LatestScore returns the most recently served score for the PAN.
func (r *Repository) LatestScore(ctx context.Context, pan string) (int, bool, error) {
	pan = domain.NormalizePAN(pan)
	res, err := r.client.ExecuteRead(ctx, latestScoreCypher, map[string]any{"pan": pan})
	if err != nil {
		return 0, false, fmt.Errorf("latest score %s: %w", pan, err)
	}
	rec, ok := res.First()
	if !ok {
		return 0, false, nil
	}
	score, ok := rec.Int("score")
	return score, ok, nil
}

// SaveSubscription persists a subscription and links it to its applicant.
func (r *Repository) SaveSubscription(ctx context.Context, sub domain.Subscription) error {
	if sub.ID == "" {
		return errors.New("subscription id is required")
	}
	if sub.UserID == "" {
		return errors.New("subscription user id is required")
	}
	params := map[string]any{
		"subscriptionId": sub.ID,
		"pan":            domain.NormalizePAN(sub.UserID),
		"props":          subscriptionProperties(sub),
	}
	if _, err := r.client.ExecuteWrite(ctx, saveSubscriptionCypher, params); err != nil {
		return fmt.Errorf("save subscription %s: %w", sub.ID, err)
	}
	return nil
}

// ActiveSubscription returns the newest subscription of the user that is
// active at now.
func (r *Repository) ActiveSubscription(ctx context.Context, userID string, now time.Time) (domain.Subscription, bool, error) {
	pan := domain.NormalizePAN(userID)
	res, err := r.client.ExecuteRead(ctx, activeSubscriptionCypher, map[string]any{
		"pan": pan,
		"now": formatTime(now),
	})
	if err != nil {
		return domain.Subscription{}, false, fmt.Errorf("active subscription %s: %w", pan, err)
	}

	for _, rec := range res.Records {
		sub := domain.Subscription{
			ID:        rec.String("subscriptionId"),
			UserID:    pan,
			PlanID:    domain.PlanID(rec.String("planId")),
			PaymentID: rec.String("paymentId"),
			Status:    rec.String("status"),
			Currency:  rec.String("currency"),
			StartDate: rec.Time("startDate"),
			EndDate:   rec.Time("endDate"),
		}
		sub.Amount, _ = rec.Int("amount")
		if sub.ActiveAt(now) {
			return sub, true, nil
		}
	}
	return domain.Subscription{}, false, nil
}

// CountApplicants returns the number of applicant nodes.
func (r *Repository) CountApplicants(ctx context.Context) (int64, error) {
	res, err := r.client.ExecuteRead(ctx, countApplicantsCypher, nil)
	if err != nil {
		return 0, fmt.Errorf("count applicants: %w", err)
	}
	rec, ok := res.First()
	if !ok {
		return 0, nil
	}
	total, _ := rec.Int("total")
	return int64(total), nil
}

func applicantProperties(a domain.Applicant) map[string]any {
	props := map[string]any{
		"fullName": strings.TrimSpace(a.FullName),
		"mobile":   strings.TrimSpace(a.Mobile),
	}
	if a.DateOfBirth != nil {
		props["dateOfBirth"] = formatTime(*a.DateOfBirth)
	}
	if !a.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(a.CreatedAt)
	}
	if !a.UpdatedAt.IsZero() {
		props["updatedAt"] = formatTime(a.UpdatedAt)
	}
	return props
}

// bureauParams returns an empty list when there is no record so the
// FOREACH in upsertApplicantCypher is a no-op.
func bureauParams(b *domain.BureauRecord) []map[string]any {
	if b == nil {
		return []map[string]any{}
	}
	return []map[string]any{{
		"score":               b.Score,
		"openAccounts":        b.OpenAccounts,
		"creditUtilization":   b.CreditUtilization,
		"delinquencies":       b.Delinquencies,
		"hardEnquiries":       b.HardEnquiries,
		"oldestAccountMonths": b.OldestAccountAge,
		"reportedAt":          formatTime(b.ReportedAt),
	}}
}

func subscriptionProperties(s domain.Subscription) map[string]any {
	return map[string]any{
		"planId":    string(s.PlanID),
		"paymentId": s.PaymentID,
		"status":    s.Status,
		"amount":    s.Amount,
		"currency":  s.Currency,
		"startDate": formatTime(s.StartDate),
		"endDate":   formatTime(s.EndDate),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
