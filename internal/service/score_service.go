package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/creditscore/internal/domain"
)

// ErrNoScore marks a report request for an applicant that never checked a score.
var ErrNoScore = errors.New("no credit score on record")

// Score sources recorded with each served score.
const (
	SourceBureau  = "bureau"
	SourceDerived = "derived"
)

// ApplicantRepository is the storage contract required by the score service.
type ApplicantRepository interface {
	UpsertApplicant(ctx context.Context, applicant domain.Applicant) error
	FindApplicant(ctx context.Context, pan string) (domain.Applicant, bool, error)
	RecordScoreCheck(ctx context.Context, pan string, score int, source string, at time.Time) error
	LatestScore(ctx context.Context, pan string) (int, bool, error)
	SaveSubscription(ctx context.Context, sub domain.Subscription) error
	ActiveSubscription(ctx context.Context, userID string, now time.Time) (domain.Subscription, bool, error)
}

// Options tunes OTP handling of the score service.
type Options struct {
	RequireOTP     bool
	OTPTTL         time.Duration
	OTPMaxAttempts int
	// DemoOTPCode, when set, replaces generated codes.
	DemoOTPCode string
	Sender      OTPSender
	Logger      *slog.Logger
}

// ScoreService implements the check_score, verify_otp, subscribe and
// get_report actions.
type ScoreService struct {
	repo       ApplicantRepository
	otp        *otpStore
	sender     OTPSender
	requireOTP bool
	logger     *slog.Logger
	nowFn      func() time.Time
}

// NewScoreService constructs a ScoreService.
func NewScoreService(repo ApplicantRepository, opts Options) *ScoreService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sender := opts.Sender
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	return &ScoreService{
		repo:       repo,
		otp:        newOTPStore(opts.OTPTTL, opts.OTPMaxAttempts, opts.DemoOTPCode),
		sender:     sender,
		requireOTP: opts.RequireOTP,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *ScoreService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// CheckScore returns the applicant's score, or an OTP challenge when
// verification is required and the request is not yet verified.
func (s *ScoreService) CheckScore(ctx context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
	form := domain.UserForm{
		Name:   sanitizeString(req.Form.Name),
		PAN:    domain.NormalizePAN(req.Form.PAN),
		Mobile: normalizeMobile(req.Form.Mobile),
		DOB:    strings.TrimSpace(req.Form.DOB),
	}
	if missing := form.MissingFields(); len(missing) > 0 {
		return nil, &domain.ValidationError{Fields: missing}
	}
	if !req.Consent {
		return nil, &domain.ValidationError{Fields: []string{"consent"}, Reason: "consent is required"}
	}

	now := s.nowFn().UTC()
	if s.requireOTP {
		if !req.OTPVerified {
			return s.challenge(ctx, form.Mobile, now)
		}
		if err := s.otp.checkVerified(req.SessionID, form.Mobile, now); err != nil {
			return nil, err
		}
	}

	applicant, found, err := s.repo.FindApplicant(ctx, form.PAN)
	if err != nil {
		return nil, fmt.Errorf("load applicant: %w", err)
	}

	score, source := s.scoreFor(applicant, found, form.PAN)

	profile := domain.Applicant{
		PAN:       form.PAN,
		FullName:  form.Name,
		Mobile:    form.Mobile,
		UpdatedAt: now,
	}
	if dob, err := time.Parse(time.DateOnly, form.DOB); err == nil {
		profile.DateOfBirth = &dob
	}
	if !found {
		profile.CreatedAt = now
	}
	if err := s.repo.UpsertApplicant(ctx, profile); err != nil {
		return nil, fmt.Errorf("save applicant: %w", err)
	}
	if err := s.repo.RecordScoreCheck(ctx, form.PAN, score, source, now); err != nil {
		return nil, fmt.Errorf("record score: %w", err)
	}

	if s.requireOTP {
		s.otp.release(req.SessionID)
	}
	s.logger.Info("credit score served", "user_id", form.PAN, "source", source)
	return domain.ScoreReady{CreditScore: score}, nil
}

func (s *ScoreService) challenge(ctx context.Context, mobile string, now time.Time) (domain.ScoreOutcome, error) {
	sessionID, code, err := s.otp.open(mobile, now)
	if err != nil {
		return nil, err
	}
	if err := s.sender.Send(ctx, mobile, code); err != nil {
		return nil, fmt.Errorf("send otp: %w", err)
	}
	return domain.OTPChallenge{SessionID: sessionID}, nil
}

func (s *ScoreService) scoreFor(applicant domain.Applicant, found bool, pan string) (int, string) {
	if found && applicant.Bureau != nil {
		if domain.ScoreInRange(applicant.Bureau.Score) {
			return applicant.Bureau.Score, SourceBureau
		}
		return domain.EstimateScore(*applicant.Bureau), SourceBureau
	}
	return domain.EstimateScore(derivedProfile(pan)), SourceDerived
}

// VerifyOTP checks a code against an open session.
func (s *ScoreService) VerifyOTP(_ context.Context, sessionID, code string) error {
	if strings.TrimSpace(sessionID) == "" {
		return &domain.ValidationError{Fields: []string{"sessionId"}}
	}
	if strings.TrimSpace(code) == "" {
		return &domain.ValidationError{Fields: []string{"otp"}}
	}
	return s.otp.verify(sessionID, strings.TrimSpace(code), s.nowFn().UTC())
}

// Subscribe activates a plan for the user.
func (s *ScoreService) Subscribe(ctx context.Context, userID string, planID domain.PlanID, paymentID string) (domain.Subscription, error) {
	userID = domain.NormalizePAN(userID)
	var missing []string
	if userID == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(paymentID) == "" {
		missing = append(missing, "paymentId")
	}
	if len(missing) > 0 {
		return domain.Subscription{}, &domain.ValidationError{Fields: missing}
	}

	plan, ok := domain.LookupPlan(planID)
	if !ok {
		return domain.Subscription{}, fmt.Errorf("%w: %q", domain.ErrUnknownPlan, planID)
	}

	now := s.nowFn().UTC()
	sub := domain.Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanID:    plan.ID,
		PaymentID: strings.TrimSpace(paymentID),
		Status:    domain.SubscriptionActive,
		Amount:    plan.Price,
		Currency:  plan.Currency,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
	}
	if err := s.repo.SaveSubscription(ctx, sub); err != nil {
		return domain.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}

	s.logger.Info("subscription created", "user_id", userID, "plan", plan.ID, "subscription_id", sub.ID)
	return sub, nil
}

// GetReport builds the credit report for a subscribed user.
func (s *ScoreService) GetReport(ctx context.Context, userID string) (domain.Report, error) {
	userID = domain.NormalizePAN(userID)
	if userID == "" {
		return domain.Report{}, &domain.ValidationError{Fields: []string{"userId"}}
	}

	now := s.nowFn().UTC()
	sub, ok, err := s.repo.ActiveSubscription(ctx, userID, now)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load subscription: %w", err)
	}
	if !ok {
		return domain.Report{}, domain.ErrNoSubscription
	}

	score, ok, err := s.repo.LatestScore(ctx, userID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load score: %w", err)
	}
	if !ok {
		return domain.Report{}, ErrNoScore
	}

	applicant, found, err := s.repo.FindApplicant(ctx, userID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load applicant: %w", err)
	}
	profile := derivedProfile(userID)
	if found && applicant.Bureau != nil {
		profile = *applicant.Bureau
	}

	return domain.Report{
		ID:          uuid.NewString(),
		UserID:      userID,
		Score:       score,
		Band:        domain.ScoreBand(score),
		PlanID:      sub.PlanID,
		Factors:     domain.ReportFactors(profile),
		GeneratedAt: now,
	}, nil
}
