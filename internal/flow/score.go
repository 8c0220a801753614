package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/creditscore/internal/domain"
)

// Submit sends the applicant form for a score check. The flow advances to
// plan selection on an immediate score, or opens the OTP sub-state and stays
// on check score when the backend asks for verification.
func (m *Machine) Submit(ctx context.Context, form domain.UserForm, consent bool) error {
	var outcome domain.ScoreOutcome

	return m.exchange(ctx,
		func() error {
			if m.state.CurrentStep != domain.StepCheckScore {
				return m.stepErrorLocked(domain.StepCheckScore)
			}
			if m.state.OTP != nil {
				return ErrOTPPending
			}
			if !consent {
				return ErrConsentRequired
			}
			if missing := form.MissingFields(); len(missing) > 0 {
				return &domain.ValidationError{Fields: missing}
			}
			m.state.UserForm = form
			m.state.Consent = consent
			return nil
		},
		func(ctx context.Context) error {
			var err error
			outcome, err = m.remote.CheckScore(ctx, domain.CheckScoreRequest{Form: form, Consent: consent})
			return err
		},
		func(ctx context.Context, callErr error) error {
			if callErr != nil {
				m.failLocked("Failed to fetch credit score. Please try again.", callErr)
				return fmt.Errorf("check score: %w", callErr)
			}
			switch o := outcome.(type) {
			case domain.OTPChallenge:
				m.state.OTP = &domain.OTPSession{SessionID: o.SessionID, ModalOpen: true}
				m.notifyLocked(LevelInfo, "OTP sent to your registered mobile number")
				return nil
			case domain.ScoreReady:
				return m.applyScoreLocked(ctx, o.CreditScore)
			default:
				m.failLocked("Failed to fetch credit score. Please try again.", ErrUnexpectedOutcome)
				return fmt.Errorf("check score: %w: %T", ErrUnexpectedOutcome, outcome)
			}
		},
	)
}

// VerifyOTP submits the code for the open OTP session. On success it
// re-requests the score as verified and advances like an immediate score.
// An invalid code keeps the modal open for another attempt.
func (m *Machine) VerifyOTP(ctx context.Context, code string) error {
	var (
		sessionID string
		form      domain.UserForm
		consent   bool
		outcome   domain.ScoreOutcome
	)

	return m.exchange(ctx,
		func() error {
			if m.state.CurrentStep != domain.StepCheckScore {
				return m.stepErrorLocked(domain.StepCheckScore)
			}
			if m.state.OTP == nil || m.state.OTP.SessionID == "" {
				return ErrNoOTPSession
			}
			if code == "" {
				return &domain.ValidationError{Fields: []string{"otp"}}
			}
			sessionID = m.state.OTP.SessionID
			form = m.state.UserForm
			consent = m.state.Consent
			return nil
		},
		func(ctx context.Context) error {
			if err := m.remote.VerifyOTP(ctx, sessionID, code); err != nil {
				return err
			}
			var err error
			outcome, err = m.remote.CheckScore(ctx, domain.CheckScoreRequest{
				Form:        form,
				Consent:     consent,
				OTPVerified: true,
				SessionID:   sessionID,
			})
			return err
		},
		func(ctx context.Context, callErr error) error {
			if errors.Is(callErr, domain.ErrInvalidOTP) {
				m.notifyLocked(LevelError, "Invalid OTP")
				return fmt.Errorf("verify otp: %w", callErr)
			}
			if callErr != nil {
				m.failLocked("OTP verification failed. Please try again.", callErr)
				return fmt.Errorf("verify otp: %w", callErr)
			}
			ready, ok := outcome.(domain.ScoreReady)
			if !ok {
				m.failLocked("OTP verification failed. Please try again.", ErrUnexpectedOutcome)
				return fmt.Errorf("verify otp: %w: %T", ErrUnexpectedOutcome, outcome)
			}
			return m.applyScoreLocked(ctx, ready.CreditScore)
		},
	)
}

// CancelOTP closes the verification sub-state and discards its session.
func (m *Machine) CancelOTP() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state.OTP == nil {
		m.rejectLocked(ErrNoOTPSession)
		notes := m.drainLocked()
		m.mu.Unlock()
		m.emit(notes)
		return ErrNoOTPSession
	}
	m.invalidateLocked()
	m.state.OTP = nil
	m.mu.Unlock()
	return nil
}

func (m *Machine) applyScoreLocked(ctx context.Context, score int) error {
	if !domain.ScoreInRange(score) {
		m.failLocked("Failed to fetch credit score. Please try again.", ErrScoreOutOfRange)
		return fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}

	m.state.Score = &score
	m.state.OTP = nil
	m.state.Report = nil
	m.state.CurrentStep = domain.StepPlanSelection

	form := m.state.UserForm
	m.persistLocked(ctx, domain.PersistedSnapshot{Score: &score, UserForm: &form})
	m.notifyLocked(LevelSuccess, "Credit score fetched successfully")
	m.logger.Info("credit score fetched", "score", score)
	return nil
}
