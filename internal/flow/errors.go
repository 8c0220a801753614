package flow

import "errors"

var (
	// ErrBusy rejects a transition while another remote call is in flight.
	ErrBusy = errors.New("flow: another operation is in progress")
	// ErrStale reports a completion that arrived after the flow moved on; its
	// result was discarded.
	ErrStale = errors.New("flow: completion discarded after navigation")
	// ErrClosed rejects calls on a closed flow instance.
	ErrClosed = errors.New("flow: closed")
	// ErrWrongStep rejects a transition not allowed from the current step.
	ErrWrongStep = errors.New("flow: transition not allowed from current step")
	// ErrConsentRequired rejects a score check without consent.
	ErrConsentRequired = errors.New("flow: consent is required")
	// ErrNoOTPSession rejects OTP actions when no verification is open.
	ErrNoOTPSession = errors.New("flow: no OTP verification in progress")
	// ErrOTPPending rejects a resubmission while an OTP verification is open.
	ErrOTPPending = errors.New("flow: OTP verification in progress")
	// ErrPlanNotSelected rejects subscribe before a plan is chosen.
	ErrPlanNotSelected = errors.New("flow: no plan selected")
	// ErrScoreOutOfRange rejects a backend score outside 300-850.
	ErrScoreOutOfRange = errors.New("flow: credit score out of range")
	// ErrUnexpectedOutcome marks a check-score result of an unknown kind.
	ErrUnexpectedOutcome = errors.New("flow: unexpected check score outcome")
)
