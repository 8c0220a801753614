package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Remote action names on the wire.
const (
	ActionCheckScore = "check_score"
	ActionVerifyOTP  = "verify_otp"
	ActionSubscribe  = "subscribe"
	ActionGetReport  = "get_report"
)

// Error codes shared by the backend and the client.
const (
	CodeValidation     = "validation_error"
	CodeInvalidOTP     = "invalid_otp"
	CodeOTPExpired     = "otp_expired"
	CodeTooManyTries   = "otp_attempts_exceeded"
	CodeUnknownPlan    = "unknown_plan"
	CodeNoSubscription = "no_subscription"
	CodeNoScore        = "no_score"
	CodeUnknownAction  = "unknown_action"
	CodeInternal       = "internal_error"
)

var (
	// ErrInvalidOTP marks a rejected one-time password.
	ErrInvalidOTP = errors.New("invalid OTP")
	// ErrUnknownPlan marks a plan id outside the catalog.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrNoSubscription marks an operation that needs an active subscription.
	ErrNoSubscription = errors.New("no active subscription")
)

// ValidationError lists missing or malformed inputs.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" && len(e.Fields) == 0 {
		return e.Reason
	}
	msg := "missing required fields: " + strings.Join(e.Fields, ", ")
	if e.Reason != "" {
		msg = e.Reason + ": " + strings.Join(e.Fields, ", ")
	}
	return msg
}

// RemoteError is a failed exchange with the score backend.
type RemoteError struct {
	Action  string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Action, e.Status, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Action, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
