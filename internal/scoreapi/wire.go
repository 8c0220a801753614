// Package scoreapi defines the JSON exchanged on the action endpoint. Every
// request names its action; every response carries a success flag plus either
// the action payload or an error message and code.
package scoreapi

import "github.com/vanshika/creditscore/internal/domain"

// Path is where the backend mounts the action endpoint.
const Path = "/api/credit-score"

// RequestIDHeader carries a per-call identifier for correlating client and
// backend logs.
const RequestIDHeader = "X-Request-ID"

// Request is the union of all action inputs, discriminated by Action.
type Request struct {
	Action string `json:"action"`

	// check_score
	Name        string `json:"name,omitempty"`
	PAN         string `json:"pan,omitempty"`
	Mobile      string `json:"mobile,omitempty"`
	DOB         string `json:"dob,omitempty"`
	Consent     bool   `json:"consent,omitempty"`
	OTPVerified bool   `json:"otpVerified,omitempty"`

	// check_score (verified retry) and verify_otp
	SessionID string `json:"sessionId,omitempty"`
	OTP       string `json:"otp,omitempty"`

	// subscribe and get_report
	UserID    string `json:"userId,omitempty"`
	PlanID    string `json:"planId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
}

// Response is the union of all action outputs.
type Response struct {
	Success bool `json:"success"`

	CreditScore *int   `json:"creditScore,omitempty"`
	OTPRequired bool   `json:"otpRequired,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`

	Subscription *domain.Subscription `json:"subscription,omitempty"`
	Report       *domain.Report       `json:"report,omitempty"`

	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// CheckScoreRequest builds the wire form of a checkScore call.
func CheckScoreRequest(in domain.CheckScoreRequest) Request {
	return Request{
		Action:      domain.ActionCheckScore,
		Name:        in.Form.Name,
		PAN:         in.Form.PAN,
		Mobile:      in.Form.Mobile,
		DOB:         in.Form.DOB,
		Consent:     in.Consent,
		OTPVerified: in.OTPVerified,
		SessionID:   in.SessionID,
	}
}

// Form extracts the applicant form from a check_score request.
func (r Request) Form() domain.UserForm {
	return domain.UserForm{Name: r.Name, PAN: r.PAN, Mobile: r.Mobile, DOB: r.DOB}
}
