package domain

// CheckScoreRequest is the input of the remote checkScore operation.
type CheckScoreRequest struct {
	Form        UserForm
	Consent     bool
	OTPVerified bool
	SessionID   string
}

// ScoreOutcome is the non-error result of checkScore: either ScoreReady or OTPChallenge.
type ScoreOutcome interface {
	isScoreOutcome()
}

// ScoreReady carries a fetched credit score.
type ScoreReady struct {
	CreditScore int
}

// OTPChallenge asks the caller to verify an OTP before the score is released.
type OTPChallenge struct {
	SessionID string
}

func (ScoreReady) isScoreOutcome()   {}
func (OTPChallenge) isScoreOutcome() {}
