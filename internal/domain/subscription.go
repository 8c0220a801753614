package domain

import "time"

// Subscription status values returned by the backend.
const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

// Subscription records a paid plan for an applicant.
type Subscription struct {
	ID        string    `json:"subscriptionId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	PlanID    PlanID    `json:"planId"`
	PaymentID string    `json:"paymentId,omitempty"`
	Status    string    `json:"status,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero"`
}

// ActiveAt reports whether the subscription covers t.
func (s Subscription) ActiveAt(t time.Time) bool {
	if s.Status != "" && s.Status != SubscriptionActive {
		return false
	}
	if !s.EndDate.IsZero() && !t.Before(s.EndDate) {
		return false
	}
	return true
}
