package flow

import (
	"context"

	"github.com/google/uuid"

	"github.com/vanshika/creditscore/internal/domain"
)

// PaymentGateway collects payment for a plan and returns the payment id the
// backend needs to activate a subscription.
type PaymentGateway interface {
	Charge(ctx context.Context, userID string, plan domain.Plan) (paymentID string, err error)
}

// MockGateway approves every charge with a generated id.
type MockGateway struct{}

func (MockGateway) Charge(ctx context.Context, _ string, _ domain.Plan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "pay_" + uuid.NewString(), nil
}
