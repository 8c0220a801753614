package flow

import (
	"context"
	"fmt"

	"github.com/vanshika/creditscore/internal/domain"
)

// SelectPlan records the plan to subscribe to. Nothing is persisted.
func (m *Machine) SelectPlan(planID domain.PlanID) error {
	m.mu.Lock()
	if err := m.availableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	var err error
	switch {
	case m.state.CurrentStep != domain.StepPlanSelection || m.state.Score == nil:
		err = m.stepErrorLocked(domain.StepPlanSelection)
	case !domain.ValidPlan(planID):
		err = fmt.Errorf("%w: %q", domain.ErrUnknownPlan, planID)
	default:
		m.state.SelectedPlan = planID
	}
	if err != nil {
		m.rejectLocked(err)
	}
	notes := m.drainLocked()
	m.mu.Unlock()
	m.emit(notes)
	return err
}

// Subscribe pays for the selected plan and activates it, advancing to the
// report step.
func (m *Machine) Subscribe(ctx context.Context) error {
	var (
		plan   domain.Plan
		userID string
		sub    domain.Subscription
	)

	return m.exchange(ctx,
		func() error {
			if m.state.CurrentStep != domain.StepPlanSelection {
				return m.stepErrorLocked(domain.StepPlanSelection)
			}
			if m.state.SelectedPlan == "" {
				return ErrPlanNotSelected
			}
			p, ok := domain.LookupPlan(m.state.SelectedPlan)
			if !ok {
				return fmt.Errorf("%w: %q", domain.ErrUnknownPlan, m.state.SelectedPlan)
			}
			userID = m.state.UserForm.UserID()
			if userID == "" {
				return &domain.ValidationError{Fields: []string{"pan"}}
			}
			plan = p
			return nil
		},
		func(ctx context.Context) error {
			paymentID, err := m.payments.Charge(ctx, userID, plan)
			if err != nil {
				return fmt.Errorf("payment: %w", err)
			}
			sub, err = m.remote.Subscribe(ctx, userID, plan.ID, paymentID)
			return err
		},
		func(ctx context.Context, callErr error) error {
			if callErr != nil {
				m.failLocked("Subscription failed. Please try again.", callErr)
				return fmt.Errorf("subscribe: %w", callErr)
			}
			if sub.PlanID == "" {
				sub.PlanID = plan.ID
			}
			m.state.Subscription = &sub
			m.state.Report = nil
			m.state.CurrentStep = domain.StepReportReady

			saved := sub
			m.persistLocked(ctx, domain.PersistedSnapshot{Subscription: &saved})
			m.notifyLocked(LevelSuccess, "Subscription activated")
			m.logger.Info("subscription activated", "plan", sub.PlanID, "subscription_id", sub.ID)
			return nil
		},
	)
}

// DownloadReport fetches the credit report into the session. Without a
// subscription it fails before any remote call.
func (m *Machine) DownloadReport(ctx context.Context) error {
	var (
		userID string
		report domain.Report
	)

	return m.exchange(ctx,
		func() error {
			if m.state.Subscription == nil {
				return domain.ErrNoSubscription
			}
			if m.state.CurrentStep != domain.StepReportReady {
				return m.stepErrorLocked(domain.StepReportReady)
			}
			userID = m.state.UserForm.UserID()
			if userID == "" {
				userID = m.state.Subscription.UserID
			}
			if userID == "" {
				return &domain.ValidationError{Fields: []string{"pan"}}
			}
			return nil
		},
		func(ctx context.Context) error {
			var err error
			report, err = m.remote.GetReport(ctx, userID)
			return err
		},
		func(_ context.Context, callErr error) error {
			if callErr != nil {
				m.failLocked("Could not download the report. Please try again.", callErr)
				return fmt.Errorf("get report: %w", callErr)
			}
			m.state.Report = &report
			m.notifyLocked(LevelSuccess, "Report downloaded")
			return nil
		},
	)
}
