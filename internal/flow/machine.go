// Package flow implements the four-step credit-score wizard: dashboard, check
// score, plan selection and report. A Machine owns the FlowState; callers
// drive it through one method per transition and render from State.
//
// At most one remote call is in flight per Machine. A second mutating call
// fails with ErrBusy. Navigation (Back, CancelOTP, Reset, Close) bumps an
// epoch and cancels the in-flight call; its completion then returns ErrStale
// without touching state.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/snapshot"
)

// Remote is the score backend as seen by the flow.
type Remote interface {
	CheckScore(ctx context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error)
	VerifyOTP(ctx context.Context, sessionID, otp string) error
	Subscribe(ctx context.Context, userID string, planID domain.PlanID, paymentID string) (domain.Subscription, error)
	GetReport(ctx context.Context, userID string) (domain.Report, error)
}

// Config collects a Machine's collaborators. Remote and Store are required.
type Config struct {
	Remote   Remote
	Store    snapshot.Store
	Payments PaymentGateway
	Notifier Notifier
	Logger   *slog.Logger
}

// Machine is one flow instance.
type Machine struct {
	mu     sync.Mutex
	state  domain.FlowState
	epoch  uint64
	cancel context.CancelFunc
	closed bool
	outbox []Notification

	remote   Remote
	store    snapshot.Store
	payments PaymentGateway
	notifier Notifier
	logger   *slog.Logger
}

// New builds a Machine and seeds its step from the persisted snapshot.
// An unreadable snapshot is logged and the flow starts at the dashboard.
func New(ctx context.Context, cfg Config) (*Machine, error) {
	if cfg.Remote == nil {
		return nil, errors.New("flow: remote client is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("flow: snapshot store is required")
	}

	m := &Machine{
		remote:   cfg.Remote,
		store:    cfg.Store,
		payments: cfg.Payments,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
	if m.payments == nil {
		m.payments = MockGateway{}
	}
	if m.notifier == nil {
		m.notifier = discardNotifier{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	m.state = domain.FlowState{CurrentStep: domain.StepDashboard}

	snap, err := cfg.Store.Load(ctx)
	if err != nil {
		m.logger.Warn("ignoring unreadable flow snapshot", "error", err)
		return m, nil
	}
	m.restore(snap)
	return m, nil
}

func (m *Machine) restore(snap *domain.PersistedSnapshot) {
	if snap == nil {
		return
	}
	if snap.Score != nil {
		if domain.ScoreInRange(*snap.Score) {
			score := *snap.Score
			m.state.Score = &score
		} else {
			m.logger.Warn("ignoring persisted score out of range", "score", *snap.Score)
		}
	}
	if snap.UserForm != nil {
		m.state.UserForm = *snap.UserForm
	}
	if snap.Subscription != nil {
		sub := *snap.Subscription
		m.state.Subscription = &sub
	}

	restored := domain.PersistedSnapshot{Score: m.state.Score, Subscription: m.state.Subscription}
	m.state.CurrentStep = restored.ResumeStep()
	m.logger.Debug("restored flow snapshot", "step", m.state.CurrentStep.String())
}

// State returns a copy of the current flow state for rendering.
func (m *Machine) State() domain.FlowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Start moves from the dashboard to the check-score step.
func (m *Machine) Start() error {
	m.mu.Lock()
	if err := m.availableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.CurrentStep != domain.StepDashboard {
		err := m.stepErrorLocked(domain.StepDashboard)
		m.rejectLocked(err)
		notes := m.drainLocked()
		m.mu.Unlock()
		m.emit(notes)
		return err
	}
	m.state.CurrentStep = domain.StepCheckScore
	m.mu.Unlock()
	return nil
}

// Back moves one step backward and abandons any in-flight call. Leaving
// check score closes the OTP sub-state. Going back onto plan selection
// without a score lands on check score instead.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.state.CurrentStep <= domain.StepDashboard {
		return nil
	}
	m.invalidateLocked()

	target := m.state.CurrentStep - 1
	if target == domain.StepPlanSelection && m.state.Score == nil {
		target = domain.StepCheckScore
	}
	if m.state.CurrentStep == domain.StepCheckScore {
		m.state.OTP = nil
	}
	m.state.CurrentStep = target
	return nil
}

// Reset clears the persisted snapshot and returns a fresh flow to the dashboard.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.invalidateLocked()
	if err := m.store.Clear(ctx); err != nil {
		m.notifyLocked(LevelError, "Could not clear saved progress")
		notes := m.drainLocked()
		m.mu.Unlock()
		m.emit(notes)
		return fmt.Errorf("reset flow: %w", err)
	}
	m.state = domain.FlowState{CurrentStep: domain.StepDashboard}
	m.mu.Unlock()
	return nil
}

// Close ends the flow instance. Pending completions are discarded and
// later calls fail with ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.invalidateLocked()
	m.closed = true
}

// exchange runs one remote call under the in-flight guard. guard runs under
// the lock before the call; complete runs under the lock only when the call
// is still current.
func (m *Machine) exchange(ctx context.Context, guard func() error, call func(context.Context) error, complete func(ctx context.Context, callErr error) error) error {
	m.mu.Lock()
	if err := m.availableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := guard(); err != nil {
		m.rejectLocked(err)
		notes := m.drainLocked()
		m.mu.Unlock()
		m.emit(notes)
		return err
	}
	callCtx, epoch := m.beginLocked(ctx)
	m.mu.Unlock()

	callErr := call(callCtx)

	m.mu.Lock()
	if !m.finishLocked(epoch) {
		m.mu.Unlock()
		m.logger.Debug("discarding stale completion", "error", callErr)
		return ErrStale
	}
	err := complete(ctx, callErr)
	notes := m.drainLocked()
	m.mu.Unlock()
	m.emit(notes)
	return err
}

func (m *Machine) availableLocked() error {
	if m.closed {
		return ErrClosed
	}
	if m.state.Pending {
		return ErrBusy
	}
	return nil
}

func (m *Machine) stepErrorLocked(want domain.Step) error {
	return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, m.state.CurrentStep, want)
}

func (m *Machine) beginLocked(ctx context.Context) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state.Pending = true
	return callCtx, m.epoch
}

func (m *Machine) finishLocked(epoch uint64) bool {
	if epoch != m.epoch {
		return false
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.Pending = false
	return true
}

func (m *Machine) invalidateLocked() {
	m.epoch++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.Pending = false
}

// persistLocked merge-writes partial. A failed write is reported but does
// not undo the transition that produced the data.
func (m *Machine) persistLocked(ctx context.Context, partial domain.PersistedSnapshot) {
	if err := m.store.Save(ctx, partial); err != nil {
		m.logger.Warn("failed to persist flow snapshot", "error", err)
		m.notifyLocked(LevelError, "Progress could not be saved on this device")
	}
}

func (m *Machine) notifyLocked(level Level, msg string) {
	m.outbox = append(m.outbox, Notification{Level: level, Message: msg})
}

func (m *Machine) drainLocked() []Notification {
	notes := m.outbox
	m.outbox = nil
	return notes
}

func (m *Machine) emit(notes []Notification) {
	for _, n := range notes {
		m.notifier.Notify(n)
	}
}

// rejectLocked turns a local guard failure into a notification.
func (m *Machine) rejectLocked(err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, ErrWrongStep):
		m.notifyLocked(LevelError, "That action is not available on this step")
	case errors.As(err, &verr):
		m.notifyLocked(LevelError, "Please fill in all required fields")
	case errors.Is(err, ErrConsentRequired):
		m.notifyLocked(LevelError, "Please accept the terms to fetch your credit score")
	case errors.Is(err, ErrPlanNotSelected):
		m.notifyLocked(LevelError, "Please select a plan")
	case errors.Is(err, domain.ErrUnknownPlan):
		m.notifyLocked(LevelError, "Please choose one of the available plans")
	case errors.Is(err, domain.ErrNoSubscription):
		m.notifyLocked(LevelError, "Subscribe to a plan to download your report")
	case errors.Is(err, ErrNoOTPSession):
		m.notifyLocked(LevelError, "No verification in progress")
	case errors.Is(err, ErrOTPPending):
		m.notifyLocked(LevelError, "Please complete OTP verification")
	}
}

// failLocked reports a remote failure. Only a message from a structured
// backend error body reaches the user.
func (m *Machine) failLocked(fallback string, err error) {
	var remote *domain.RemoteError
	msg := fallback
	if errors.As(err, &remote) && remote.Code != "" && remote.Message != "" {
		msg = remote.Message
	}
	m.logger.Warn("remote call failed", "error", err)
	m.notifyLocked(LevelError, msg)
}
