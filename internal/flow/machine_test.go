package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/logging"
	"github.com/vanshika/creditscore/internal/snapshot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRemote struct {
	mu             sync.Mutex
	checks         []domain.CheckScoreRequest
	verifies       []string
	subscribeCalls int
	reportCalls    int

	checkFn     func(ctx context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error)
	verifyFn    func(ctx context.Context, sessionID, otp string) error
	subscribeFn func(ctx context.Context, userID string, planID domain.PlanID, paymentID string) (domain.Subscription, error)
	reportFn    func(ctx context.Context, userID string) (domain.Report, error)
}

func (f *fakeRemote) CheckScore(ctx context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
	f.mu.Lock()
	f.checks = append(f.checks, req)
	fn := f.checkFn
	f.mu.Unlock()
	if fn == nil {
		return domain.ScoreReady{CreditScore: 720}, nil
	}
	return fn(ctx, req)
}

func (f *fakeRemote) VerifyOTP(ctx context.Context, sessionID, otp string) error {
	f.mu.Lock()
	f.verifies = append(f.verifies, sessionID+":"+otp)
	fn := f.verifyFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, sessionID, otp)
}

func (f *fakeRemote) Subscribe(ctx context.Context, userID string, planID domain.PlanID, paymentID string) (domain.Subscription, error) {
	f.mu.Lock()
	f.subscribeCalls++
	fn := f.subscribeFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Subscription{ID: "sub-1", UserID: userID, PlanID: planID, PaymentID: paymentID, Status: domain.SubscriptionActive}, nil
	}
	return fn(ctx, userID, planID, paymentID)
}

func (f *fakeRemote) GetReport(ctx context.Context, userID string) (domain.Report, error) {
	f.mu.Lock()
	f.reportCalls++
	fn := f.reportFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Report{ID: "rep-1", UserID: userID, Score: 720, Band: domain.ScoreBand(720)}, nil
	}
	return fn(ctx, userID)
}

func (f *fakeRemote) checkCalls() []domain.CheckScoreRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CheckScoreRequest(nil), f.checks...)
}

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return Notification{}
	}
	return r.notes[len(r.notes)-1]
}

type failingStore struct {
	snapshot.Store
}

func (failingStore) Save(context.Context, domain.PersistedSnapshot) error {
	return errors.New("disk full")
}

var validForm = domain.UserForm{Name: "Asha Rao", PAN: "abcde1234f", Mobile: "9876543210", DOB: "1990-04-12"}

type harness struct {
	machine *Machine
	remote  *fakeRemote
	store   *snapshot.Adapter
	notes   *recorder
}

func newHarness(t *testing.T, seed *domain.PersistedSnapshot) *harness {
	t.Helper()
	ctx := context.Background()
	store := snapshot.New(snapshot.NewMemoryKV(), snapshot.DefaultKey)
	if seed != nil {
		require.NoError(t, store.Save(ctx, *seed))
	}
	h := &harness{remote: &fakeRemote{}, store: store, notes: &recorder{}}
	m, err := New(ctx, Config{Remote: h.remote, Store: store, Notifier: h.notes, Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	h.machine = m
	return h
}

// atPlanSelection drives a fresh machine to step 3 with an immediate score.
func (h *harness) atPlanSelection(t *testing.T) {
	t.Helper()
	require.NoError(t, h.machine.Start())
	require.NoError(t, h.machine.Submit(context.Background(), validForm, true))
	require.Equal(t, domain.StepPlanSelection, h.machine.State().CurrentStep)
}

func intPtr(v int) *int { return &v }

func TestNewStartsAtDashboardWithoutSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	state := h.machine.State()
	assert.Equal(t, domain.StepDashboard, state.CurrentStep)
	assert.Nil(t, state.Score)
	assert.False(t, state.Pending)
}

func TestNewResumesFromSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		seed     domain.PersistedSnapshot
		wantStep domain.Step
	}{
		{"score only", domain.PersistedSnapshot{Score: intPtr(700), UserForm: &validForm}, domain.StepPlanSelection},
		{"subscription wins", domain.PersistedSnapshot{Score: intPtr(700), Subscription: &domain.Subscription{PlanID: domain.PlanBasic}}, domain.StepReportReady},
		{"form only", domain.PersistedSnapshot{UserForm: &validForm}, domain.StepDashboard},
		{"score out of range", domain.PersistedSnapshot{Score: intPtr(999)}, domain.StepDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := tt.seed
			h := newHarness(t, &seed)
			state := h.machine.State()
			assert.Equal(t, tt.wantStep, state.CurrentStep)
			if tt.seed.UserForm != nil {
				assert.Equal(t, *tt.seed.UserForm, state.UserForm)
			}
		})
	}
}

func TestNewIgnoresCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := snapshot.NewMemoryKV()
	require.NoError(t, kv.Put(ctx, snapshot.DefaultKey, []byte("{not json")))
	store := snapshot.New(kv, snapshot.DefaultKey)

	m, err := New(ctx, Config{Remote: &fakeRemote{}, Store: store, Logger: logging.Discard()})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, domain.StepDashboard, m.State().CurrentStep)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(context.Background(), Config{Store: snapshot.New(snapshot.NewMemoryKV(), "")})
	assert.Error(t, err)
	_, err = New(context.Background(), Config{Remote: &fakeRemote{}})
	assert.Error(t, err)
}

func TestStartOnlyFromDashboard(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.machine.Start())
	assert.Equal(t, domain.StepCheckScore, h.machine.State().CurrentStep)
	assert.ErrorIs(t, h.machine.Start(), ErrWrongStep)
	assert.Equal(t, Notification{Level: LevelError, Message: "That action is not available on this step"}, h.notes.last())
}

func TestSubmitRejectsIncompleteForm(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.machine.Start())

	err := h.machine.Submit(context.Background(), domain.UserForm{Name: "Asha"}, true)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"pan", "mobile", "dob"}, verr.Fields)
	assert.Empty(t, h.remote.checkCalls())
	assert.Equal(t, LevelError, h.notes.last().Level)
	assert.Equal(t, domain.StepCheckScore, h.machine.State().CurrentStep)
}

func TestSubmitRequiresConsent(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.machine.Start())

	err := h.machine.Submit(context.Background(), validForm, false)
	assert.ErrorIs(t, err, ErrConsentRequired)
	assert.Empty(t, h.remote.checkCalls())
}

func TestSubmitWrongStep(t *testing.T) {
	h := newHarness(t, nil)
	err := h.machine.Submit(context.Background(), validForm, true)
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.Equal(t, Notification{Level: LevelError, Message: "That action is not available on this step"}, h.notes.last())
	assert.Empty(t, h.remote.checkCalls())
}

func TestSubmitImmediateScoreAdvancesAndPersists(t *testing.T) {
	h := newHarness(t, nil)
	h.atPlanSelection(t)

	state := h.machine.State()
	require.NotNil(t, state.Score)
	assert.Equal(t, 720, *state.Score)
	assert.Nil(t, state.OTP)
	assert.Equal(t, LevelSuccess, h.notes.last().Level)

	snap, err := h.store.Load(context.Background())
	require.NoError(t, err)
	want := &domain.PersistedSnapshot{Score: intPtr(720), UserForm: &validForm}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("persisted snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitRejectsScoreOutOfRange(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.checkFn = func(context.Context, domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		return domain.ScoreReady{CreditScore: 120}, nil
	}
	require.NoError(t, h.machine.Start())

	err := h.machine.Submit(context.Background(), validForm, true)
	assert.ErrorIs(t, err, ErrScoreOutOfRange)
	state := h.machine.State()
	assert.Equal(t, domain.StepCheckScore, state.CurrentStep)
	assert.Nil(t, state.Score)

	snap, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSubmitRemoteFailureStaysOnStep(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.checkFn = func(context.Context, domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		return nil, &domain.RemoteError{Action: domain.ActionCheckScore, Status: 500, Code: domain.CodeInternal, Message: "bureau unavailable"}
	}
	require.NoError(t, h.machine.Start())

	err := h.machine.Submit(context.Background(), validForm, true)
	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, Notification{Level: LevelError, Message: "bureau unavailable"}, h.notes.last())

	state := h.machine.State()
	assert.Equal(t, domain.StepCheckScore, state.CurrentStep)
	assert.False(t, state.Pending)
	assert.Equal(t, validForm, state.UserForm)
}

func TestSubmitUncodedRemoteErrorUsesFallback(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.checkFn = func(context.Context, domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		return nil, &domain.RemoteError{Action: domain.ActionCheckScore, Status: 502, Message: "malformed response"}
	}
	require.NoError(t, h.machine.Start())

	err := h.machine.Submit(context.Background(), validForm, true)
	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, Notification{Level: LevelError, Message: "Failed to fetch credit score. Please try again."}, h.notes.last())
	assert.Equal(t, domain.StepCheckScore, h.machine.State().CurrentStep)
}

func TestOTPChallengeThenVerify(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.checkFn = func(_ context.Context, req domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		if !req.OTPVerified {
			return domain.OTPChallenge{SessionID: "sess-1"}, nil
		}
		return domain.ScoreReady{CreditScore: 768}, nil
	}
	h.remote.verifyFn = func(_ context.Context, _ string, otp string) error {
		if otp != "123456" {
			return &domain.RemoteError{Action: domain.ActionVerifyOTP, Status: 401, Code: domain.CodeInvalidOTP, Err: domain.ErrInvalidOTP}
		}
		return nil
	}
	ctx := context.Background()
	require.NoError(t, h.machine.Start())

	require.NoError(t, h.machine.Submit(ctx, validForm, true))
	state := h.machine.State()
	assert.Equal(t, domain.StepCheckScore, state.CurrentStep)
	require.NotNil(t, state.OTP)
	assert.Equal(t, domain.OTPSession{SessionID: "sess-1", ModalOpen: true}, *state.OTP)

	snap, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "a challenge must not persist anything")

	assert.ErrorIs(t, h.machine.Submit(ctx, validForm, true), ErrOTPPending)

	err = h.machine.VerifyOTP(ctx, "000000")
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	assert.Equal(t, Notification{Level: LevelError, Message: "Invalid OTP"}, h.notes.last())
	state = h.machine.State()
	require.NotNil(t, state.OTP)
	assert.True(t, state.OTP.ModalOpen)
	assert.Equal(t, domain.StepCheckScore, state.CurrentStep)

	require.NoError(t, h.machine.VerifyOTP(ctx, "123456"))
	state = h.machine.State()
	assert.Equal(t, domain.StepPlanSelection, state.CurrentStep)
	assert.Nil(t, state.OTP)
	require.NotNil(t, state.Score)
	assert.Equal(t, 768, *state.Score)

	calls := h.remote.checkCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, domain.CheckScoreRequest{Form: validForm, Consent: true, OTPVerified: true, SessionID: "sess-1"}, calls[1])

	assert.ErrorIs(t, h.machine.VerifyOTP(ctx, "123456"), ErrWrongStep)
	assert.Equal(t, domain.StepPlanSelection, h.machine.State().CurrentStep)
	assert.Len(t, h.remote.checkCalls(), 2)
}

func TestVerifyOTPWithoutSession(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.machine.Start())
	assert.ErrorIs(t, h.machine.VerifyOTP(context.Background(), "123456"), ErrNoOTPSession)
	assert.ErrorIs(t, h.machine.CancelOTP(), ErrNoOTPSession)
	assert.Equal(t, Notification{Level: LevelError, Message: "No verification in progress"}, h.notes.last())
}

func TestCancelOTPClosesSubState(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.checkFn = func(context.Context, domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		return domain.OTPChallenge{SessionID: "sess-2"}, nil
	}
	require.NoError(t, h.machine.Start())
	require.NoError(t, h.machine.Submit(context.Background(), validForm, true))

	require.NoError(t, h.machine.CancelOTP())
	state := h.machine.State()
	assert.Nil(t, state.OTP)
	assert.Equal(t, domain.StepCheckScore, state.CurrentStep)
}

func TestSelectPlan(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.machine.SelectPlan(domain.PlanBasic), ErrWrongStep)

	h.atPlanSelection(t)
	assert.ErrorIs(t, h.machine.SelectPlan("gold"), domain.ErrUnknownPlan)
	require.NoError(t, h.machine.SelectPlan(domain.PlanPremium))
	assert.Equal(t, domain.PlanPremium, h.machine.State().SelectedPlan)
}

func TestSubscribeRequiresPlan(t *testing.T) {
	h := newHarness(t, nil)
	h.atPlanSelection(t)
	assert.ErrorIs(t, h.machine.Subscribe(context.Background()), ErrPlanNotSelected)
	assert.Zero(t, h.remote.subscribeCalls)
}

func TestSubscribeAdvancesAndMergesSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	h.atPlanSelection(t)
	ctx := context.Background()

	require.NoError(t, h.machine.SelectPlan(domain.PlanStandard))
	require.NoError(t, h.machine.Subscribe(ctx))

	state := h.machine.State()
	assert.Equal(t, domain.StepReportReady, state.CurrentStep)
	require.NotNil(t, state.Subscription)
	assert.Equal(t, domain.PlanStandard, state.Subscription.PlanID)
	assert.Equal(t, "ABCDE1234F", state.Subscription.UserID)
	assert.Contains(t, state.Subscription.PaymentID, "pay_")

	snap, err := h.store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Score)
	assert.Equal(t, 720, *snap.Score)
	assert.Equal(t, &validForm, snap.UserForm)
	require.NotNil(t, snap.Subscription)
	assert.Equal(t, domain.PlanStandard, snap.Subscription.PlanID)
}

func TestSubscribeFillsMissingPlanID(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.subscribeFn = func(context.Context, string, domain.PlanID, string) (domain.Subscription, error) {
		return domain.Subscription{ID: "sub-9"}, nil
	}
	h.atPlanSelection(t)
	require.NoError(t, h.machine.SelectPlan(domain.PlanElite))
	require.NoError(t, h.machine.Subscribe(context.Background()))
	assert.Equal(t, domain.PlanElite, h.machine.State().Subscription.PlanID)
}

func TestSubscribePersistFailureStillAdvances(t *testing.T) {
	ctx := context.Background()
	notes := &recorder{}
	store := failingStore{Store: snapshot.New(snapshot.NewMemoryKV(), "")}
	m, err := New(ctx, Config{Remote: &fakeRemote{}, Store: store, Notifier: notes, Logger: logging.Discard()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Start())
	require.NoError(t, m.Submit(ctx, validForm, true))
	require.NoError(t, m.SelectPlan(domain.PlanBasic))
	require.NoError(t, m.Subscribe(ctx))
	assert.Equal(t, domain.StepReportReady, m.State().CurrentStep)

	var sawPersistError bool
	for _, n := range notes.notes {
		if n.Message == "Progress could not be saved on this device" {
			sawPersistError = true
		}
	}
	assert.True(t, sawPersistError)
}

func TestDownloadReportWithoutSubscription(t *testing.T) {
	h := newHarness(t, nil)
	h.atPlanSelection(t)

	err := h.machine.DownloadReport(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
	assert.Zero(t, h.remote.reportCalls)
}

func TestDownloadReport(t *testing.T) {
	seed := domain.PersistedSnapshot{
		Score:        intPtr(701),
		UserForm:     &validForm,
		Subscription: &domain.Subscription{PlanID: domain.PlanBasic, UserID: "ABCDE1234F"},
	}
	h := newHarness(t, &seed)
	require.Equal(t, domain.StepReportReady, h.machine.State().CurrentStep)

	require.NoError(t, h.machine.DownloadReport(context.Background()))
	report := h.machine.State().Report
	require.NotNil(t, report)
	assert.Equal(t, "ABCDE1234F", report.UserID)
	assert.Equal(t, 1, h.remote.reportCalls)
}

func TestBackNavigation(t *testing.T) {
	seed := domain.PersistedSnapshot{
		Score:        intPtr(701),
		Subscription: &domain.Subscription{PlanID: domain.PlanBasic},
	}
	h := newHarness(t, &seed)

	steps := []domain.Step{domain.StepPlanSelection, domain.StepCheckScore, domain.StepDashboard, domain.StepDashboard}
	for _, want := range steps {
		require.NoError(t, h.machine.Back())
		assert.Equal(t, want, h.machine.State().CurrentStep)
	}

	state := h.machine.State()
	require.NotNil(t, state.Score)
	assert.NotNil(t, state.Subscription)
}

func TestBackFromCheckScoreClosesOTP(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.checkFn = func(context.Context, domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		if len(h.remote.checkCalls()) == 1 {
			return domain.OTPChallenge{SessionID: "sess-3"}, nil
		}
		return domain.ScoreReady{CreditScore: 690}, nil
	}
	ctx := context.Background()
	require.NoError(t, h.machine.Start())
	require.NoError(t, h.machine.Submit(ctx, validForm, true))
	require.NotNil(t, h.machine.State().OTP)

	require.NoError(t, h.machine.Back())
	state := h.machine.State()
	assert.Equal(t, domain.StepDashboard, state.CurrentStep)
	assert.Nil(t, state.OTP)

	require.NoError(t, h.machine.Start())
	require.NoError(t, h.machine.Submit(ctx, validForm, true))
	state = h.machine.State()
	assert.Equal(t, domain.StepPlanSelection, state.CurrentStep)
	require.NotNil(t, state.Score)
	assert.Equal(t, 690, *state.Score)
}

func TestBackSkipsPlanSelectionWithoutScore(t *testing.T) {
	seed := domain.PersistedSnapshot{Subscription: &domain.Subscription{PlanID: domain.PlanBasic}}
	h := newHarness(t, &seed)
	require.Equal(t, domain.StepReportReady, h.machine.State().CurrentStep)

	require.NoError(t, h.machine.Back())
	assert.Equal(t, domain.StepCheckScore, h.machine.State().CurrentStep)
}

func TestResetClearsSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	h.atPlanSelection(t)
	ctx := context.Background()

	require.NoError(t, h.machine.Reset(ctx))
	state := h.machine.State()
	assert.Equal(t, domain.StepDashboard, state.CurrentStep)
	assert.Nil(t, state.Score)
	assert.Empty(t, state.UserForm)

	snap, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

// blockingCheck makes CheckScore wait until release is closed or the call
// context is canceled.
func blockingCheck(started chan<- struct{}, release <-chan struct{}) func(context.Context, domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
	return func(ctx context.Context, _ domain.CheckScoreRequest) (domain.ScoreOutcome, error) {
		close(started)
		select {
		case <-release:
			return domain.ScoreReady{CreditScore: 650}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestConcurrentCallIsBusy(t *testing.T) {
	h := newHarness(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	h.remote.checkFn = blockingCheck(started, release)
	require.NoError(t, h.machine.Start())

	done := make(chan error, 1)
	go func() { done <- h.machine.Submit(context.Background(), validForm, true) }()
	<-started

	assert.True(t, h.machine.State().Pending)
	assert.ErrorIs(t, h.machine.Submit(context.Background(), validForm, true), ErrBusy)
	assert.ErrorIs(t, h.machine.SelectPlan(domain.PlanBasic), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	state := h.machine.State()
	assert.False(t, state.Pending)
	assert.Equal(t, domain.StepPlanSelection, state.CurrentStep)
	assert.Len(t, h.remote.checkCalls(), 1)
}

func TestBackDiscardsInFlightCompletion(t *testing.T) {
	h := newHarness(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	h.remote.checkFn = blockingCheck(started, release)
	require.NoError(t, h.machine.Start())

	done := make(chan error, 1)
	go func() { done <- h.machine.Submit(context.Background(), validForm, true) }()
	<-started

	require.NoError(t, h.machine.Back())
	close(release)
	assert.ErrorIs(t, <-done, ErrStale)

	state := h.machine.State()
	assert.Equal(t, domain.StepDashboard, state.CurrentStep)
	assert.Nil(t, state.Score)
	assert.False(t, state.Pending)

	snap, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestCloseDiscardsInFlightCompletion(t *testing.T) {
	h := newHarness(t, nil)
	started := make(chan struct{})
	h.remote.checkFn = blockingCheck(started, make(chan struct{}))
	require.NoError(t, h.machine.Start())

	done := make(chan error, 1)
	go func() { done <- h.machine.Submit(context.Background(), validForm, true) }()
	<-started

	h.machine.Close()
	assert.ErrorIs(t, <-done, ErrStale)
	assert.ErrorIs(t, h.machine.Start(), ErrClosed)
	assert.ErrorIs(t, h.machine.Back(), ErrClosed)
}
