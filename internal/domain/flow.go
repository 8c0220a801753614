package domain

// Step identifies a position in the credit-score wizard.
type Step int

const (
	StepDashboard     Step = 1
	StepCheckScore    Step = 2
	StepPlanSelection Step = 3
	StepReportReady   Step = 4
)

func (s Step) String() string {
	switch s {
	case StepDashboard:
		return "dashboard"
	case StepCheckScore:
		return "check-score"
	case StepPlanSelection:
		return "plan-selection"
	case StepReportReady:
		return "report-ready"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four wizard steps.
func (s Step) Valid() bool {
	return s >= StepDashboard && s <= StepReportReady
}

// OTPSession is the transient verification sub-state of the check-score step.
type OTPSession struct {
	SessionID string
	ModalOpen bool
}

// FlowState is the full state of one flow instance.
type FlowState struct {
	CurrentStep  Step
	UserForm     UserForm
	Consent      bool
	Score        *int
	Subscription *Subscription
	SelectedPlan PlanID
	OTP          *OTPSession
	Report       *Report
	Pending      bool
}

// Clone returns a deep copy so callers can render without sharing pointers.
func (s FlowState) Clone() FlowState {
	out := s
	if s.Score != nil {
		score := *s.Score
		out.Score = &score
	}
	if s.Subscription != nil {
		sub := *s.Subscription
		out.Subscription = &sub
	}
	if s.OTP != nil {
		otp := *s.OTP
		out.OTP = &otp
	}
	if s.Report != nil {
		report := s.Report.Clone()
		out.Report = &report
	}
	return out
}

// PersistedSnapshot is the durable subset of FlowState. A nil field means
// "absent"; in a partial save it means "leave the stored value alone".
type PersistedSnapshot struct {
	Score        *int          `json:"score,omitempty"`
	UserForm     *UserForm     `json:"userForm,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p PersistedSnapshot) IsEmpty() bool {
	return p.Score == nil && p.UserForm == nil && p.Subscription == nil
}

// ResumeStep picks the step a flow restarts on given what was persisted.
func (p *PersistedSnapshot) ResumeStep() Step {
	switch {
	case p == nil:
		return StepDashboard
	case p.Subscription != nil:
		return StepReportReady
	case p.Score != nil:
		return StepPlanSelection
	default:
		return StepDashboard
	}
}
