package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/flow"
)

const consoleHelp = `Commands:
  start              begin a score check from the dashboard
  submit             enter your details and fetch your score
  otp <code>         verify the one-time password sent to your mobile
  cancel             close the OTP prompt
  plans              list the report plans
  plan <id>          select a plan
  subscribe          pay for the selected plan
  report             download your credit report
  back               go to the previous step
  reset              forget saved progress and start over
  state              show where you are
  help               show this message
  quit               leave the wizard`

// console drives a flow.Machine from line-oriented input.
type console struct {
	machine *flow.Machine
	in      *bufio.Scanner
	out     io.Writer
}

func newConsole(machine *flow.Machine, in io.Reader, out io.Writer) *console {
	return &console{machine: machine, in: bufio.NewScanner(in), out: out}
}

func printNotifier(out io.Writer) flow.Notifier {
	return flow.NotifierFunc(func(n flow.Notification) {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	})
}

func (c *console) run(ctx context.Context) error {
	c.render()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, ok := c.prompt("> ")
		if !ok {
			return c.in.Err()
		}
		name, arg := splitCommand(line)
		if name == "" {
			continue
		}
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := c.execute(ctx, name, arg); err != nil {
			c.report(err)
		}
		c.render()
	}
}

func (c *console) execute(ctx context.Context, name, arg string) error {
	switch name {
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "state":
		return nil
	case "start":
		return c.machine.Start()
	case "submit":
		form, consent, ok := c.readForm()
		if !ok {
			return io.ErrUnexpectedEOF
		}
		return c.machine.Submit(ctx, form, consent)
	case "otp":
		return c.machine.VerifyOTP(ctx, arg)
	case "cancel":
		return c.machine.CancelOTP()
	case "plans":
		printPlans(c.out)
		return nil
	case "plan":
		return c.machine.SelectPlan(domain.PlanID(strings.ToLower(arg)))
	case "subscribe":
		return c.machine.Subscribe(ctx)
	case "report":
		if err := c.machine.DownloadReport(ctx); err != nil {
			return err
		}
		if r := c.machine.State().Report; r != nil {
			printReport(c.out, *r)
		}
		return nil
	case "back":
		return c.machine.Back()
	case "reset":
		return c.machine.Reset(ctx)
	default:
		return fmt.Errorf("unknown command %q, type help for a list", name)
	}
}

func (c *console) readForm() (domain.UserForm, bool, bool) {
	var form domain.UserForm
	fields := []struct {
		label string
		dst   *string
	}{
		{"Full name", &form.Name},
		{"PAN", &form.PAN},
		{"Mobile", &form.Mobile},
		{"Date of birth (YYYY-MM-DD)", &form.DOB},
	}
	for _, f := range fields {
		v, ok := c.prompt(f.label + ": ")
		if !ok {
			return form, false, false
		}
		*f.dst = v
	}
	answer, ok := c.prompt("I consent to a credit bureau check (y/N): ")
	if !ok {
		return form, false, false
	}
	return form, parseYes(answer), true
}

func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// report prints errors the machine does not already surface as notifications.
func (c *console) report(err error) {
	switch {
	case errors.Is(err, flow.ErrBusy):
		fmt.Fprintln(c.out, "Still working on the previous request.")
	case errors.Is(err, flow.ErrStale), errors.Is(err, flow.ErrClosed):
	case errors.Is(err, io.ErrUnexpectedEOF):
		fmt.Fprintln(c.out)
	default:
		var remote *domain.RemoteError
		var verr *domain.ValidationError
		if errors.As(err, &remote) || errors.As(err, &verr) || isNotified(err) {
			return
		}
		fmt.Fprintln(c.out, err)
	}
}

func isNotified(err error) bool {
	for _, target := range []error{
		flow.ErrWrongStep,
		flow.ErrConsentRequired,
		flow.ErrNoOTPSession,
		flow.ErrOTPPending,
		flow.ErrPlanNotSelected,
		flow.ErrScoreOutOfRange,
		flow.ErrUnexpectedOutcome,
		domain.ErrInvalidOTP,
		domain.ErrUnknownPlan,
		domain.ErrNoSubscription,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (c *console) render() {
	renderState(c.out, c.machine.State())
}

func renderState(out io.Writer, s domain.FlowState) {
	fmt.Fprintf(out, "\n== Step %d: %s ==\n", s.CurrentStep, stepTitle(s.CurrentStep))
	switch s.CurrentStep {
	case domain.StepDashboard:
		fmt.Fprintln(out, "Type start to check your credit score.")
	case domain.StepCheckScore:
		if s.OTP != nil && s.OTP.ModalOpen {
			fmt.Fprintln(out, "Enter the OTP sent to your mobile with: otp <code>")
			return
		}
		fmt.Fprintln(out, "Type submit to enter your details.")
	case domain.StepPlanSelection:
		if s.Score != nil {
			fmt.Fprintf(out, "Your credit score: %d (%s)\n", *s.Score, domain.ScoreBand(*s.Score))
		}
		if s.SelectedPlan != "" {
			fmt.Fprintf(out, "Selected plan: %s. Type subscribe to continue.\n", s.SelectedPlan)
			return
		}
		fmt.Fprintln(out, "Type plans to see the options, then plan <id>.")
	case domain.StepReportReady:
		if s.Subscription != nil {
			fmt.Fprintf(out, "Subscribed to %s", s.Subscription.PlanID)
			if !s.Subscription.EndDate.IsZero() {
				fmt.Fprintf(out, " until %s", s.Subscription.EndDate.Format("2006-01-02"))
			}
			fmt.Fprintln(out, ".")
		}
		fmt.Fprintln(out, "Type report to download your credit report.")
	}
}

func stepTitle(s domain.Step) string {
	switch s {
	case domain.StepDashboard:
		return "Dashboard"
	case domain.StepCheckScore:
		return "Check your score"
	case domain.StepPlanSelection:
		return "Choose a plan"
	case domain.StepReportReady:
		return "Your report"
	default:
		return s.String()
	}
}

func printPlans(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLAN\tPRICE\tVALIDITY")
	for _, p := range domain.Plans() {
		fmt.Fprintf(w, "%s\t%s\t%s %d\t%d days\n", p.ID, p.Name, p.Currency, p.Price, p.DurationDays)
	}
	_ = w.Flush()
}

func printReport(out io.Writer, r domain.Report) {
	fmt.Fprintf(out, "Report %s for %s\n", r.ID, r.UserID)
	fmt.Fprintf(out, "Score: %d (%s)\n", r.Score, r.Band)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, f := range r.Factors {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", f.Name, f.Value, f.Impact)
	}
	_ = w.Flush()
}

func printSnapshot(out io.Writer, key string, snap *domain.PersistedSnapshot) {
	if snap == nil || snap.IsEmpty() {
		fmt.Fprintf(out, "No saved progress under %q.\n", key)
		return
	}
	fmt.Fprintf(out, "Saved progress under %q (resumes at %s)\n", key, snap.ResumeStep())
	if snap.UserForm != nil {
		fmt.Fprintf(out, "  applicant:    %s (%s)\n", snap.UserForm.Name, snap.UserForm.UserID())
	}
	if snap.Score != nil {
		fmt.Fprintf(out, "  score:        %d\n", *snap.Score)
	}
	if snap.Subscription != nil {
		fmt.Fprintf(out, "  subscription: %s", snap.Subscription.PlanID)
		if !snap.Subscription.EndDate.IsZero() {
			fmt.Fprintf(out, " until %s", snap.Subscription.EndDate.Format("2006-01-02"))
		}
		fmt.Fprintln(out)
	}
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func parseYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "true", "1":
		return true
	default:
		return false
	}
}
