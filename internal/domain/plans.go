package domain

// PlanID references one of the fixed subscription tiers.
type PlanID string

const (
	PlanStarter  PlanID = "starter"
	PlanBasic    PlanID = "basic"
	PlanStandard PlanID = "standard"
	PlanPremium  PlanID = "premium"
	PlanElite    PlanID = "elite"
)

// Plan is a static catalog entry offered on the plan-selection step.
type Plan struct {
	ID           PlanID   `json:"id"`
	Name         string   `json:"name"`
	Price        int      `json:"price"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"durationDays"`
	Features     []string `json:"features"`
}

var planCatalog = []Plan{
	{
		ID:           PlanStarter,
		Name:         "Starter",
		Price:        99,
		Currency:     "INR",
		DurationDays: 30,
		Features:     []string{"One detailed credit report", "Score band summary"},
	},
	{
		ID:           PlanBasic,
		Name:         "Basic",
		Price:        199,
		Currency:     "INR",
		DurationDays: 90,
		Features:     []string{"Quarterly credit report", "Score band summary", "Key factor breakdown"},
	},
	{
		ID:           PlanStandard,
		Name:         "Standard",
		Price:        399,
		Currency:     "INR",
		DurationDays: 180,
		Features:     []string{"Monthly score refresh", "Key factor breakdown", "Account level insights"},
	},
	{
		ID:           PlanPremium,
		Name:         "Premium",
		Price:        699,
		Currency:     "INR",
		DurationDays: 365,
		Features:     []string{"Monthly score refresh", "Account level insights", "Enquiry alerts", "Dispute assistance"},
	},
	{
		ID:           PlanElite,
		Name:         "Elite",
		Price:        999,
		Currency:     "INR",
		DurationDays: 365,
		Features:     []string{"Weekly score refresh", "Account level insights", "Enquiry alerts", "Dispute assistance", "Dedicated credit advisor"},
	},
}

// Plans returns a copy of the plan catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(planCatalog))
	for i, p := range planCatalog {
		p.Features = append([]string(nil), p.Features...)
		out[i] = p
	}
	return out
}

// LookupPlan finds a plan by identifier.
func LookupPlan(id PlanID) (Plan, bool) {
	for _, p := range planCatalog {
		if p.ID == id {
			p.Features = append([]string(nil), p.Features...)
			return p, true
		}
	}
	return Plan{}, false
}

// ValidPlan reports whether id belongs to the catalog.
func ValidPlan(id PlanID) bool {
	_, ok := LookupPlan(id)
	return ok
}
