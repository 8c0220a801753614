package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/service"
)

// Dataset contains the generated applicants.
type Dataset struct {
	Applicants []service.ApplicantInput `json:"applicants"`
}

// Generator produces synthetic bureau data aligned with the ingestion schema.
type Generator struct {
	cfg           Config
	rand          *rand.Rand
	nameFragments nameFragments
	seenPAN       map[string]struct{}
	now           time.Time
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumApplicants <= 0 {
		cfg.NumApplicants = def.NumApplicants
	}
	if cfg.BureauCoverage <= 0 {
		cfg.BureauCoverage = def.BureauCoverage
	}
	if cfg.DelinquencyRate <= 0 {
		cfg.DelinquencyRate = def.DelinquencyRate
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:           cfg,
		rand:          rand.New(rand.NewSource(cfg.Seed)),
		nameFragments: defaultNameFragments(),
		seenPAN:       map[string]struct{}{},
		now:           time.Now().UTC().Truncate(time.Second),
	}
}

// WithClock pins the reference time used for timestamps.
func (g *Generator) WithClock(now time.Time) *Generator {
	g.now = now.UTC()
	return g
}

// Generate synthesises applicants. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	applicants := make([]service.ApplicantInput, g.cfg.NumApplicants)

	for i := range applicants {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		createdAt := g.now.Add(-time.Duration(g.rand.Intn(365*24)) * time.Hour)
		updatedAt := createdAt.Add(time.Duration(g.rand.Intn(72)) * time.Hour)
		dob := time.Date(1960+g.rand.Intn(40), time.Month(1+g.rand.Intn(12)), 1+g.rand.Intn(28), 0, 0, 0, 0, time.UTC)

		in := service.ApplicantInput{
			PAN:         g.uniquePAN(),
			FullName:    g.randomFullName(),
			Mobile:      g.randomMobile(),
			DateOfBirth: &dob,
			CreatedAt:   &createdAt,
			UpdatedAt:   &updatedAt,
		}
		if g.rand.Float64() < g.cfg.BureauCoverage {
			in.Bureau = g.randomBureau(dob)
		}
		applicants[i] = in
	}

	return Dataset{Applicants: applicants}, nil
}

func (g *Generator) randomBureau(dob time.Time) *service.BureauInput {
	adultMonths := int(g.now.Sub(dob).Hours()/24/30) - 18*12
	if adultMonths < 1 {
		adultMonths = 1
	}

	delinquencies := 0
	for delinquencies < 5 && g.rand.Float64() < g.cfg.DelinquencyRate {
		delinquencies++
	}

	record := domain.BureauRecord{
		OpenAccounts:      g.rand.Intn(14),
		CreditUtilization: math.Round(math.Min(g.rand.ExpFloat64()*0.3, 1.2)*100) / 100,
		Delinquencies:     delinquencies,
		HardEnquiries:     g.rand.Intn(7),
		OldestAccountAge:  g.rand.Intn(min(adultMonths, 300) + 1),
	}
	reportedAt := g.now.Add(-time.Duration(g.rand.Intn(30*24)) * time.Hour)

	return &service.BureauInput{
		Score:             domain.EstimateScore(record),
		OpenAccounts:      record.OpenAccounts,
		CreditUtilization: record.CreditUtilization,
		Delinquencies:     record.Delinquencies,
		HardEnquiries:     record.HardEnquiries,
		OldestAccountAge:  record.OldestAccountAge,
		ReportedAt:        &reportedAt,
	}
}

// uniquePAN returns a PAN shaped id (five letters, four digits, one letter).
// The fourth letter is P, the holder-type code for individuals.
func (g *Generator) uniquePAN() string {
	for {
		pan := fmt.Sprintf("%c%c%cP%c%04d%c",
			g.letter(), g.letter(), g.letter(), g.letter(), g.rand.Intn(10000), g.letter())
		if _, ok := g.seenPAN[pan]; !ok {
			g.seenPAN[pan] = struct{}{}
			return pan
		}
	}
}

func (g *Generator) letter() rune {
	return rune('A' + g.rand.Intn(26))
}

func (g *Generator) randomFullName() string {
	return fmt.Sprintf("%s %s", g.nameFragments.first[g.rand.Intn(len(g.nameFragments.first))],
		g.nameFragments.last[g.rand.Intn(len(g.nameFragments.last))])
}

func (g *Generator) randomMobile() string {
	return fmt.Sprintf("%d%09d", 6+g.rand.Intn(4), g.rand.Intn(1_000_000_000))
}

type nameFragments struct {
	first []string
	last  []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first: []string{"Aarav", "Vanshika", "Priya", "Rohan", "Ananya", "Kabir", "Isha", "Arjun", "Meera", "Vikram", "Sneha", "Aditya", "Nisha", "Rahul", "Zara"},
		last:  []string{"Sharma", "Patel", "Iyer", "Reddy", "Gupta", "Khan", "Nair", "Singh", "Das", "Mehta", "Rao", "Joshi"},
	}
}
