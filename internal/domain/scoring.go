package domain

import (
	"fmt"
	"math"
)

// EstimateScore maps a bureau profile onto the 300-850 range. It is the
// single scoring model shared by the backend and the synthetic data generator.
func EstimateScore(b BureauRecord) int {
	score := 720.0

	score -= 55 * float64(min(b.Delinquencies, 5))

	switch {
	case b.CreditUtilization < 0.1:
		score += 25
	case b.CreditUtilization > 0.3:
		score -= (b.CreditUtilization - 0.3) * 320
	}

	if b.HardEnquiries > 1 {
		score -= 12 * float64(b.HardEnquiries-1)
	}

	age := math.Min(float64(b.OldestAccountAge), 240)
	score += age/240*90 - 30

	switch {
	case b.OpenAccounts == 0:
		score -= 70
	case b.OpenAccounts >= 3 && b.OpenAccounts <= 12:
		score += 15
	}

	return clampScore(int(math.Round(score)))
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ReportFactors explains a bureau profile as report line items.
func ReportFactors(b BureauRecord) []ReportFactor {
	return []ReportFactor{
		{
			Name:   "Payment history",
			Value:  pluralize(b.Delinquencies, "missed payment"),
			Impact: grade(b.Delinquencies == 0, b.Delinquencies <= 2),
		},
		{
			Name:   "Credit utilization",
			Value:  fmt.Sprintf("%.0f%%", b.CreditUtilization*100),
			Impact: grade(b.CreditUtilization < 0.3, b.CreditUtilization < 0.5),
		},
		{
			Name:   "Credit age",
			Value:  fmt.Sprintf("%d yrs %d mos", b.OldestAccountAge/12, b.OldestAccountAge%12),
			Impact: grade(b.OldestAccountAge >= 84, b.OldestAccountAge >= 36),
		},
		{
			Name:   "Hard enquiries",
			Value:  pluralize(b.HardEnquiries, "enquiry"),
			Impact: grade(b.HardEnquiries <= 1, b.HardEnquiries <= 3),
		},
		{
			Name:   "Open accounts",
			Value:  pluralize(b.OpenAccounts, "account"),
			Impact: grade(b.OpenAccounts >= 3 && b.OpenAccounts <= 12, b.OpenAccounts > 0),
		},
	}
}

func grade(positive, neutral bool) string {
	switch {
	case positive:
		return ImpactPositive
	case neutral:
		return ImpactNeutral
	default:
		return ImpactNegative
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if noun == "enquiry" {
		return fmt.Sprintf("%d enquiries", n)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
