package domain

import "time"

// Score bounds of the bureau scale.
const (
	MinScore = 300
	MaxScore = 850
)

// ScoreInRange reports whether score lies on the bureau scale.
func ScoreInRange(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// ScoreBand buckets a score into the label shown on the report.
func ScoreBand(score int) string {
	switch {
	case score >= 800:
		return "Excellent"
	case score >= 740:
		return "Very Good"
	case score >= 670:
		return "Good"
	case score >= 580:
		return "Fair"
	default:
		return "Poor"
	}
}

// Factor impact values.
const (
	ImpactPositive = "positive"
	ImpactNeutral  = "neutral"
	ImpactNegative = "negative"
)

// ReportFactor explains one input to the score.
type ReportFactor struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Impact string `json:"impact"`
}

// Report is the downloadable credit report. It is session-only and never persisted.
type Report struct {
	ID          string         `json:"reportId"`
	UserID      string         `json:"userId"`
	Score       int            `json:"score"`
	Band        string         `json:"band"`
	PlanID      PlanID         `json:"planId"`
	Factors     []ReportFactor `json:"factors"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Clone returns a copy with its own factor slice.
func (r Report) Clone() Report {
	out := r
	out.Factors = append([]ReportFactor(nil), r.Factors...)
	return out
}
