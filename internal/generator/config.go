package generator

// Config drives the synthetic data generator.
type Config struct {
	NumApplicants int
	// BureauCoverage is the share of applicants that get a bureau record.
	BureauCoverage float64
	// DelinquencyRate is the chance of each additional missed payment.
	DelinquencyRate float64
	Seed            int64
}

// DefaultConfig returns baseline settings for a demo dataset.
func DefaultConfig() Config {
	return Config{
		NumApplicants:   5000,
		BureauCoverage:  0.8,
		DelinquencyRate: 0.2,
		Seed:            42,
	}
}
