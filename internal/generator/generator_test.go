package generator

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/service"
)

var panPattern = regexp.MustCompile(`^[A-Z]{3}P[A-Z][0-9]{4}[A-Z]$`)

func generate(t *testing.T, cfg Config) Dataset {
	t.Helper()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ds, err := New(cfg).WithClock(now).Generate(context.Background())
	require.NoError(t, err)
	return ds
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	cfg := Config{NumApplicants: 50, Seed: 7}
	a := generate(t, cfg)
	b := generate(t, cfg)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different datasets (-a +b):\n%s", diff)
	}
}

func TestGenerateProducesValidApplicants(t *testing.T) {
	ds := generate(t, Config{NumApplicants: 200, BureauCoverage: 1, Seed: 3})
	require.Len(t, ds.Applicants, 200)

	seen := map[string]bool{}
	for _, a := range ds.Applicants {
		assert.Regexp(t, panPattern, a.PAN)
		assert.False(t, seen[a.PAN], "duplicate PAN %s", a.PAN)
		seen[a.PAN] = true
		assert.Len(t, a.Mobile, 10)
		require.NotNil(t, a.Bureau)
		assert.True(t, domain.ScoreInRange(a.Bureau.Score))
		assert.GreaterOrEqual(t, a.Bureau.CreditUtilization, 0.0)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{NumApplicants: 10, Seed: 1}).Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteDataset(t *testing.T) {
	ds := generate(t, Config{NumApplicants: 3, Seed: 11})
	path, err := WriteDataset(ds, t.TempDir())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back []service.ApplicantInput
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Len(t, back, 3)
	assert.Equal(t, ds.Applicants[0].PAN, back[0].PAN)
}

func TestSummarizeCountsBands(t *testing.T) {
	ds := Dataset{Applicants: []service.ApplicantInput{
		{PAN: "AAAPA0001A", Bureau: &service.BureauInput{Score: 810}},
		{PAN: "AAAPA0002A", Bureau: &service.BureauInput{Score: 745}},
		{PAN: "AAAPA0003A", Bureau: &service.BureauInput{Score: 500}},
		{PAN: "AAAPA0004A"},
	}}

	s := Summarize(ds)
	assert.Equal(t, 4, s.Applicants)
	assert.Equal(t, 1, s.NoBureau)
	want := []BandCount{
		{Band: "Excellent", Count: 1},
		{Band: "Very Good", Count: 1},
		{Band: "Good", Count: 0},
		{Band: "Fair", Count: 0},
		{Band: "Poor", Count: 1},
	}
	if diff := cmp.Diff(want, s.Bands); diff != "" {
		t.Fatalf("bands mismatch (-want +got):\n%s", diff)
	}

	var buf strings.Builder
	require.NoError(t, s.Print(&buf))
	assert.Contains(t, buf.String(), "no bureau record")
}
