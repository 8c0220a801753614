package generator

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vanshika/creditscore/internal/domain"
)

// bandOrder lists score bands from best to worst.
var bandOrder = []string{"Excellent", "Very Good", "Good", "Fair", "Poor"}

// BandCount is the number of applicants whose bureau score falls in Band.
type BandCount struct {
	Band  string
	Count int
}

// Summary describes the score distribution of a dataset.
type Summary struct {
	Applicants int
	NoBureau   int
	Bands      []BandCount
}

// Summarize buckets every applicant with a bureau record by score band.
func Summarize(dataset Dataset) Summary {
	counts := make(map[string]int, len(bandOrder))
	s := Summary{Applicants: len(dataset.Applicants)}
	for _, a := range dataset.Applicants {
		if a.Bureau == nil {
			s.NoBureau++
			continue
		}
		counts[domain.ScoreBand(a.Bureau.Score)]++
	}
	for _, band := range bandOrder {
		s.Bands = append(s.Bands, BandCount{Band: band, Count: counts[band]})
	}
	return s
}

// Print renders the summary as an aligned table.
func (s Summary) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "applicants\t%d\t\n", s.Applicants)
	for _, b := range s.Bands {
		fmt.Fprintf(w, "%s\t%d\t\n", b.Band, b.Count)
	}
	fmt.Fprintf(w, "no bureau record\t%d\t\n", s.NoBureau)
	return w.Flush()
}
