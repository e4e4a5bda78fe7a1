package georef

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of correction magnitudes over the
// sampled records.
type Summary struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	Max     float64 `json:"max"`
}

// Summarize computes a Summary from samples. An empty input yields a zero
// Summary.
func Summarize(samples []Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	mags := make([]float64, len(samples))
	for i, s := range samples {
		mags[i] = s.Magnitude
	}
	slices.Sort(mags)

	mean, std := stat.MeanStdDev(mags, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Samples: len(mags),
		Mean:    mean,
		StdDev:  std,
		P50:     stat.Quantile(0.5, stat.Empirical, mags, nil),
		P95:     stat.Quantile(0.95, stat.Empirical, mags, nil),
		Max:     mags[len(mags)-1],
	}
}

func (s Summary) String() string {
	if s.Samples == 0 {
		return "no corrections sampled"
	}
	return fmt.Sprintf("correction |n| over %d samples: mean %.4f m, std %.4f m, p50 %.4f m, p95 %.4f m, max %.4f m",
		s.Samples, s.Mean, s.StdDev, s.P50, s.P95, s.Max)
}
