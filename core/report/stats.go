package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mverdeau/geodispatch/core/model"
)

// Summary aggregates variance statistics over a set of reports.
type Summary struct {
	Count           int     `json:"count"`
	Warnings        int     `json:"warnings"`
	MeanVarianceMin float64 `json:"mean_variance_minutes"`
	StdVarianceMin  float64 `json:"std_variance_minutes"`
	P50VarianceMin  float64 `json:"p50_variance_minutes"`
	P90VarianceMin  float64 `json:"p90_variance_minutes"`
	TotalDistanceKm float64 `json:"total_distance_km"`
}

// Summarize computes fleet-level variance statistics. An empty input yields a
// zero Summary.
func Summarize(reports []model.Report) Summary {
	s := Summary{Count: len(reports)}
	if len(reports) == 0 {
		return s
	}
	variances := make([]float64, 0, len(reports))
	for _, r := range reports {
		variances = append(variances, r.Variance.Minutes())
		s.TotalDistanceKm += r.DistanceKm
		if r.Warning {
			s.Warnings++
		}
	}
	s.MeanVarianceMin, s.StdVarianceMin = stat.MeanStdDev(variances, nil)
	if len(variances) == 1 {
		s.StdVarianceMin = 0
	}
	sort.Float64s(variances)
	s.P50VarianceMin = stat.Quantile(0.5, stat.Empirical, variances, nil)
	s.P90VarianceMin = stat.Quantile(0.9, stat.Empirical, variances, nil)
	return s
}
