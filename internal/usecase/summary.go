package usecase

import (
	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/activity-stats/internal/domain"
)

// Summary condenses an ActivityReport into per-outcome counts and
// statistics over the sources that answered with a collection.
type Summary struct {
	Targets int     `json:"targets"`
	OK      int     `json:"ok"`
	Unknown int     `json:"unknown"`
	Failed  int     `json:"failed"`
	Total   float64 `json:"total"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Max     float64 `json:"max"`
}

// Summarize computes a Summary. Statistics are zero when no target
// produced a count.
func Summarize(report domain.ActivityReport) Summary {
	s := Summary{Targets: len(report)}
	for _, o := range report {
		switch o.Kind {
		case domain.Count:
			s.OK++
		case domain.NotJSON:
			s.Unknown++
		default:
			s.Failed++
		}
	}

	data := stats.LoadRawData(report.Counts())
	if data.Len() == 0 {
		return s
	}
	// Errors are only returned for empty input, handled above.
	s.Total, _ = stats.Sum(data)
	s.Mean, _ = stats.Mean(data)
	s.Median, _ = stats.Median(data)
	s.Max, _ = stats.Max(data)
	return s
}
