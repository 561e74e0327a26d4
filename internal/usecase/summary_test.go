package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naka-gawa/activity-stats/internal/domain"
)

func TestSummarize(t *testing.T) {
	testCases := []struct {
		name     string
		report   domain.ActivityReport
		expected Summary
	}{
		{
			name: "mixed outcomes",
			report: domain.ActivityReport{
				"a": domain.CountOf(2),
				"b": domain.CountOf(4),
				"c": domain.CountOf(9),
				"d": domain.NotJSONOutcome(),
				"e": domain.FailureOutcome(),
			},
			expected: Summary{Targets: 5, OK: 3, Unknown: 1, Failed: 1, Total: 15, Mean: 5, Median: 4, Max: 9},
		},
		{
			name: "no counts leaves statistics at zero",
			report: domain.ActivityReport{
				"d": domain.NotJSONOutcome(),
				"e": domain.FailureOutcome(),
			},
			expected: Summary{Targets: 2, Unknown: 1, Failed: 1},
		},
		{
			name:     "empty report",
			report:   domain.ActivityReport{},
			expected: Summary{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Summarize(tc.report))
		})
	}
}
