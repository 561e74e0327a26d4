// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/activity-stats/internal/domain"
	"github.com/naka-gawa/activity-stats/internal/gateway"
)

// Aggregator is the use case for gathering activity across all targets.
// It orchestrates the concurrent fetches and merges their outcomes.
type Aggregator struct {
	fetcher gateway.Fetcher
	logger  *zap.Logger
	timeout time.Duration
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithFetchTimeout bounds every fetch unit. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{fetcher: fetcher, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// unitResult is what one fetch unit hands back to the merge step.
type unitResult struct {
	name    string
	outcome domain.Outcome
}

// GatherActivity queries every target in the registry concurrently and
// returns one entry per target. Individual failures are recorded in the
// report and never returned; the call completes once every unit has.
func (a *Aggregator) GatherActivity(ctx context.Context, registry *domain.Registry) domain.ActivityReport {
	targets := registry.Targets()
	results := make([]unitResult, len(targets))
	start := time.Now()

	// Units never return an error, so the group never cancels a sibling.
	var eg errgroup.Group
	for i, target := range targets {
		eg.Go(func() error {
			results[i] = unitResult{name: target.Name, outcome: a.fetchOne(ctx, target)}
			return nil
		})
	}
	_ = eg.Wait()

	report := make(domain.ActivityReport, len(results))
	for _, r := range results {
		report[r.name] = r.outcome
	}

	a.logger.Info("activity gathered",
		zap.Int("targets", len(targets)),
		zap.Strings("failed", report.Failed()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report
}

// fetchOne is a single fetch unit: one GET, one decode, one classification.
func (a *Aggregator) fetchOne(ctx context.Context, target domain.Target) domain.Outcome {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	n, err := a.fetcher.FetchActivity(ctx, target)
	outcome := Classify(n, err)
	switch outcome.Kind {
	case domain.NotJSON:
		a.logger.Warn("upstream did not answer with json",
			zap.String("target", target.Name), zap.String("url", target.URL), zap.Error(err))
	case domain.Failure:
		a.logger.Error("fetch failed",
			zap.String("target", target.Name), zap.String("url", target.URL), zap.Error(err))
	}
	return outcome
}

// Classify converts a fetch result into the tagged outcome recorded in the report.
func Classify(n int, err error) domain.Outcome {
	switch {
	case err == nil:
		return domain.CountOf(n)
	case errors.Is(err, gateway.ErrNotJSON):
		return domain.NotJSONOutcome()
	default:
		return domain.FailureOutcome()
	}
}
