// Package resilience wraps slow read collaborators in circuit breakers so that a failing
// database fails fast instead of piling up requests.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/toptag/internal/affinity"
	"github.com/benvon/toptag/internal/metrics"
	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/recommend"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig configures a circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // requests allowed through while half-open
	Interval         time.Duration // closed-state counter reset period, 0 never resets
	Timeout          time.Duration // open-state duration before probing
	FailureThreshold uint32        // consecutive failures that trip the breaker
}

// DefaultBreakerConfig returns the settings used for database reads
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewBreaker creates a circuit breaker that reports state changes to logs and metrics
func NewBreaker[T any](cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation is not a backend failure
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			logger.Warn("circuit_breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// TagPostIndex guards an affinity.TagPostIndex with a circuit breaker
type TagPostIndex struct {
	next    affinity.TagPostIndex
	breaker *gobreaker.CircuitBreaker[map[int64][]int64]
}

// NewTagPostIndex wraps next
func NewTagPostIndex(next affinity.TagPostIndex, cfg BreakerConfig, logger *zap.Logger) *TagPostIndex {
	return &TagPostIndex{next: next, breaker: NewBreaker[map[int64][]int64](cfg, logger)}
}

// AllTagPostSets reads the index unless the breaker is open
func (i *TagPostIndex) AllTagPostSets(ctx context.Context) (map[int64][]int64, error) {
	return i.breaker.Execute(func() (map[int64][]int64, error) {
		return i.next.AllTagPostSets(ctx)
	})
}

// State reports the breaker state
func (i *TagPostIndex) State() string {
	return i.breaker.State().String()
}

// CategoryCatalog guards a recommend.CategoryCatalog with a circuit breaker
type CategoryCatalog struct {
	next    recommend.CategoryCatalog
	breaker *gobreaker.CircuitBreaker[[]models.CategoryTagRow]
}

// NewCategoryCatalog wraps next
func NewCategoryCatalog(next recommend.CategoryCatalog, cfg BreakerConfig, logger *zap.Logger) *CategoryCatalog {
	return &CategoryCatalog{next: next, breaker: NewBreaker[[]models.CategoryTagRow](cfg, logger)}
}

// FindRelevant queries the catalog unless the breaker is open
func (c *CategoryCatalog) FindRelevant(ctx context.Context, term string) ([]models.CategoryTagRow, error) {
	return c.breaker.Execute(func() ([]models.CategoryTagRow, error) {
		return c.next.FindRelevant(ctx, term)
	})
}

// State reports the breaker state
func (c *CategoryCatalog) State() string {
	return c.breaker.State().String()
}

// AffinityReader guards a recommend.AffinityReader with a circuit breaker
type AffinityReader struct {
	next    recommend.AffinityReader
	breaker *gobreaker.CircuitBreaker[[]models.AffinityCandidate]
}

// NewAffinityReader wraps next
func NewAffinityReader(next recommend.AffinityReader, cfg BreakerConfig, logger *zap.Logger) *AffinityReader {
	return &AffinityReader{next: next, breaker: NewBreaker[[]models.AffinityCandidate](cfg, logger)}
}

// QueryBySource queries the affinity store unless the breaker is open
func (a *AffinityReader) QueryBySource(ctx context.Context, tagIDs []int64, limit int, symmetric bool) ([]models.AffinityCandidate, error) {
	return a.breaker.Execute(func() ([]models.AffinityCandidate, error) {
		return a.next.QueryBySource(ctx, tagIDs, limit, symmetric)
	})
}

// State reports the breaker state
func (a *AffinityReader) State() string {
	return a.breaker.State().String()
}
