package recommend

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/benvon/toptag/internal/metrics"
	"github.com/benvon/toptag/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Service dispatches recommendation requests to registered strategies
type Service struct {
	strategies map[Kind]Strategy
	logger     *zap.Logger
}

// NewService creates a service with the given strategies registered by name
func NewService(logger *zap.Logger, strategies ...Strategy) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		strategies: make(map[Kind]Strategy, len(strategies)),
		logger:     logger,
	}
	for _, st := range strategies {
		s.strategies[st.Name()] = st
	}
	return s
}

// Recommend normalises seeds and runs the strategy for kind. The result never exceeds
// MaxRecommendations entries and is never nil on success.
func (s *Service) Recommend(ctx context.Context, seeds []string, kind Kind) ([]models.Recommendation, error) {
	strategy, ok := s.strategies[kind]
	if !ok {
		metrics.RecommendationsTotal.WithLabelValues(string(kind), metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}

	normalized := models.NormalizeTagTitles(seeds)

	ctx, span := otel.Tracer("github.com/benvon/toptag/internal/recommend").Start(ctx, "recommend."+string(kind))
	defer span.End()
	span.SetAttributes(attribute.Int("recommend.seeds", len(normalized)))

	start := time.Now()
	result, err := strategy.Recommend(ctx, normalized)
	metrics.RecommendationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recommend failed")
		metrics.RecommendationsTotal.WithLabelValues(string(kind), metrics.OutcomeFailure).Inc()
		s.logger.Error("recommendation_failed",
			zap.String("strategy", string(kind)),
			zap.Int("seeds", len(normalized)),
			zap.Error(err),
		)
		return nil, err
	}

	if result == nil {
		result = []models.Recommendation{}
	}
	if len(result) > MaxRecommendations {
		result = result[:MaxRecommendations]
	}
	span.SetAttributes(attribute.Int("recommend.results", len(result)))
	metrics.RecommendationsTotal.WithLabelValues(string(kind), metrics.OutcomeSuccess).Inc()
	s.logger.Debug("recommendation_served",
		zap.String("strategy", string(kind)),
		zap.Int("seeds", len(normalized)),
		zap.Int("results", len(result)),
	)
	return result, nil
}

// Strategies returns the registered strategy kinds in name order
func (s *Service) Strategies() []Kind {
	kinds := make([]Kind, 0, len(s.strategies))
	for k := range s.strategies {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
