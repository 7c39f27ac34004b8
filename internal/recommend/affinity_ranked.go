package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/benvon/toptag/internal/models"
)

// TagResolver resolves tag titles to known tags. Unknown titles are omitted from the result.
type TagResolver interface {
	ResolveByTitle(ctx context.Context, titles []string) ([]models.Tag, error)
}

// AffinityReader reads stored affinity candidates for a set of source tags,
// ordered by score descending.
type AffinityReader interface {
	QueryBySource(ctx context.Context, tagIDs []int64, limit int, symmetric bool) ([]models.AffinityCandidate, error)
}

// AffinityRanked recommends tags that co-occur with the seeds, highest score first
type AffinityRanked struct {
	tags      TagResolver
	affinity  AffinityReader
	symmetric bool
}

// AffinityOption configures an AffinityRanked strategy
type AffinityOption func(*AffinityRanked)

// WithSymmetricLookup also matches seeds stored on the higher-id side of an entry
func WithSymmetricLookup(enabled bool) AffinityOption {
	return func(a *AffinityRanked) {
		a.symmetric = enabled
	}
}

// NewAffinityRanked creates the affinity-ranked strategy
func NewAffinityRanked(tags TagResolver, affinity AffinityReader, opts ...AffinityOption) *AffinityRanked {
	a := &AffinityRanked{tags: tags, affinity: affinity}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns KindAffinity
func (a *AffinityRanked) Name() Kind {
	return KindAffinity
}

// Recommend returns at most MaxRecommendations candidates ordered by score descending.
// Seeds that resolve to no known tag yield an empty, non-nil result.
func (a *AffinityRanked) Recommend(ctx context.Context, seeds []string) ([]models.Recommendation, error) {
	result := []models.Recommendation{}
	if len(seeds) == 0 {
		return result, nil
	}

	known, err := a.tags.ResolveByTitle(ctx, seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve seed tags: %w", err)
	}
	if len(known) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(known))
	for _, t := range known {
		ids = append(ids, t.ID)
	}

	candidates, err := a.affinity.QueryBySource(ctx, ids, MaxRecommendations, a.symmetric)
	if err != nil {
		return nil, fmt.Errorf("failed to query affinity store: %w", err)
	}

	// The store orders rows already; keep the output contract independent of it.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score.GreaterThan(candidates[j].Score)
	})
	if len(candidates) > MaxRecommendations {
		candidates = candidates[:MaxRecommendations]
	}

	for _, c := range candidates {
		score := c.Score
		result = append(result, models.Recommendation{
			Tag:   c.Title,
			Score: &score,
			Count: c.Count,
		})
	}
	return result, nil
}
