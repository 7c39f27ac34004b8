package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/toptag/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultMaxCategories is the number of distinct seed terms searched
	DefaultMaxCategories = 10
	// DefaultMaxTagsInPost is the number of tags kept after ranking by sort order
	DefaultMaxTagsInPost = 30
)

// ErrDuplicateCategory signals that a category title reappeared non-contiguously in one seed's rows
var ErrDuplicateCategory = errors.New("duplicate category in catalog results")

// CategoryCatalog finds catalog rows whose category title contains a term, ordered by
// category title then sort order.
type CategoryCatalog interface {
	FindRelevant(ctx context.Context, term string) ([]models.CategoryTagRow, error)
}

// CategoryRanked recommends curated tags from categories matching the seeds
type CategoryRanked struct {
	catalog       CategoryCatalog
	maxCategories int
	maxTags       int
	logger        *zap.Logger
}

// CategoryOption configures a CategoryRanked strategy
type CategoryOption func(*CategoryRanked)

// WithMaxCategories limits how many distinct seeds are searched
func WithMaxCategories(n int) CategoryOption {
	return func(c *CategoryRanked) {
		if n > 0 {
			c.maxCategories = n
		}
	}
}

// WithMaxTags limits how many rows survive the sort-order cut
func WithMaxTags(n int) CategoryOption {
	return func(c *CategoryRanked) {
		if n > 0 {
			c.maxTags = min(n, MaxRecommendations)
		}
	}
}

// NewCategoryRanked creates the category-ranked strategy
func NewCategoryRanked(catalog CategoryCatalog, logger *zap.Logger, opts ...CategoryOption) *CategoryRanked {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CategoryRanked{
		catalog:       catalog,
		maxCategories: DefaultMaxCategories,
		maxTags:       DefaultMaxTagsInPost,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns KindCategory
func (c *CategoryRanked) Name() Kind {
	return KindCategory
}

// categoryGroup holds one category's rows in catalog order
type categoryGroup struct {
	title string
	rows  []models.CategoryTagRow
}

// Recommend selects the lowest-sort-order rows across matching categories and
// returns them grouped by category title. A seed whose rows contain a duplicate
// category is dropped; a catalog error fails the call.
func (c *CategoryRanked) Recommend(ctx context.Context, seeds []string) ([]models.Recommendation, error) {
	var combined []models.CategoryTagRow

	for _, term := range distinctPrefix(seeds, c.maxCategories) {
		rows, err := c.catalog.FindRelevant(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("failed to find categories for %q: %w", term, err)
		}

		groups, err := groupByCategory(rows)
		if err != nil {
			c.logger.Warn("category_seed_dropped",
				zap.String("term", term),
				zap.Error(err),
			)
			continue
		}
		for _, g := range groups {
			combined = append(combined, g.rows...)
		}
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].SortOrder < combined[j].SortOrder
	})
	if len(combined) > c.maxTags {
		combined = combined[:c.maxTags]
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return compareCategoryTitles(combined[i].Category, combined[j].Category) < 0
	})

	result := make([]models.Recommendation, 0, len(combined))
	for _, row := range combined {
		order := row.SortOrder
		result = append(result, models.Recommendation{
			Tag:       row.Tag,
			Category:  row.Category,
			SortOrder: &order,
			Count:     row.Count,
		})
	}
	return result, nil
}

// compareCategoryTitles orders titles case-insensitively, falling back to byte order
// for titles that differ only in case. The catalog queries use the same ordering.
func compareCategoryTitles(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// groupByCategory splits rows into consecutive runs per category title
func groupByCategory(rows []models.CategoryTagRow) ([]categoryGroup, error) {
	var groups []categoryGroup
	seen := make(map[string]struct{})
	for _, row := range rows {
		if n := len(groups); n > 0 && groups[n-1].title == row.Category {
			groups[n-1].rows = append(groups[n-1].rows, row)
			continue
		}
		if _, dup := seen[row.Category]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, row.Category)
		}
		seen[row.Category] = struct{}{}
		groups = append(groups, categoryGroup{title: row.Category, rows: []models.CategoryTagRow{row}})
	}
	return groups, nil
}

// distinctPrefix returns the first n distinct values of seeds in order
func distinctPrefix(seeds []string, n int) []string {
	out := make([]string, 0, min(len(seeds), n))
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if len(out) == n {
			break
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
