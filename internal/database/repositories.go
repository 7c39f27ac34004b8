package database

import (
	"context"

	"github.com/benvon/toptag/internal/models"
)

// TagRepositoryInterface defines the interface for tag repository operations
// This interface enables better testability by allowing mock implementations
type TagRepositoryInterface interface {
	ResolveByTitle(ctx context.Context, titles []string) ([]models.Tag, error)
	FindByTitle(ctx context.Context, title string) (models.Tag, bool, error)
	CountHistory(ctx context.Context, tagID int64, limit int) ([]models.TagCount, error)
	AllTagPostSets(ctx context.Context) (map[int64][]int64, error)
}

// AffinityRepositoryInterface defines the interface for affinity store operations
type AffinityRepositoryInterface interface {
	Clear(ctx context.Context) error
	SaveBatch(ctx context.Context, entries []models.AffinityEntry) error
	QueryBySource(ctx context.Context, tagIDs []int64, limit int, symmetric bool) ([]models.AffinityCandidate, error)
}

// CategoryRepositoryInterface defines the interface for category catalog operations
type CategoryRepositoryInterface interface {
	FindRelevant(ctx context.Context, term string) ([]models.CategoryTagRow, error)
	ListTags(ctx context.Context, title string) ([]models.CategoryTagRow, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	Save(ctx context.Context, items []models.CategorizedTag) (SaveCategoriesResult, error)
	Clear(ctx context.Context) error
}

// Ensure concrete types implement the interfaces
var (
	_ TagRepositoryInterface      = (*TagRepository)(nil)
	_ AffinityRepositoryInterface = (*AffinityRepository)(nil)
	_ CategoryRepositoryInterface = (*CategoryRepository)(nil)
)
