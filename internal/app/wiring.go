// Package app assembles the recommendation and rebuild components shared by the toptag binaries.
package app

import (
	"github.com/benvon/toptag/internal/affinity"
	"github.com/benvon/toptag/internal/config"
	"github.com/benvon/toptag/internal/database"
	"github.com/benvon/toptag/internal/recommend"
	"github.com/benvon/toptag/internal/resilience"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Repositories groups the postgres repositories
type Repositories struct {
	Tags       *database.TagRepository
	Affinity   *database.AffinityRepository
	Categories *database.CategoryRepository
}

// NewRepositories creates every repository on db
func NewRepositories(db *database.DB) Repositories {
	return Repositories{
		Tags:       database.NewTagRepository(db),
		Affinity:   database.NewAffinityRepository(db),
		Categories: database.NewCategoryRepository(db),
	}
}

// NewRecommendService registers both strategies. Store reads go through circuit breakers.
func NewRecommendService(repos Repositories, cfg *config.Config, logger *zap.Logger) *recommend.Service {
	affinityReader := resilience.NewAffinityReader(repos.Affinity, resilience.DefaultBreakerConfig("affinity_store"), logger)
	catalog := resilience.NewCategoryCatalog(repos.Categories, resilience.DefaultBreakerConfig("category_catalog"), logger)

	return recommend.NewService(logger,
		recommend.NewAffinityRanked(repos.Tags, affinityReader,
			recommend.WithSymmetricLookup(cfg.Affinity.SymmetricLookup),
		),
		recommend.NewCategoryRanked(catalog, logger,
			recommend.WithMaxCategories(cfg.Recommend.MaxCategories),
			recommend.WithMaxTags(cfg.Recommend.MaxTagsInPost),
		),
	)
}

// NewBuilder creates the affinity matrix builder. A redis client adds the cross-process lock.
func NewBuilder(repos Repositories, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) *affinity.Builder {
	index := resilience.NewTagPostIndex(repos.Tags, resilience.DefaultBreakerConfig("tag_post_index"), logger)

	opts := []affinity.BuilderOption{
		affinity.WithBatchSize(cfg.Affinity.BatchSize),
		affinity.WithScoreScale(cfg.Affinity.ScoreScale),
	}
	if redisClient != nil {
		opts = append(opts, affinity.WithLocker(affinity.NewRedisLocker(redisClient, affinity.DefaultLockKey, cfg.Affinity.LockTTL)))
	}
	return affinity.NewBuilder(index, repos.Affinity, logger, opts...)
}
