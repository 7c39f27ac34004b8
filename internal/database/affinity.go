package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/benvon/toptag/internal/models"
	"github.com/lib/pq"
)

// AffinityRepository stores the materialized tag affinity matrix
type AffinityRepository struct {
	db *DB
}

// NewAffinityRepository creates a new affinity repository
func NewAffinityRepository(db *DB) *AffinityRepository {
	return &AffinityRepository{db: db}
}

// Clear removes every stored entry
func (r *AffinityRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE TABLE tag_affinity`); err != nil {
		return fmt.Errorf("failed to truncate tag_affinity: %w", err)
	}
	return nil
}

// SaveBatch copies entries into the store in a single transaction
func (r *AffinityRepository) SaveBatch(ctx context.Context, entries []models.AffinityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("tag_affinity", "tag_a", "tag_b", "score"))
		if err != nil {
			return fmt.Errorf("failed to prepare copy: %w", err)
		}

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.TagA, e.TagB, e.Score.String()); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("failed to copy entry (%d,%d): %w", e.TagA, e.TagB, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to flush copy: %w", err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("failed to close copy: %w", err)
		}
		return nil
	})
}

// QueryBySource returns candidates related to tagIDs ordered by score descending, then title.
// Only entries whose lower-id side is a source are matched unless symmetric is set, in which
// case entries with a source on the higher-id side yield their lower-id tag as well.
func (r *AffinityRepository) QueryBySource(ctx context.Context, tagIDs []int64, limit int, symmetric bool) ([]models.AffinityCandidate, error) {
	if len(tagIDs) == 0 || limit <= 0 {
		return []models.AffinityCandidate{}, nil
	}

	rows, err := r.db.QueryContext(ctx, querySourceSQL(symmetric), pq.Array(tagIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query affinity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]models.AffinityCandidate, 0, limit)
	for rows.Next() {
		var c models.AffinityCandidate
		var count sql.NullInt64
		if err := rows.Scan(&c.Title, &c.Score, &count); err != nil {
			return nil, fmt.Errorf("failed to scan affinity candidate: %w", err)
		}
		c.Count = nullableCount(count)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate affinity candidates: %w", err)
	}
	return result, nil
}

// querySourceSQL builds the candidate query. $1 is the source id array, $2 the limit.
func querySourceSQL(symmetric bool) string {
	candidates := `SELECT a.tag_b AS candidate, a.score FROM tag_affinity a WHERE a.tag_a = ANY($1)`
	if symmetric {
		candidates += `
			UNION ALL
			SELECT a.tag_a AS candidate, a.score FROM tag_affinity a WHERE a.tag_b = ANY($1)`
	}

	return `
		WITH candidates AS (
			` + candidates + `
		)
		SELECT t.title, c.score, max(tc.count)
		FROM candidates c
		JOIN tag t ON t.id = c.candidate
		LEFT JOIN tag_count tc ON tc.tag_id = c.candidate
		GROUP BY t.title, c.score
		ORDER BY c.score DESC, t.title ASC
		LIMIT $2
	`
}
