package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/toptag/internal/models"
	"github.com/lib/pq"
)

// latestCountJoin attaches the most recent tag_count row of t.id as lc
const latestCountJoin = `
	LEFT JOIN LATERAL (
		SELECT tc.count
		FROM tag_count tc
		WHERE tc.tag_id = t.id
		ORDER BY tc.count_date DESC
		LIMIT 1
	) lc ON true
`

// TagRepository handles tag database operations
type TagRepository struct {
	db *DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// ResolveByTitle returns the known tags among titles with their latest count.
// Unknown titles are omitted. Result order follows the first occurrence in titles.
func (r *TagRepository) ResolveByTitle(ctx context.Context, titles []string) ([]models.Tag, error) {
	if len(titles) == 0 {
		return []models.Tag{}, nil
	}

	query := `
		SELECT t.id, t.title, lc.count
		FROM tag t` + latestCountJoin + `
		WHERE t.title = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(titles))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byTitle := make(map[string]models.Tag, len(titles))
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		byTitle[tag.Title] = tag
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return orderByTitles(titles, byTitle), nil
}

// FindByTitle looks up one tag. found is false when the title is unknown.
func (r *TagRepository) FindByTitle(ctx context.Context, title string) (models.Tag, bool, error) {
	query := `
		SELECT t.id, t.title, lc.count
		FROM tag t` + latestCountJoin + `
		WHERE t.title = $1
	`

	tag, err := scanTag(r.db.QueryRowContext(ctx, query, title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Tag{}, false, nil
		}
		return models.Tag{}, false, err
	}
	return tag, true, nil
}

// CountHistory returns up to limit count entries of one tag, newest first
func (r *TagRepository) CountHistory(ctx context.Context, tagID int64, limit int) ([]models.TagCount, error) {
	rows, err := r.db.QueryContext(ctx, countHistoryQuery, tagID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag count history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make([]models.TagCount, 0)
	for rows.Next() {
		var c models.TagCount
		if err := rows.Scan(&c.TagID, &c.Count, &c.CountDate); err != nil {
			return nil, fmt.Errorf("failed to scan tag count: %w", err)
		}
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag count history: %w", err)
	}
	return history, nil
}

const countHistoryQuery = `
	SELECT tag_id, count, count_date
	FROM tag_count
	WHERE tag_id = $1
	ORDER BY count_date DESC, id DESC
	LIMIT $2
`

// AllTagPostSets returns every tag id with the ids of the posts carrying it.
// Tags without posts are included with an empty set.
func (r *TagRepository) AllTagPostSets(ctx context.Context) (map[int64][]int64, error) {
	query := `
		SELECT t.id, COALESCE(array_agg(pt.post_id) FILTER (WHERE pt.post_id IS NOT NULL), '{}')
		FROM tag t
		LEFT JOIN post_tag pt ON pt.tag_id = t.id
		GROUP BY t.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag post index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	index := make(map[int64][]int64)
	for rows.Next() {
		var tagID int64
		var posts pq.Int64Array
		if err := rows.Scan(&tagID, &posts); err != nil {
			return nil, fmt.Errorf("failed to scan tag post set: %w", err)
		}
		index[tagID] = []int64(posts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag post index: %w", err)
	}
	return index, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (models.Tag, error) {
	var tag models.Tag
	var count sql.NullInt64
	if err := row.Scan(&tag.ID, &tag.Title, &count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tag, err
		}
		return tag, fmt.Errorf("failed to scan tag: %w", err)
	}
	tag.LatestCount = nullableCount(count)
	return tag, nil
}

func nullableCount(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// orderByTitles returns the tags of byTitle in the order their titles appear in titles
func orderByTitles(titles []string, byTitle map[string]models.Tag) []models.Tag {
	result := make([]models.Tag, 0, len(byTitle))
	for _, title := range titles {
		tag, ok := byTitle[title]
		if !ok {
			continue
		}
		result = append(result, tag)
		delete(byTitle, title)
	}
	return result
}
