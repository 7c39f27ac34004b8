package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/toptag/internal/models"
)

// SaveCategoriesResult reports which catalog entries were stored
type SaveCategoriesResult struct {
	Saved       int      `json:"saved"`
	SkippedTags []string `json:"skipped_tags"`
}

// CategoryRepository handles the curated category catalog
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// findRelevantQuery orders categories like compareCategoryTitles in the recommend package
var findRelevantQuery = `
		SELECT cat.title, t.title, lc.count, ct.sort_order
		FROM category cat
		JOIN category_tag ct ON ct.category_id = cat.id
		JOIN tag t ON t.id = ct.tag_id` + latestCountJoin + `
		WHERE cat.title ILIKE $1
		ORDER BY lower(cat.title) ASC, cat.title COLLATE "C" ASC, ct.sort_order ASC
	`

// FindRelevant returns tags of every category whose title contains term, ordered by
// case-insensitive category title then sort order, each with the tag's latest count.
func (r *CategoryRepository) FindRelevant(ctx context.Context, term string) ([]models.CategoryTagRow, error) {
	return r.queryRows(ctx, findRelevantQuery, containsPattern(term))
}

// ListTags returns the tags of one category ordered by sort order
func (r *CategoryRepository) ListTags(ctx context.Context, title string) ([]models.CategoryTagRow, error) {
	query := `
		SELECT cat.title, t.title, lc.count, ct.sort_order
		FROM category cat
		JOIN category_tag ct ON ct.category_id = cat.id
		JOIN tag t ON t.id = ct.tag_id` + latestCountJoin + `
		WHERE cat.title = $1
		ORDER BY ct.sort_order ASC, t.title ASC
	`

	return r.queryRows(ctx, query, title)
}

// ListCategories returns every category ordered by title
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title FROM category ORDER BY lower(title) ASC, title COLLATE "C" ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// Save stores categorized tags in one transaction, creating missing categories.
// Entries whose tag is not in the repository are skipped and reported.
func (r *CategoryRepository) Save(ctx context.Context, items []models.CategorizedTag) (SaveCategoriesResult, error) {
	result := SaveCategoriesResult{SkippedTags: []string{}}
	if len(items) == 0 {
		return result, nil
	}

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		categoryIDs := make(map[string]int64)
		for _, item := range items {
			tagTitle := models.NormalizeTagTitle(item.Tag)
			categoryTitle := strings.TrimSpace(item.Category)

			var tagID int64
			err := tx.QueryRowContext(ctx, `SELECT id FROM tag WHERE title = $1`, tagTitle).Scan(&tagID)
			if errors.Is(err, sql.ErrNoRows) {
				result.SkippedTags = append(result.SkippedTags, tagTitle)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to look up tag %q: %w", tagTitle, err)
			}

			categoryID, ok := categoryIDs[categoryTitle]
			if !ok {
				err := tx.QueryRowContext(ctx, `
					INSERT INTO category (title) VALUES ($1)
					ON CONFLICT (title) DO UPDATE SET title = EXCLUDED.title
					RETURNING id
				`, categoryTitle).Scan(&categoryID)
				if err != nil {
					return fmt.Errorf("failed to upsert category %q: %w", categoryTitle, err)
				}
				categoryIDs[categoryTitle] = categoryID
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO category_tag (category_id, tag_id, sort_order) VALUES ($1, $2, $3)
				ON CONFLICT (category_id, tag_id) DO UPDATE SET sort_order = EXCLUDED.sort_order
			`, categoryID, tagID, item.Weight)
			if err != nil {
				return fmt.Errorf("failed to link tag %q to category %q: %w", tagTitle, categoryTitle, err)
			}
			result.Saved++
		}
		return nil
	})
	if err != nil {
		return SaveCategoriesResult{}, err
	}
	return result, nil
}

// Clear removes every category and its tag links
func (r *CategoryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM category`); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	return nil
}

func (r *CategoryRepository) queryRows(ctx context.Context, query string, args ...any) ([]models.CategoryTagRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []models.CategoryTagRow{}
	for rows.Next() {
		var row models.CategoryTagRow
		var count sql.NullInt64
		if err := rows.Scan(&row.Category, &row.Tag, &count, &row.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category tag: %w", err)
		}
		row.Count = nullableCount(count)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category tags: %w", err)
	}
	return result, nil
}

// containsPattern builds an ILIKE pattern matching term anywhere, with wildcards in term escaped
func containsPattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}
