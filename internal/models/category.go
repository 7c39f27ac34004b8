package models

// Category is a curated grouping of tags
type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// CategoryTagRow is one (category, tag) link returned by the catalog search
type CategoryTagRow struct {
	Category  string `json:"category"`
	Tag       string `json:"tag"`
	Count     *int64 `json:"count,omitempty"`
	SortOrder int    `json:"sort_order"`
}

// CategorizedTag links a tag to a category with a weight used as sort order.
// Used by catalog imports (JSON request bodies and YAML files).
type CategorizedTag struct {
	Category string `json:"category" yaml:"category" validate:"required,max=255"`
	Tag      string `json:"tag" yaml:"tag" validate:"required,max=255"`
	Weight   int    `json:"weight" yaml:"weight" validate:"gte=0"`
}
