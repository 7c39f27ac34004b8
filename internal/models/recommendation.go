package models

import (
	"github.com/shopspring/decimal"
)

// Recommendation is a transient ranked suggestion. Affinity-ranked results carry Score,
// category-ranked results carry Category and SortOrder.
type Recommendation struct {
	Tag       string           `json:"tag"`
	Category  string           `json:"category,omitempty"`
	Score     *decimal.Decimal `json:"score,omitempty"`
	SortOrder *int             `json:"sort_order,omitempty"`
	Count     *int64           `json:"count,omitempty"`
}
