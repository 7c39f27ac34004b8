package models

import (
	"github.com/shopspring/decimal"
)

// AffinityEntry is a directed tag-pair score. TagA is always the smaller id.
// Score is the fraction of TagA's posts that also carry TagB.
type AffinityEntry struct {
	TagA  int64           `json:"tag_a"`
	TagB  int64           `json:"tag_b"`
	Score decimal.Decimal `json:"score"`
}

// AffinityCandidate is a row returned by the affinity store for a set of source tags
type AffinityCandidate struct {
	Title string          `json:"title"`
	Score decimal.Decimal `json:"score"`
	Count *int64          `json:"count,omitempty"` // Max known occurrence count of the candidate tag
}
