package affinity

import (
	"github.com/shopspring/decimal"
)

// DefaultScoreScale is the number of fractional digits kept in affinity scores
const DefaultScoreScale int32 = 5

// Score returns overlap/total rounded half-up to scale fractional digits.
// total must be positive; callers skip tags without posts.
func Score(overlap, total int, scale int32) decimal.Decimal {
	return decimal.NewFromInt(int64(overlap)).DivRound(decimal.NewFromInt(int64(total)), scale)
}

// overlapCount returns |a ∩ b|, iterating the smaller set
func overlapCount(a, b map[int64]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for id := range a {
		if _, ok := b[id]; ok {
			n++
		}
	}
	return n
}
