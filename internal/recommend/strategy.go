// Package recommend ranks candidate tags for a set of seed terms.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/toptag/internal/models"
)

// MaxRecommendations caps every strategy's output
const MaxRecommendations = 30

// ErrUnknownStrategy is returned for a strategy kind with no registered implementation
var ErrUnknownStrategy = errors.New("unknown recommendation strategy")

// Kind identifies a ranking strategy
type Kind string

const (
	// KindAffinity ranks candidates by stored affinity score
	KindAffinity Kind = "affinity"
	// KindCategory ranks candidates by curated category sort order
	KindCategory Kind = "category"
)

// ParseKind converts user input into a Kind. An empty string selects KindAffinity.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindAffinity:
		return KindAffinity, nil
	case KindCategory:
		return KindCategory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Strategy produces recommendations for already-normalised seed terms
type Strategy interface {
	Name() Kind
	Recommend(ctx context.Context, seeds []string) ([]models.Recommendation, error)
}
