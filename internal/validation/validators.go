package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/recommend"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxTagTitleLength is the maximum length of a normalized tag title
	MaxTagTitleLength = 255
	// MaxSeedTags is the maximum number of seed tags accepted in one recommendation request
	MaxSeedTags = 100
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("strategy", validateStrategy); err != nil {
		panic(fmt.Sprintf("failed to register strategy validator: %v", err))
	}
	if err := Validate.RegisterValidation("tag_title", validateTagTitle); err != nil {
		panic(fmt.Sprintf("failed to register tag_title validator: %v", err))
	}
	if err := Validate.RegisterValidation("search_term", validateSearchTerm); err != nil {
		panic(fmt.Sprintf("failed to register search_term validator: %v", err))
	}
}

// validateStrategy accepts the empty string and every known strategy name
func validateStrategy(fl validator.FieldLevel) bool {
	_, err := recommend.ParseKind(fl.Field().String())
	return err == nil
}

// validateTagTitle accepts titles that normalize to a non-empty single word
func validateTagTitle(fl validator.FieldLevel) bool {
	return ValidateTagTitle(fl.Field().String()) == nil
}

// validateSearchTerm accepts any non-empty term without control characters
func validateSearchTerm(fl validator.FieldLevel) bool {
	return ValidateSearchTerm(fl.Field().String()) == nil
}

// ValidateSearchTerm checks a raw seed used as a category title substring.
// Unlike tag titles it may contain spaces.
func ValidateSearchTerm(value string) error {
	term := models.NormalizeTagTitle(value)
	switch {
	case term == "":
		return fmt.Errorf("invalid term %q: empty after normalization", value)
	case len(term) > MaxTagTitleLength:
		return fmt.Errorf("invalid term: longer than %d characters", MaxTagTitleLength)
	case strings.ContainsFunc(term, unicode.IsControl):
		return fmt.Errorf("invalid term %q: must not contain control characters", value)
	}
	return nil
}

// ValidateSeeds applies the seed rule of the given strategy. Affinity seeds must be
// tag titles; category seeds are search terms.
func ValidateSeeds(kind recommend.Kind, seeds []string) error {
	check := ValidateTagTitle
	if kind == recommend.KindCategory {
		check = ValidateSearchTerm
	}
	for _, seed := range seeds {
		if err := check(seed); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTagTitle checks a raw tag title
func ValidateTagTitle(value string) error {
	title := models.NormalizeTagTitle(value)
	switch {
	case title == "":
		return fmt.Errorf("invalid tag %q: empty after normalization", value)
	case len(title) > MaxTagTitleLength:
		return fmt.Errorf("invalid tag: longer than %d characters", MaxTagTitleLength)
	case strings.ContainsFunc(title, unicode.IsSpace):
		return fmt.Errorf("invalid tag %q: must not contain whitespace", value)
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// SplitTagList splits a comma separated tag list, dropping empty items
func SplitTagList(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
