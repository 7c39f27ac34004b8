package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/validation"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML import format. Both sections may be used in one file.
//
//	categories:
//	  - title: travel
//	    tags: [beach, mountains]   # sort order follows list position, starting at 1
//	items:
//	  - {category: food, tag: pizza, weight: 3}
type catalogFile struct {
	Categories []catalogCategory       `yaml:"categories"`
	Items      []models.CategorizedTag `yaml:"items"`
}

type catalogCategory struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// parseCatalog decodes and validates a catalog file into flat categorized tags
func parseCatalog(r io.Reader) ([]models.CategorizedTag, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog file is empty")
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	items := make([]models.CategorizedTag, 0, len(file.Items))
	for _, c := range file.Categories {
		for i, tag := range c.Tags {
			items = append(items, models.CategorizedTag{Category: c.Title, Tag: tag, Weight: i + 1})
		}
	}
	items = append(items, file.Items...)

	if len(items) == 0 {
		return nil, errors.New("catalog file contains no entries")
	}
	for i := range items {
		items[i].Category = validation.SanitizeText(items[i].Category)
		if err := validation.Validate.Struct(items[i]); err != nil {
			return nil, fmt.Errorf("invalid catalog entry %d (%s/%s): %w", i+1, items[i].Category, items[i].Tag, err)
		}
	}
	return items, nil
}
