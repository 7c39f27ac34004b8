package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCategoriesCmd(debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the curated category catalog",
	}
	cmd.AddCommand(newCategoriesImportCmd(debug))
	cmd.AddCommand(newCategoriesClearCmd(debug))
	cmd.AddCommand(newCategoriesListCmd(debug))
	return cmd
}

func newCategoriesImportCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import categorized tags from a YAML file",
		Long:  "Create missing categories and link tags to them. Tags unknown to the repository are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open catalog file: %w", err)
			}
			defer func() { _ = f.Close() }()

			items, err := parseCatalog(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, *debug)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.repos.Categories.Save(ctx, items)
			if err != nil {
				return fmt.Errorf("failed to save categories: %w", err)
			}
			if len(result.SkippedTags) > 0 {
				s.logger.Warn("category_tags_skipped",
					zap.Int("skipped", len(result.SkippedTags)),
					zap.Strings("tags", logger.SanitizeTags(result.SkippedTags)),
				)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d entries (%d unknown tags skipped)\n",
				result.Saved, len(items), len(result.SkippedTags))
			return err
		},
	}
}

func newCategoriesClearCmd(debug *bool) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every category and its tag links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the catalog without --yes")
			}
			ctx := cmd.Context()
			s, err := openSession(ctx, *debug)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.repos.Categories.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear categories: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Category catalog cleared")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm removal of the whole catalog")
	return cmd
}

func newCategoriesListCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list [title]",
		Short: "List categories, or the tags of one category in sort order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, *debug)
			if err != nil {
				return err
			}
			defer s.close()

			if len(args) == 0 {
				categories, err := s.repos.Categories.ListCategories(ctx)
				if err != nil {
					return fmt.Errorf("failed to list categories: %w", err)
				}
				return writeCategories(cmd.OutOrStdout(), categories)
			}

			rows, err := s.repos.Categories.ListTags(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list category tags: %w", err)
			}
			return writeCategoryRows(cmd.OutOrStdout(), args[0], rows)
		},
	}
}

func writeCategories(out io.Writer, categories []models.Category) error {
	if len(categories) == 0 {
		_, err := fmt.Fprintln(out, "No categories configured")
		return err
	}
	for _, c := range categories {
		if _, err := fmt.Fprintf(out, "  - %s\n", c.Title); err != nil {
			return err
		}
	}
	return nil
}

func writeCategoryRows(out io.Writer, title string, rows []models.CategoryTagRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(out, "Category %q has no tags\n", title)
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tTAG\tCOUNT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.SortOrder, r.Tag, optionalCount(r.Count))
	}
	return tw.Flush()
}
