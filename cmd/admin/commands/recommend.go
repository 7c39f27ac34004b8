package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/benvon/toptag/internal/app"
	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/recommend"
	"github.com/spf13/cobra"
)

func newRecommendCmd(debug *bool) *cobra.Command {
	var strategy string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "recommend tag [tag...]",
		Short: "Print tag recommendations for seed tags",
		Example: "  toptag-admin recommend sunset beach\n" +
			"  toptag-admin recommend --strategy category food",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := recommend.ParseKind(strategy)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, *debug)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := app.NewRecommendService(s.repos, s.cfg, s.logger).Recommend(ctx, args, kind)
			if err != nil {
				return fmt.Errorf("recommend failed: %w", err)
			}
			return writeRecommendations(cmd.OutOrStdout(), kind, result, asJSON)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(recommend.KindAffinity), "Ranking strategy: affinity or category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print recommendations as JSON")
	return cmd
}

func writeRecommendations(out io.Writer, kind recommend.Kind, recs []models.Recommendation, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(out, "No recommendations")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if kind == recommend.KindCategory {
		fmt.Fprintln(tw, "#\tTAG\tCATEGORY\tORDER\tCOUNT")
		for i, r := range recs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Tag, r.Category, optionalInt(r.SortOrder), optionalCount(r.Count))
		}
	} else {
		fmt.Fprintln(tw, "#\tTAG\tSCORE\tCOUNT")
		for i, r := range recs {
			score := "-"
			if r.Score != nil {
				score = r.Score.String()
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, r.Tag, score, optionalCount(r.Count))
		}
	}
	return tw.Flush()
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func optionalCount(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
