package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benvon/toptag/internal/affinity"
	"github.com/benvon/toptag/internal/app"
	"github.com/benvon/toptag/internal/cache"
	"github.com/benvon/toptag/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newRebuildCmd(debug *bool) *cobra.Command {
	var enqueue, asJSON bool
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the tag affinity matrix",
		Long: "Clear and recompute the tag affinity matrix in this process and print statistics.\n" +
			"With --enqueue the rebuild is published to the worker queue instead (requires RABBITMQ_URL).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, *debug)
			if err != nil {
				return err
			}
			defer s.close()

			if enqueue {
				return enqueueRebuild(ctx, s, cmd.OutOrStdout())
			}

			var redisClient *redis.Client
			if s.cfg.RedisURL != "" {
				redisClient, err = cache.NewRedisClient(ctx, s.cfg.RedisURL)
				if err != nil {
					return err
				}
				defer func() { _ = redisClient.Close() }()
			}

			builder := app.NewBuilder(s.repos, redisClient, s.cfg, s.logger)
			stats, err := builder.RebuildWithStats(ctx)
			if err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}
			return writeStats(cmd.OutOrStdout(), stats, asJSON)
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Publish a rebuild job for the worker instead of rebuilding here")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func enqueueRebuild(ctx context.Context, s *session, out io.Writer) error {
	url := s.cfg.RabbitMQURL
	if url == "" {
		url = os.Getenv("RABBITMQ_URL")
	}
	if url == "" {
		return fmt.Errorf("RABBITMQ_URL is required with --enqueue")
	}
	q, err := queue.NewRabbitMQQueue(url, s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	job := queue.NewRebuildJob(queue.SourceCLI)
	if err := q.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue rebuild: %w", err)
	}
	_, err = fmt.Fprintf(out, "rebuild started (job %s)\n", job.ID)
	return err
}

func writeStats(out io.Writer, stats affinity.RebuildStats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	_, err := fmt.Fprintf(out,
		"Affinity matrix rebuilt in %s\n  Tags:          %d\n  Skipped empty: %d\n  Entries:       %d\n  Batches:       %d\n",
		stats.Duration.Round(time.Millisecond), stats.Tags, stats.SkippedEmpty, stats.Entries, stats.Batches,
	)
	return err
}
