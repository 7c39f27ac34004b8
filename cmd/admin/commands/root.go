// Package commands implements the toptag-admin CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/toptag/internal/app"
	"github.com/benvon/toptag/internal/config"
	"github.com/benvon/toptag/internal/database"
	"github.com/benvon/toptag/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd creates the toptag-admin root command
func NewRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "toptag-admin",
		Short:         "Administration tool for the toptag recommendation service",
		Long:          "Rebuild the tag affinity matrix, query recommendations and manage the category catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on stderr")

	root.AddCommand(newRebuildCmd(&debug))
	root.AddCommand(newRecommendCmd(&debug))
	root.AddCommand(newCategoriesCmd(&debug))
	return root
}

// session holds what every database-backed command needs
type session struct {
	cfg    *config.Config
	db     *database.DB
	repos  app.Repositories
	logger *zap.Logger
}

func openSession(ctx context.Context, debug bool) (*session, error) {
	cfg, err := config.LoadBase()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	zapLogger, err := logger.NewCLILogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &session{cfg: cfg, db: db, repos: app.NewRepositories(db), logger: zapLogger}, nil
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	_ = logger.Sync(s.logger)
}
