package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/toptag/internal/affinity"
	"github.com/benvon/toptag/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronScheduler triggers affinity rebuilds on a cron schedule
type CronScheduler struct {
	cron    *cron.Cron
	trigger *RebuildTrigger
	logger  *zap.Logger
	entryID cron.EntryID
}

// NewCronScheduler parses a standard five-field spec (or a descriptor such as "@daily")
func NewCronScheduler(spec string, trigger *RebuildTrigger, logger *zap.Logger) (*CronScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CronScheduler{
		cron:    cron.New(),
		trigger: trigger,
		logger:  logger,
	}

	entryID, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", spec, err)
	}
	s.entryID = entryID
	return s, nil
}

func (s *CronScheduler) fire() {
	err := s.trigger.TriggerRebuild(context.Background(), queue.SourceCron)
	switch {
	case err == nil:
	case errors.Is(err, affinity.ErrRebuildInProgress):
		s.logger.Info("scheduled_rebuild_skipped", zap.String("reason", "already_running"))
	default:
		s.logger.Warn("scheduled_rebuild_rejected", zap.Error(err))
	}
}

// Start starts the scheduler
func (s *CronScheduler) Start() {
	s.cron.Start()
	s.logger.Info("rebuild_scheduler_started", zap.Time("next_run", s.cron.Entry(s.entryID).Schedule.Next(time.Now())))
}

// Stop stops the scheduler and waits for a running trigger call to return
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}
