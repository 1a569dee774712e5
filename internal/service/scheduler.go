package service

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ReloadScheduler triggers periodic full reloads of the entity graph, for
// deployments where bulk changes land in the external directories outside
// the console's own write path.
type ReloadScheduler struct {
	cron   *cron.Cron
	engine *Engine
	logger *slog.Logger
}

// NewReloadScheduler creates a scheduler that runs engine.LoadEntities on
// the given cron expression.
func NewReloadScheduler(engine *Engine, logger *slog.Logger) *ReloadScheduler {
	return &ReloadScheduler{
		cron:   cron.New(),
		engine: engine,
		logger: logger.With("component", "reload-scheduler"),
	}
}

// Start registers the reload job and starts the scheduler.
func (s *ReloadScheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.engine.LoadEntities(context.Background()); err != nil {
			// The previous graph stays in service; the next tick retries.
			s.logger.Error("scheduled reload failed", "error", err)
			return
		}
		s.logger.Info("scheduled reload completed")
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("reload scheduler started", "schedule", spec)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *ReloadScheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("reload scheduler stopped")
}
