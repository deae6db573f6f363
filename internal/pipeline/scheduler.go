package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner executes one full pipeline run.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler triggers full runs on a cron schedule. A trigger that fires while
// the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
}

// NewScheduler registers runner under spec, a six-field cron expression with
// seconds (e.g. "0 0 * * * *") or a descriptor such as "@every 1h".
func NewScheduler(ctx context.Context, spec string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
	}

	_, err := s.cron.AddFunc(spec, func() {
		if _, err := runner.Run(s.ctx); err != nil {
			s.logger.Warn("scheduled run ended early", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_CRON %q: %w", spec, err)
	}
	logger.Info("pipeline scheduled", "spec", spec)
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context that is done once any run in
// progress has finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
