package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

// jobTimeout bounds a single run of a maintenance job
const jobTimeout = time.Minute

// SessionPurger deletes sessions that can no longer authenticate
type SessionPurger interface {
	PurgeSessions(ctx context.Context) (int64, error)
}

// Scheduler wraps cron-based maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

func New(loc *time.Location, log *logger.Logger) *Scheduler {
	log = log.WithComponent("scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: log,
	}
}

// AddSessionJanitor purges dead sessions on spec, a standard cron
// expression or descriptor such as "@hourly".
func (s *Scheduler) AddSessionJanitor(spec string, purger SessionPurger) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := purger.PurgeSessions(ctx)
		if err != nil {
			s.logger.WithError(err).Errorw("Session cleanup failed")
			return
		}
		s.logger.Infow("Session cleanup finished", "purged", n)
	})
	if err != nil {
		return 0, fmt.Errorf("invalid session cleanup schedule %q: %w", spec, err)
	}
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to return
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).Errorw(msg, keysAndValues...)
}
