package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Schedule holds standard five-field cron specs. An empty spec disables the job.
type Schedule struct {
	Completion string
	Occupancy  string
	Location   *time.Location
	// Timeout bounds a single run; zero means no bound.
	Timeout time.Duration
}

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger
}

func NewScheduler(sweeper *Sweeper, sched Schedule, logger *logrus.Logger) (*Scheduler, error) {
	loc := sched.Location
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	if sched.Completion != "" {
		if _, err := s.cron.AddFunc(sched.Completion, s.run("completion", sched.Timeout, func(ctx context.Context) error {
			_, err := sweeper.RunCompletionSweep(ctx)
			return err
		})); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule completion sweep %q: %w", sched.Completion, err)
		}
	}
	if sched.Occupancy != "" {
		if _, err := s.cron.AddFunc(sched.Occupancy, s.run("occupancy", sched.Timeout, func(ctx context.Context) error {
			_, err := sweeper.RunOccupancySweep(ctx)
			return err
		})); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule occupancy sweep %q: %w", sched.Occupancy, err)
		}
	}

	return s, nil
}

func (s *Scheduler) run(name string, timeout time.Duration, fn func(ctx context.Context) error) func() {
	return func() {
		ctx := s.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		started := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("sweep failed")
			return
		}
		s.logger.WithFields(logrus.Fields{"job": name, "took": time.Since(started)}).Debug("sweep run done")
	}
}

// Jobs reports how many sweeps are scheduled.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels in-flight sweeps and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own messages to logrus.
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
