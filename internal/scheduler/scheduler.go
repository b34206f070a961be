// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RentalCompleter marks finished rentals as completed.
type RentalCompleter interface {
	CompleteFinished(ctx context.Context) (int, error)
}

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron      *cron.Cron
	completer RentalCompleter
	timeout   time.Duration
	log       *zap.Logger
}

// New creates a scheduler that runs the rental completion job on spec, a
// cron expression with a seconds field, evaluated in UTC.
func New(spec string, completer RentalCompleter, timeout time.Duration, log *zap.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron:      c,
		completer: completer,
		timeout:   timeout,
		log:       log,
	}

	if _, err := c.AddFunc(spec, s.CompleteRentals); err != nil {
		return nil, fmt.Errorf("register rental completion job: %w", err)
	}
	return s, nil
}

// CompleteRentals runs the rental completion job once.
func (s *Scheduler) CompleteRentals() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.completer.CompleteFinished(ctx)
	if err != nil {
		s.log.Error("rental completion job failed", zap.Error(err))
		return
	}
	s.log.Info("rental completion job finished",
		zap.Int("completed", n),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
