package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job runs a task immediately and then every interval until stopped.
// Runs never overlap; a tick that fires during a run is dropped.
type Job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newJob(name string, interval time.Duration, run func(ctx context.Context) error) *Job {
	return &Job{
		name:     name,
		interval: interval,
		run:      run,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop
func (j *Job) Start(ctx context.Context) {
	slog.Info("Starting job", "job", j.name, "interval", j.interval)

	j.ticker = time.NewTicker(j.interval)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		// Run initial check immediately
		j.runOnce(ctx)

		for {
			select {
			case <-j.ticker.C:
				j.runOnce(ctx)
			case <-ctx.Done():
				slog.Info("Job stopped", "job", j.name, "reason", ctx.Err())
				return
			case <-j.done:
				slog.Info("Job stopped", "job", j.name)
				return
			}
		}
	}()
}

// Stop stops the loop and waits for a run in progress
func (j *Job) Stop() {
	j.stopOnce.Do(func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.done)
	})
	j.wg.Wait()
}

func (j *Job) runOnce(ctx context.Context) {
	start := time.Now()
	if err := j.run(ctx); err != nil {
		slog.Error("Job run failed", "job", j.name, "error", err, "duration_ms", time.Since(start).Milliseconds())
	}
}

type Reclaimer interface {
	ReclaimExpiredLocks(ctx context.Context) (int64, error)
}

// NewReclaimJob returns elapsed slot locks to available every interval.
func NewReclaimJob(slots Reclaimer, interval time.Duration) *Job {
	return newJob("reclaim-expired-locks", interval, func(ctx context.Context) error {
		_, err := slots.ReclaimExpiredLocks(ctx)
		return err
	})
}

type Seeder interface {
	Seed(ctx context.Context, days int, times []string) (int64, error)
}

// NewSeedJob keeps days days of slots at the daily times ahead of now.
func NewSeedJob(slots Seeder, interval time.Duration, days int, times []string) *Job {
	return newJob("seed-slots", interval, func(ctx context.Context) error {
		_, err := slots.Seed(ctx, days, times)
		return err
	})
}
