package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds settings for the runner.
type Config struct {
	Workers   int
	RateLimit float64 // jobs started per second, 0 = unlimited
}

// Runner coordinates bounded concurrent jobs.
type Runner struct {
	cfg     Config
	limiter *rate.Limiter
}

// New creates a new Runner. Workers below 1 run sequentially.
func New(cfg Config) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	r := &Runner{cfg: cfg}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// Workers returns the effective concurrency.
func (r *Runner) Workers() int { return r.cfg.Workers }

// Run calls job once for every index in [0, n) with at most Workers jobs in
// flight. Jobs write their own results by index. Once ctx is done no new job
// is started and the context error is returned; jobs already running finish.
func (r *Runner) Run(ctx context.Context, n int, job func(ctx context.Context, idx int)) error {
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Workers)

	var stopErr error
	for i := 0; i < n; i++ {
		if err := r.wait(ctx); err != nil {
			stopErr = err
			break
		}
		i := i
		g.Go(func() error {
			job(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return stopErr
}

func (r *Runner) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
