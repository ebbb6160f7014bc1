package worker

import (
	"context"
	"fmt"
	"time"

	"globalnews_translator/internal/domain/repository"
	"globalnews_translator/internal/platform/queue"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	maxRetryBackoff = time.Hour
	requeueBatch    = 100
)

// LiveJobs reports the jobs this process is still executing.
type LiveJobs interface {
	LiveJobIDs() []string
}

type RequeuerOptions struct {
	Interval        time.Duration
	RetryBaseDelay  time.Duration
	StaleJobTimeout time.Duration
}

// Requeuer puts failed jobs back in the queue once their backoff has elapsed and
// settles processing jobs orphaned by a crashed process.
type Requeuer struct {
	jobs   repository.TranslationJobRepository
	signal queue.JobSignal
	live   LiveJobs
	opts   RequeuerOptions
	log    *zap.Logger
	now    func() time.Time
}

func NewRequeuer(jobs repository.TranslationJobRepository, signal queue.JobSignal, live LiveJobs, opts RequeuerOptions, log *zap.Logger) *Requeuer {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Minute
	}
	return &Requeuer{jobs: jobs, signal: signal, live: live, opts: opts, log: log.Named("requeuer"), now: time.Now}
}

// Run sweeps every Interval until ctx is done.
func (r *Requeuer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := r.Sweep(ctx); err != nil {
				r.log.Error("maintenance sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one maintenance pass and reports how many jobs were requeued and
// how many stale jobs were settled.
func (r *Requeuer) Sweep(ctx context.Context) (requeued, stale int, err error) {
	now := r.now()

	if r.opts.StaleJobTimeout > 0 {
		n, serr := r.jobs.FailStaleJobs(ctx, now.Add(-r.opts.StaleJobTimeout), r.live.LiveJobIDs())
		if serr != nil {
			err = multierr.Append(err, fmt.Errorf("fail stale jobs: %w", serr))
		} else if n > 0 {
			stale = n
			r.log.Warn("settled stale processing jobs", zap.Int("count", n))
		}
	}

	jobs, lerr := r.jobs.ListRetryableJobs(ctx, requeueBatch)
	if lerr != nil {
		return requeued, stale, multierr.Append(err, fmt.Errorf("list retryable jobs: %w", lerr))
	}

	for _, job := range jobs {
		if now.Sub(job.UpdatedAt) < job.RetryBackoff(r.opts.RetryBaseDelay, maxRetryBackoff) {
			continue
		}
		ok, rerr := r.jobs.RequeueJob(ctx, job.ID)
		if rerr != nil {
			err = multierr.Append(err, fmt.Errorf("requeue %s: %w", job.ID, rerr))
			continue
		}
		if !ok {
			continue
		}
		requeued++
		r.log.Info("job requeued", zap.String("job_id", job.ID), zap.Int("retry", job.RetryCount+1))
		if nerr := r.signal.Notify(ctx, job.ID); nerr != nil {
			r.log.Warn("failed to signal requeued job", zap.String("job_id", job.ID), zap.Error(nerr))
		}
	}
	return requeued, stale, err
}
