package worker

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"
	"globalnews_translator/internal/domain/repository"
	"globalnews_translator/internal/platform/queue"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Translator produces the result for one target language. It reports gateway
// and parse problems through the result's status, not as an error.
type Translator interface {
	Translate(ctx context.Context, article *model.Article, job *model.TranslationJob, targetLanguage string) *model.TranslationResult
}

type Options struct {
	Concurrency int
	// IdleWait bounds how long the dispatcher sleeps on the signal when the queue is empty.
	IdleWait time.Duration
	// StoreErrorBackoff is the pause after a failed claim.
	StoreErrorBackoff time.Duration
	// WorkerPrefix names this process in assigned_worker; defaults to the hostname.
	WorkerPrefix string
}

func (o *Options) setDefaults() {
	if o.Concurrency < 1 {
		o.Concurrency = 3
	}
	if o.IdleWait <= 0 {
		o.IdleWait = 5 * time.Second
	}
	if o.StoreErrorBackoff <= 0 {
		o.StoreErrorBackoff = 5 * time.Second
	}
	if o.WorkerPrefix == "" {
		host, _ := os.Hostname()
		o.WorkerPrefix = slug.Make(host)
		if o.WorkerPrefix == "" {
			o.WorkerPrefix = "worker"
		}
	}
}

// Pipeline claims queued jobs and runs at most Concurrency of them at once.
type Pipeline struct {
	articles   repository.ArticleRepository
	jobs       repository.TranslationJobRepository
	results    repository.TranslationResultRepository
	translator Translator
	signal     queue.JobSignal
	opts       Options
	log        *zap.Logger

	instance string
	seq      atomic.Int64
	sem      *semaphore.Weighted

	mu       sync.Mutex
	busy     map[string]string // worker id → job id
	running  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
}

func NewPipeline(
	articles repository.ArticleRepository,
	jobs repository.TranslationJobRepository,
	results repository.TranslationResultRepository,
	translator Translator,
	signal queue.JobSignal,
	opts Options,
	log *zap.Logger,
) *Pipeline {
	opts.setDefaults()
	return &Pipeline{
		articles:   articles,
		jobs:       jobs,
		results:    results,
		translator: translator,
		signal:     signal,
		opts:       opts,
		log:        log.Named("pipeline"),
		instance:   opts.WorkerPrefix + "-" + uuid.NewString()[:8],
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		busy:       make(map[string]string),
	}
}

// Start launches the dispatch loop. It reports false if the loop was already running.
func (p *Pipeline) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Info("start ignored, pipeline already running")
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.loopDone = make(chan struct{})
	go p.dispatch(ctx, p.loopDone)

	p.log.Info("pipeline started",
		zap.String("instance", p.instance),
		zap.Int("concurrency", p.opts.Concurrency),
	)
	return true
}

// Stop prevents new claims and waits for in-flight jobs. If ctx expires first
// it returns ctx.Err() and the remaining jobs keep running to completion.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.log.Info("stop ignored, pipeline not running")
		return nil
	}
	p.running = false
	p.cancel()
	loopDone := p.loopDone
	p.mu.Unlock()

	select {
	case <-loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Holding every slot means no worker is still running.
	capacity := int64(p.opts.Concurrency)
	if err := p.sem.Acquire(ctx, capacity); err != nil {
		p.log.Warn("stop timed out with jobs in flight", zap.Int("busy", p.Busy()))
		return err
	}
	p.sem.Release(capacity)

	p.log.Info("pipeline stopped")
	return nil
}

func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) Capacity() int {
	return p.opts.Concurrency
}

// Busy is the number of workers currently holding a job.
func (p *Pipeline) Busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.busy)
}

// LiveJobIDs lists the jobs this process is executing right now.
func (p *Pipeline) LiveJobIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := lo.Values(p.busy)
	sort.Strings(ids)
	return ids
}

func (p *Pipeline) dispatch(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		if ctx.Err() != nil {
			p.sem.Release(1)
			return
		}

		workerID := fmt.Sprintf("%s-%d", p.instance, p.seq.Add(1))
		// The claim must not be abandoned halfway: a committed claim whose reply
		// is lost would leave the job processing with nobody working on it.
		job, err := p.jobs.ClaimNextQueuedJob(context.WithoutCancel(ctx), workerID)
		if err != nil {
			p.sem.Release(1)
			p.log.Error("claim failed", zap.Error(err))
			if !sleep(ctx, p.opts.StoreErrorBackoff) {
				return
			}
			continue
		}
		if job == nil {
			p.sem.Release(1)
			if _, err := p.signal.Wait(ctx, p.opts.IdleWait); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Warn("job signal wait failed", zap.Error(err))
				if !sleep(ctx, p.opts.StoreErrorBackoff) {
					return
				}
			}
			continue
		}

		p.register(workerID, job.ID)
		go p.runWorker(context.WithoutCancel(ctx), workerID, job)
	}
}

func (p *Pipeline) register(workerID, jobID string) {
	p.mu.Lock()
	p.busy[workerID] = jobID
	p.mu.Unlock()
}

func (p *Pipeline) deregister(workerID string) {
	p.mu.Lock()
	delete(p.busy, workerID)
	p.mu.Unlock()
}

func (p *Pipeline) runWorker(ctx context.Context, workerID string, job *model.TranslationJob) {
	defer p.sem.Release(1)
	defer p.deregister(workerID)

	log := p.log.With(zap.String("job_id", job.ID), zap.String("worker_id", workerID))
	log.Info("job claimed",
		zap.String("priority", string(job.Priority)),
		zap.Strings("languages", job.TargetLanguages),
	)

	stopped, err := p.process(ctx, job, log)
	switch {
	case stopped:
		log.Info("job no longer processing, stopped without overwriting its status")
	case err != nil:
		status := job.FailureStatus()
		log.Error("job failed", zap.String("status", string(status)), zap.Error(err))
		p.finish(ctx, job, status, lo.ToPtr(err.Error()), log)
	default:
		p.finish(ctx, job, model.JobStatusCompleted, nil, log)
		log.Info("job completed")
	}
}

// process translates every target language in order. stopped is true when the
// job left the processing state underneath us, for example an operator cancel.
func (p *Pipeline) process(ctx context.Context, job *model.TranslationJob, log *zap.Logger) (stopped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker panic recovered", zap.Any("panic", r), zap.Stack("stack"))
			stopped = false
			err = fmt.Errorf("%w: panic: %v", common.ErrJobExecution, r)
		}
	}()

	article, err := p.articles.GetArticleByID(ctx, job.SourceArticleID)
	if err != nil {
		return false, fmt.Errorf("%w: load article %s: %v", common.ErrJobExecution, job.SourceArticleID, err)
	}

	for _, lang := range job.TargetLanguages {
		current, err := p.jobs.GetJobByID(ctx, job.ID)
		if err != nil {
			return false, fmt.Errorf("%w: reload job: %v", common.ErrJobExecution, err)
		}
		if current.Status != model.JobStatusProcessing {
			return true, nil
		}

		result := p.translator.Translate(ctx, article, job, lang)
		if err := p.results.SaveTranslationResult(ctx, result); err != nil {
			return false, fmt.Errorf("%w: save %s result: %v", common.ErrJobExecution, lang, err)
		}
		log.Info("language translated",
			zap.String("language", lang),
			zap.String("status", string(result.Status)),
			zap.Float64("quality", result.QualityScore),
		)
	}
	return false, nil
}

func (p *Pipeline) finish(ctx context.Context, job *model.TranslationJob, status model.JobStatus, errMsg *string, log *zap.Logger) {
	err := p.jobs.UpdateJobStatus(ctx, job.ID, status, model.JobStatusUpdate{
		ErrorMessage: errMsg,
		FromStatus:   model.JobStatusProcessing,
	})
	if err != nil {
		// A conflict means the job was cancelled or swept after the last
		// language check; its current status stands.
		log.Warn("final status not recorded", zap.String("status", string(status)), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
