package main

import (
	"context"
	"database/sql"

	"globalnews_translator/internal/app/service"
	"globalnews_translator/internal/app/translation"
	"globalnews_translator/internal/app/worker"
	"globalnews_translator/internal/domain/repository"
	"globalnews_translator/internal/platform/database"
	"globalnews_translator/internal/platform/queue"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app holds the store and signal shared by every command.
type app struct {
	db  *sql.DB
	rdb *redis.Client

	articles repository.ArticleRepository
	jobs     repository.TranslationJobRepository
	results  repository.TranslationResultRepository
	signal   queue.JobSignal
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	if cfg.Pipeline.Store == "memory" {
		store := repository.NewMemoryStore()
		a.articles, a.jobs, a.results = store, store, store
		log.Warn("using the in-memory store, jobs and results are lost on exit")
	} else {
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.articles = repository.NewPgArticleRepository(db)
		a.jobs = repository.NewPgTranslationJobRepository(db)
		a.results = repository.NewPgTranslationResultRepository(db)
		log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))
	}

	if cfg.Redis.Addr != "" {
		rdb, err := queue.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, multierr.Append(err, a.close())
		}
		a.rdb = rdb
		a.signal = queue.NewRedisSignal(rdb, cfg.Redis.SignalKey)
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		a.signal = queue.NewChannelSignal()
	}
	return a, nil
}

func (a *app) jobService() *service.TranslationJobService {
	return service.NewTranslationJobService(a.articles, a.jobs, a.signal, cfg.Gateway.DefaultModel, log)
}

// pipeline builds the gateway, translator and worker pool.
func (a *app) pipeline() (*worker.Pipeline, translation.Gateway, error) {
	gateway, err := translation.NewGateway(cfg.Gateway)
	if err != nil {
		return nil, nil, err
	}
	translator := translation.NewTranslator(gateway, translation.Scorer{FallbackPenalty: cfg.Pipeline.FallbackPenalty}, log)
	p := worker.NewPipeline(a.articles, a.jobs, a.results, translator, a.signal, worker.Options{
		Concurrency:       cfg.Pipeline.Concurrency,
		IdleWait:          cfg.Pipeline.IdleWait,
		StoreErrorBackoff: cfg.Pipeline.StoreErrorBackoff,
	}, log)
	return p, gateway, nil
}

func (a *app) close() error {
	var err error
	if a.rdb != nil {
		err = multierr.Append(err, a.rdb.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}
