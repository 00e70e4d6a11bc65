package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/config"
	dbRedis "github.com/UMD-DRASTIC/drastic-trellis/internal/db/redis"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/keylock"
	logpkg "github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/repository/lease"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/repository/visited"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/elastic"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/jetstream"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/ldp"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/remote"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/sparql"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/assembler"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/crawler"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/indexer"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/router"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	ldp    *ldp.Client
	sparql *sparql.Client
	search *elastic.Client
	redis  *dbRedis.Store // nil when redis is not configured
}

func loadApp() (*app, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	retry := remote.Retry{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Initial:     time.Duration(cfg.Retry.InitialIntervalMs) * time.Millisecond,
		Max:         time.Duration(cfg.Retry.MaxIntervalMs) * time.Millisecond,
	}

	ldpClient, err := ldp.New(ldp.Config{
		BaseURL:  cfg.LDP.BaseURL,
		Username: cfg.LDP.Username,
		Password: cfg.LDP.Password,
		Timeout:  config.Seconds(cfg.LDP.TimeoutSec),
		Retry:    retry,
	})
	if err != nil {
		return nil, fmt.Errorf("ldp client: %w", err)
	}

	return &app{
		env:    env,
		cfg:    cfg,
		logger: logger,
		ldp:    ldpClient,
		sparql: sparql.New(sparql.Config{
			QueryURL:  cfg.SPARQL.QueryURL,
			UpdateURL: cfg.SPARQL.UpdateURL,
			Timeout:   config.Seconds(cfg.SPARQL.TimeoutSec),
			Retry:     retry,
		}),
		search: elastic.New(elastic.Config{
			URL:     cfg.Search.URL,
			Timeout: config.Seconds(cfg.Search.TimeoutSec),
			Retry:   retry,
		}),
	}, nil
}

// connectRedis opens the coordination store when one is configured.
func (a *app) connectRedis(ctx context.Context) error {
	if !a.cfg.Redis.Enabled() {
		return nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Redis.Addrs,
		Password: a.cfg.Redis.Password,
	})
	if err != nil {
		return fmt.Errorf("redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, config.Seconds(a.cfg.Redis.ReadinessTimeout)); err != nil {
		store.Close()
		return fmt.Errorf("redis not ready: %w", err)
	}
	a.redis = store
	a.logger.Info("Connected to redis", zap.Strings("addrs", a.cfg.Redis.Addrs))
	return nil
}

func (a *app) connectBus(ctx context.Context) (*jetstream.Bus, error) {
	bus, err := jetstream.Connect(ctx, jetstream.Config{
		URL:        a.cfg.NATS.URL,
		Stream:     a.cfg.NATS.Stream,
		Prefix:     a.cfg.NATS.SubjectPrefix,
		AckWait:    config.Seconds(a.cfg.NATS.AckWaitSec),
		MaxDeliver: a.cfg.NATS.MaxDeliver,
		NakDelay:   config.Seconds(a.cfg.NATS.NakDelaySec),
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Connected to NATS",
		zap.String("url", a.cfg.NATS.URL),
		zap.String("stream", a.cfg.NATS.Stream),
	)
	return bus, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	_ = a.logger.Sync()
}

func (a *app) router() *router.Service {
	svc := router.New(a.ldp, a.sparql, keylock.New())
	if a.redis != nil {
		svc.WithLease(lease.New(a.redis, config.Seconds(a.cfg.Redis.LockTTLSec)))
	}
	return svc
}

func (a *app) crawler() *crawler.Service {
	svc := crawler.New(a.ldp, a.cfg.Crawler.MaxDepth).
		WithGenericEnvelope(a.cfg.Crawler.GenericEnvelope).
		WithRateLimit(a.cfg.Crawler.EmitPerSecond, a.cfg.Crawler.EmitBurst)
	if a.cfg.Crawler.Dedupe && a.redis != nil {
		svc.WithVisitedSet(visited.New(a.redis, config.Seconds(a.cfg.Redis.VisitedTTLSec)))
	}
	return svc
}

func (a *app) indexer() *indexer.Service {
	return indexer.New(a.sparql, a.search, a.ldp, indexer.Config{
		Index:          a.cfg.Search.Index,
		AuthorityIndex: a.cfg.Search.AuthorityIndex,
		SkipPaths:      a.cfg.Indexer.SkipPaths,
	})
}

func (a *app) assembler() *assembler.Service {
	return assembler.New(a.sparql, a.ldp, a.cfg.Assembler.Workers)
}
