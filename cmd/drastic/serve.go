package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/config"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/pipeline"
	chiTransport "github.com/UMD-DRASTIC/drastic-trellis/internal/transport/chi"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/jetstream"
	healthuc "github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/health"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/version"
)

var serveStages []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline stages and the admin API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()
		return serve(cmd.Context(), a, serveStages)
	},
}

func init() {
	serveCmd.Flags().StringSliceVar(&serveStages, "stages",
		[]string{jetstream.StageRouter, jetstream.StageCrawler, jetstream.StageIndexer, jetstream.StageAssembler},
		"pipeline stages to run in this process")
}

func serve(parent context.Context, a *app, stages []string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	logger.Info("Starting drastic pipeline",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.Strings("stages", stages),
	)

	metrics.RegisterPipelineMetrics()

	if err := a.connectRedis(ctx); err != nil {
		return err
	}
	bus, err := a.connectBus(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()

	subjects := bus.Subjects()
	handlers := map[string]jetstream.Handler{
		jetstream.StageRouter:    pipeline.RouterHandler(a.router(), bus, subjects),
		jetstream.StageCrawler:   pipeline.CrawlerHandler(a.crawler(), bus, subjects),
		jetstream.StageIndexer:   pipeline.IndexerHandler(a.indexer()),
		jetstream.StageAssembler: pipeline.AssemblerHandler(a.assembler()),
	}

	health := healthuc.New().
		With("sparql", a.sparql).
		With("search", a.search).
		With("nats", bus)
	if a.redis != nil {
		health.With("redis", a.redis)
	}

	server := chiTransport.NewServer(bus, subjects, health, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler:      server.Router(a.cfg.Auth.APIKeys),
		ReadTimeout:  config.Seconds(a.cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: config.Seconds(a.cfg.HTTP.WriteTimeoutSec),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range stages {
		handler, ok := handlers[stage]
		if !ok {
			return fmt.Errorf("unknown stage %q", stage)
		}
		consumer, err := bus.Consumer(ctx, stage)
		if err != nil {
			return err
		}
		runner := jetstream.NewRunner(jetstream.RunnerConfig{
			Stage:      stage,
			Workers:    a.cfg.NATS.WorkersFor(stage),
			MaxDeliver: a.cfg.NATS.MaxDeliver,
			NakDelay:   config.Seconds(a.cfg.NATS.NakDelaySec),
			DeadLetter: subjects.DeadLetter(stage),
		}, handler, bus, logger)
		g.Go(func() error { return runner.Run(gctx, consumer) })
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Pipeline stopped")
	return err
}
