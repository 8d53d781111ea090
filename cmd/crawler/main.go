// Package main wires together the catalog crawler service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/drunksu/crawler/internal/clock/system"
	"github.com/drunksu/crawler/internal/config"
	"github.com/drunksu/crawler/internal/dispatcher"
	goqueryextractor "github.com/drunksu/crawler/internal/extractor/goquery"
	collyfetcher "github.com/drunksu/crawler/internal/fetcher/colly"
	headlessfetcher "github.com/drunksu/crawler/internal/fetcher/headless"
	md5hash "github.com/drunksu/crawler/internal/hash/md5"
	"github.com/drunksu/crawler/internal/id/uuid"
	"github.com/drunksu/crawler/internal/logging"
	"github.com/drunksu/crawler/internal/metrics"
	"github.com/drunksu/crawler/internal/pipeline"
	"github.com/drunksu/crawler/internal/proxy"
	queuememory "github.com/drunksu/crawler/internal/queue/memory"
	"github.com/drunksu/crawler/internal/server"
	sinkmemory "github.com/drunksu/crawler/internal/sink/memory"
	"github.com/drunksu/crawler/internal/sink/postgres"
	redissink "github.com/drunksu/crawler/internal/sink/redis"
	"github.com/drunksu/crawler/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	once := flag.Bool("once", false, "Exit after the seed targets have drained")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	idGen := uuid.New()
	runID, err := idGen.NewID()
	if err != nil {
		logger.Fatal("generate run id failed", zap.Error(err))
	}
	logger.Info("crawler starting",
		zap.String("run_id", runID),
		zap.String("fetcher", cfg.Crawler.Fetcher),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("workers", cfg.Crawler.Workers),
	)

	hasher := md5hash.New()
	clock := system.New()
	proxies := proxy.NewPool(cfg.Proxy.Endpoints)
	if proxies.Size() > 0 {
		logger.Info("proxy pool loaded", zap.Int("endpoints", proxies.Size()))
	}

	var fetcher pipeline.Fetcher
	switch cfg.Crawler.Fetcher {
	case config.FetcherHeadless:
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			Referer:           cfg.HTTP.Referer,
			AcceptLanguage:    cfg.HTTP.AcceptLanguage,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			logger.Fatal("headless fetcher init failed", zap.Error(err))
		}
		defer headless.Close()
		fetcher = headless
	default:
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:      cfg.HTTP.UserAgent,
			Referer:        cfg.HTTP.Referer,
			Accept:         cfg.HTTP.Accept,
			AcceptLanguage: cfg.HTTP.AcceptLanguage,
			Timeout:        cfg.FetchTimeout(),
		}, proxies)
	}

	var sink pipeline.Sink
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		redisSink, err := redissink.New(ctx, redissink.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Table:        cfg.Storage.Table,
			ColumnFamily: cfg.Storage.ColumnFamily,
		}, hasher)
		if err != nil {
			logger.Fatal("redis sink init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := redisSink.Close(); closeErr != nil {
				logger.Warn("redis close failed", zap.Error(closeErr))
			}
		}()
		sink = redisSink
	case config.BackendPostgres:
		pgSink, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.Storage.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		}, hasher, clock)
		if err != nil {
			logger.Fatal("postgres sink init failed", zap.Error(err))
		}
		if err := pgSink.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres schema init failed", zap.Error(err))
		}
		defer pgSink.Close()
		sink = pgSink
	default:
		logger.Warn("using in-memory sink, stored rows are not durable")
		sink = sinkmemory.New(hasher)
	}

	extractor := goqueryextractor.New(goqueryextractor.Config{
		ItemSelector:  cfg.Extractor.ItemSelector,
		TitleSelector: cfg.Extractor.TitleSelector,
		PriceSelector: cfg.Extractor.PriceSelector,
	})
	queue := queuememory.NewQueue(cfg.Crawler.QueueCapacity)

	workers := make([]*worker.Worker, 0, cfg.Crawler.Workers)
	for i := 0; i < cfg.Crawler.Workers; i++ {
		workers = append(workers, worker.New(
			queue,
			fetcher,
			extractor,
			sink,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := server.New(dispatch, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started")
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	go reportQueueDepth(ctx, queue)

	for _, seed := range cfg.Crawler.Seeds {
		if err := dispatch.Enqueue(ctx, pipeline.Target(seed)); err != nil {
			logger.Error("seed enqueue failed", zap.String("url", seed), zap.Error(err))
			continue
		}
		logger.Info("seed enqueued", zap.String("url", seed))
	}

	if *once {
		go func() {
			if err := dispatch.Join(ctx); err != nil {
				logger.Error("drain wait failed", zap.Error(err))
				return
			}
			logger.Info("seed targets drained")
			stop()
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

func reportQueueDepth(ctx context.Context, queue *queuememory.Queue) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetQueuePending(queue.Pending())
		}
	}
}
