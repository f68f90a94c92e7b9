package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cartevents"
	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/internal/cartstore"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/pubsub"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const serviceName = "storefront"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, idempotency and cart rate limit disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)

	var events cartevents.Publisher = cartevents.Noop{}
	if cfg.Events.Enabled {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.Events, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err := cartevents.NewPubSubPublisher(psClient.CartEventsPublisher(), logg, cartMetrics)
		if err != nil {
			logg.Error(ctx, "failed to create cart event publisher", err)
			os.Exit(1)
		}
		// Runs before the pubsub client closes.
		defer publisher.Close()
		events = publisher
	}

	cartClient, err := cartservice.NewClient(
		cfg.CartService.BaseURL,
		cartservice.WithTimeout(cfg.CartService.Timeout),
		cartservice.WithUserAgent(serviceName+"/"+id),
	)
	if err != nil {
		logg.Error(ctx, "failed to create cart service client", err)
		os.Exit(1)
	}

	sessions, err := cartstore.NewRegistry(cartstore.RegistryParams{
		Factory:       cartClient,
		Policy:        cfg.CartService.Policy(),
		Events:        events,
		Metrics:       cartMetrics,
		Logger:        logg,
		IdleTTL:       cfg.Session.IdleTTL,
		SweepInterval: cfg.Session.SweepInterval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session registry", err)
		os.Exit(1)
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		if err := sessions.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "session sweeper stopped unexpectedly", err)
		}
	}()

	server := &http.Server{
		Addr:         addr,
		Handler:      routes.NewRouter(cfg, logg, redisClient, sessions, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting storefront server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "storefront server stopped unexpectedly", err)
			stop()
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logg.Info(shutdownCtx, "shutting down storefront server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "http shutdown incomplete", err)
	}
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "cart sessions did not drain", err)
	}
	stop()
	<-sweepDone
	logg.Info(shutdownCtx, "storefront server stopped")
}
