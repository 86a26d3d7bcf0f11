package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/estimator"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/config"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/gateway"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/kafka"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
	"github.com/couchcryptid/graphql-complexity-gateway/internal/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Schema registry
	settings := estimator.Settings{
		Kind:              cfg.Estimator,
		Complexity:        cfg.FieldComplexity,
		DefaultComplexity: cfg.DefaultComplexity,
		DirectiveName:     cfg.ComplexityDirective,
		Multipliers:       cfg.ArgumentMultipliers,
	}
	registry := schema.NewRegistry(func(sdl string) (complexity.Estimator, error) {
		return estimator.Build(settings, sdl)
	}, metrics, logger)

	if _, err := registry.LoadFile(cfg.SchemaPath); err != nil {
		logger.Error("load schema", "error", err, "path", cfg.SchemaPath)
		os.Exit(1) //nolint:gocritic // startup exits before meaningful defers
	}

	if cfg.SchemaWatch {
		watcher := schema.NewWatcher(registry, cfg.SchemaPath, schema.DefaultDebounce, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("schema watcher", "error", err)
			}
		}()
	}

	// Kafka consumer
	if cfg.KafkaEnabled() {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, registry, metrics, logger)
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Error("kafka consumer close", "error", err)
			}
		}()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("kafka consumer", "error", err)
			}
		}()
	}

	// Gateway
	cache, err := complexity.NewDocumentCache(cfg.ParseCacheSize)
	if err != nil {
		logger.Error("create document cache", "error", err)
		os.Exit(1)
	}
	cache.OnLookup = metrics.ObserveCacheLookup

	gw, err := gateway.New(registry, complexity.NewAnalyzer(cache), gateway.Options{
		MaxComplexity: cfg.MaxComplexity,
		MaxDepth:      cfg.MaxDepth,
		Count: complexity.Config{
			CountArgName:         cfg.CountArgName,
			CountMissingArgValue: cfg.CountMissingArgValue,
		},
		UpstreamURL: cfg.UpstreamURL,
	}, metrics, logger)
	if err != nil {
		logger.Error("create gateway", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Handle("/", playground.Handler("GraphQL Complexity Gateway", "/query"))
	r.Group(func(r chi.Router) {
		r.Use(gateway.ConcurrencyLimit(cfg.ConcurrencyLimit, metrics))
		gw.Routes(r)
	})
	r.Get("/healthz", observability.LivenessHandler())
	r.Get("/readyz", observability.ReadinessHandler(registry))
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.TimeoutHandler(r, 25*time.Second, `{"errors":[{"message":"request timeout"}]}`),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "upstream", cfg.UpstreamURL, "estimator", cfg.Estimator)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
