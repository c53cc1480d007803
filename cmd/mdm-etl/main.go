package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mdm/internal/master"
	"mdm/internal/pipeline"
	"mdm/internal/platform/config"
	"mdm/internal/platform/httpserver"
	"mdm/internal/platform/logger"
	"mdm/internal/platform/metrics"
	"mdm/internal/platform/postgres"
	"mdm/internal/record"
	"mdm/internal/source"
	"mdm/internal/staging"
)

// main wires the collaborators and runs one full consolidation: reset the
// staging topics, publish every source extract, then drain and persist the
// three entity types in dependency order. Collaborator connection failures
// are fatal before any state executes; everything past startup recovers
// locally and the process exits zero once all states complete.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := httpserver.New(cfg.MetricsAddr, mux).ListenAndServe(); err != nil {
				log.Warn("metrics endpoint stopped", "error", err)
			}
		}()
	}

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("master store unreachable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	channel, err := staging.NewKafka(ctx, cfg.KafkaBrokers, cfg.IdleTimeout, log)
	if err != nil {
		log.Error("staging channel unreachable", "error", err)
		os.Exit(1)
	}
	defer channel.Close()

	store := master.NewPostgres(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("master schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	if err := channel.Reset(ctx, record.Topics()...); err != nil {
		log.Error("staging topic reset failed", "error", err)
		os.Exit(1)
	}

	adapter := source.NewAdapter(channel, cfg.ExtractDir, log)
	published, err := adapter.PublishAll(ctx)
	if err != nil {
		log.Error("source extract publish failed", "error", err)
		os.Exit(1)
	}
	for topic, n := range published {
		m.MessagesPublished.WithLabelValues(topic).Add(float64(n))
	}

	coordinator, err := pipeline.New(channel, store, log,
		pipeline.WithDossierLookup(source.LoadDossiers(cfg.ExtractDir, log)),
		pipeline.WithMetrics(m),
	)
	if err != nil {
		log.Error("coordinator construction failed", "error", err)
		os.Exit(1)
	}

	if err := coordinator.Run(ctx); err != nil {
		log.Error("consolidation run failed", "error", err)
		os.Exit(1)
	}
}
