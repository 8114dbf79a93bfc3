package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"pressroom/internal/audit"
	auditmemory "pressroom/internal/audit/store/memory"
	auditpg "pressroom/internal/audit/store/postgres"
	"pressroom/internal/identity"
	"pressroom/internal/ingest"
	ingesthandler "pressroom/internal/ingest/handler"
	moderationhandler "pressroom/internal/moderation/handler"
	moderationmetrics "pressroom/internal/moderation/metrics"
	"pressroom/internal/moderation/service"
	"pressroom/internal/moderation/store"
	moderationmemory "pressroom/internal/moderation/store/memory"
	moderationpg "pressroom/internal/moderation/store/postgres"
	"pressroom/internal/notify"
	notifyhandler "pressroom/internal/notify/handler"
	notifymetrics "pressroom/internal/notify/metrics"
	"pressroom/internal/notify/registry"
	"pressroom/internal/platform/config"
	"pressroom/internal/platform/httpserver"
	"pressroom/internal/platform/logger"
	platformmetrics "pressroom/internal/platform/metrics"
	platformredis "pressroom/internal/platform/redis"
	httptransport "pressroom/internal/transport/http"
)

const (
	jwtIssuer   = "pressroom"
	jwtAudience = "pressroom-admin"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, process-local memory otherwise.
	var (
		eventStore store.Store
		auditStore audit.Store
		health     []httptransport.HealthChecker
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		events := moderationpg.New(db)
		records := auditpg.New(db)
		if err := events.EnsureSchema(ctx); err != nil {
			log.Error("ensure moderation schema", "error", err)
			os.Exit(1)
		}
		if err := records.EnsureSchema(ctx); err != nil {
			log.Error("ensure audit schema", "error", err)
			os.Exit(1)
		}
		eventStore, auditStore = events, records
		health = append(health, dbHealth{db})
	} else {
		log.Warn("POSTGRES_URL not set, using in-memory stores")
		eventStore = moderationmemory.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	// Live channel: Redis-broadcast registry when configured, process-local
	// hub otherwise.
	nMetrics := notifymetrics.New()
	hub := registry.NewHub(nMetrics)
	var liveRegistry registry.Registry = hub

	g, ctx := errgroup.WithContext(ctx)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		redisRegistry := registry.NewRedisRegistry(hub, redisClient.Client, log)
		g.Go(func() error { return redisRegistry.Run(ctx) })
		liveRegistry = redisRegistry
		health = append(health, redisClient)
	} else {
		log.Warn("REDIS_URL not set, push fan-out is process-local")
	}

	recorder := audit.NewRecorder(auditStore)
	notifier := notify.NewNotifier(liveRegistry, eventStore, nMetrics, log)
	moderationSvc := service.New(eventStore, recorder, notifier, moderationmetrics.New(), log)
	ingestSvc := ingest.New(eventStore, log)

	jwtService := identity.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)
	jwtValidator := identity.NewJWTServiceAdapter(jwtService)

	pMetrics := platformmetrics.New()
	router := httptransport.NewRouter(health,
		moderationhandler.New(moderationSvc, log, pMetrics, jwtValidator),
		notifyhandler.New(liveRegistry, nMetrics, log, jwtValidator),
		ingesthandler.New(ingestSvc, log, pMetrics, cfg.IngestSecretHash),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting pressroom", "addr", cfg.Addr)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// dbHealth adapts *sql.DB to the health check contract.
type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
