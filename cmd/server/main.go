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

	"comply/internal/audit"
	corrmetrics "comply/internal/correlation/metrics"
	corrsvc "comply/internal/correlation/service"
	"comply/internal/correlation/store"
	"comply/internal/platform/config"
	"comply/internal/platform/httpserver"
	"comply/internal/platform/logger"
	platformredis "comply/internal/platform/redis"
	"comply/internal/platform/token"
	"comply/internal/reporting"
	"comply/internal/scoring"
	scoremetrics "comply/internal/scoring/metrics"
	httptransport "comply/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence. Without a database URL the engine runs on the in-memory
	// store, which is enough for local development and demos.
	var (
		corrStores  corrsvc.Stores
		scoreStores scoring.Stores
		empReader   reporting.EmployeeReader
		subReader   reporting.SubRecordReader
		auditStore  audit.Store
		dbHealth    func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		pg := store.NewPostgres(db)
		corrStores = corrsvc.Stores{Employees: pg, Checks: pg, Training: pg, Assets: pg, Access: pg, Security: pg}
		scoreStores = scoring.Stores{Employees: pg, Checks: pg, Training: pg, Attestations: pg, Access: pg, Assets: pg}
		empReader, subReader = pg, pg
		auditStore = audit.NewPostgresStore(db)
		dbHealth = db.PingContext
	} else {
		log.Warn("no database configured, using in-memory store")
		mem := store.NewMemory()
		corrStores = corrsvc.Stores{Employees: mem, Checks: mem, Training: mem, Assets: mem, Access: mem, Security: mem}
		scoreStores = scoring.Stores{Employees: mem, Checks: mem, Training: mem, Attestations: mem, Access: mem, Assets: mem}
		empReader, subReader = mem, mem
		auditStore = audit.NewMemoryStore()
	}

	// Redis is optional. Without it the metrics cache and the recalculation
	// lease degrade to direct reads and unguarded runs.
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Audit pipeline: services emit, the worker persists.
	publisher := audit.NewPublisher(log, 256)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	correlation := corrsvc.New(corrStores, log, corrmetrics.New(), publisher)

	scoringOpts := []scoring.Option{scoring.WithAudit(publisher)}
	if rdb != nil {
		scoringOpts = append(scoringOpts, scoring.WithLease(scoring.NewRedisLease(rdb.Client)))
	}
	scorer := scoring.New(scoreStores, cfg.Weights, cfg.RecalcPageSize, log, scoremetrics.New(), scoringOpts...)

	var cache reporting.Cache = reporting.NoopCache{}
	if rdb != nil && cfg.MetricsCacheTTL > 0 {
		cache = reporting.NewRedisCache(rdb.Client, cfg.MetricsCacheTTL, log)
	}
	reporter := reporting.New(empReader, subReader, cache, log)

	validator := token.NewValidator(cfg.JWTSigningKey)
	handler := httptransport.NewHandler(correlation, scorer, reporter, validator, log)
	if dbHealth != nil {
		handler.AddHealthCheck("database", httptransport.HealthFunc(dbHealth))
	}
	if rdb != nil {
		handler.AddHealthCheck("redis", rdb)
	}

	srv := httpserver.New(cfg.Addr, handler.Router())

	log.Info("starting compliance engine", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
