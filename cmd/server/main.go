package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nakl/internal/config"
	"nakl/internal/infra"
	"nakl/internal/repository"
	"nakl/internal/router"
	"nakl/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title          Nakl Tender API
// @version        1.0
// @description    Tender procurement and award pipeline.
// @BasePath       /
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	if cfg.RunMigrations {
		if cfg.DBDriver == "postgres" {
			err = infra.MigrateUp(cfg.DatabaseURL)
		} else {
			err = infra.RunMigrations(db)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if rdb == nil {
		log.Warn().Msg("REDIS_URL empty: report cache and job queue disabled")
	}

	events, err := infra.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer events.Close()

	// Worker handlers are wired here (composition root) so the pool has the
	// same infrastructure as the request path.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerClient := infra.NewLedgerClient(cfg.LedgerServiceURL)
	ledgerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	postingRepo := repository.NewLedgerPostingRepository(db)
	letterRepo := repository.NewAwardLetterRepository(db)

	worker.StartWorkerPool(ctx, rdb, worker.Handlers{
		Ledger: worker.NewLedgerWorker(postingRepo, ledgerClient, ledgerCB),
		Email:  worker.NewEmailWorker(letterRepo, mailer, cfg.PDFStoragePath),
	}, cfg.WorkerPoolSize)

	// Postings are re-driven even without redis: the cron reads the table.
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Postings:     postingRepo,
		LedgerClient: ledgerClient,
		CB:           ledgerCB,
		RDB:          rdb,
	})

	r := router.New(cfg, router.Deps{
		DB:         db,
		Redis:      rdb,
		LedgerCB:   ledgerCB,
		Events:     events,
		Dispatcher: dispatcher,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Int("port", cfg.Port).Str("driver", cfg.DBDriver).Msg("tender service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
