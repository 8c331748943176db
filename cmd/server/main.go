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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/config"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/router"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger (dev: pretty, prod: JSON)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.MigrateOnStart {
		if err := migrateUp(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	storage, err := infra.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise object storage")
	}

	metrics := infra.NewMetrics()
	breakerCfg := infra.DefaultCBConfig()
	breakerCfg.OnStateChange = metrics.ObserveBreaker
	anaf := infra.NewANAFClient(infra.ANAFConfig{
		BaseURL:     cfg.ANAFBaseURL,
		TestBaseURL: cfg.ANAFTestBaseURL,
		Timeout:     time.Duration(cfg.ANAFTimeoutSeconds) * time.Second,
		Mock:        cfg.ANAFMock,
	}, infra.NewCircuitBreaker(breakerCfg), metrics)
	if cfg.ANAFMock {
		log.Warn().Msg("ANAF client running in mock mode, nothing is sent to SPV")
	}
	mailer := infra.NewMailer(cfg)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	efacturaRepo := repository.NewEFacturaRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	companyRepo := repository.NewCompanyRepository(db)

	uploader := worker.NewEFacturaWorker(anaf, efacturaRepo, companyRepo, storage, metrics)
	pool := worker.NewPool(rdb, metrics)
	pool.Register(worker.JobEFacturaSubmit, uploader.Process)
	pool.Register(worker.JobInvoiceEmail, worker.NewEmailWorker(mailer, invoiceRepo, companyRepo).Process)
	workers := pool.Start(ctx, cfg.WorkerPoolSize)

	poller, err := worker.NewStatusPoller(anaf, efacturaRepo, uploader, rdb).Start(ctx, cfg.StatusPollSpec)
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.StatusPollSpec).Msg("invalid status poll schedule")
	}

	r := router.New(cfg, db, rdb, router.Deps{
		ANAF:    anaf,
		Storage: storage,
		Metrics: metrics,
		Jobs:    worker.NewDispatcher(rdb),
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
		log.Info().Msgf("documentiulia API listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	<-poller.Stop().Done()
	cancel()
	workers.Wait()
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}
