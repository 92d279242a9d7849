package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Spok95/barber-club/internal/config"
	"github.com/Spok95/barber-club/internal/domain/catalog"
	"github.com/Spok95/barber-club/internal/domain/clients"
	"github.com/Spok95/barber-club/internal/domain/subscriptions"
	"github.com/Spok95/barber-club/internal/infra/db"
	httpx "github.com/Spok95/barber-club/internal/infra/http"
	"github.com/Spok95/barber-club/internal/infra/logger"
	"github.com/Spok95/barber-club/internal/infra/metrics"
	"github.com/Spok95/barber-club/internal/infra/notify"
	"github.com/Spok95/barber-club/internal/infra/payments"
	"github.com/Spok95/barber-club/internal/infra/storage"
	"github.com/Spok95/barber-club/internal/reports"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("APP_CONFIG")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		return err
	}

	if err := db.Migrate(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return err
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return err
	}
	defer pool.Close()
	log.Info("db connected")

	if cfg.Metrics.Enabled {
		metrics.Register()
		metrics.RegisterPgxPool(pool)
	}

	loc := cfg.Location()

	// репозитории
	subsRepo := subscriptions.NewRepo(pool)
	plansRepo := catalog.NewRepo(pool)
	clientsRepo := clients.NewRepo(pool)

	// внешние сервисы
	notifier := notify.New(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	asaas := payments.NewClient(cfg.Asaas.BaseURL, cfg.Asaas.APIKey, cfg.Asaas.Timeout, cfg.Asaas.RPS, log)
	if err := asaas.Configured(); err != nil {
		log.Warn("asaas is not configured, cancel function will answer 400", "err", err)
	}

	var archive reports.Archiver
	if cfg.StorageEnabled() {
		archive = storage.NewS3(storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		}, log)
	}

	// сервисы
	checker := subscriptions.NewUsageChecker(subsRepo, plansRepo, log, loc)
	renewer := subscriptions.NewRenewer(subsRepo, plansRepo, clientsRepo, notifier, log)
	canceler := subscriptions.NewCanceler(subsRepo, asaas, notifier, log)
	vip := reports.NewVIPClub(subsRepo, archive, loc, log)

	srv := httpx.New(httpx.Options{
		Addr:          cfg.HTTP.Addr,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		JWTSecret:     cfg.Auth.JWTSecret,
		ExposeMetrics: cfg.Metrics.Enabled,
	}, httpx.Deps{
		Subscriptions: httpx.NewSubscriptionsHandler(checker, renewer, subscriptions.FailOpen, log),
		Reports:       httpx.NewReportsHandler(vip, loc, log),
		CancelFunc:    payments.NewHandler(log, asaas, canceler, httpx.UserID),
	}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server started", "addr", cfg.HTTP.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("graceful shutdown complete")
	return nil
}
