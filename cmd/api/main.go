package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"presentsmart/internal/account"
	"presentsmart/internal/api"
	"presentsmart/internal/attendance"
	"presentsmart/internal/auth"
	"presentsmart/internal/config"
	"presentsmart/internal/logger"
	"presentsmart/internal/metrics"
	"presentsmart/internal/notify"
	"presentsmart/internal/queue"
	"presentsmart/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := run(cfg, zl); err != nil {
		zl.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.App, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db.Client, zl); err != nil {
		return err
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := map[string]api.Checker{"db": db}
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(rdb.Client, cfg.QueueKey)
		checks["redis"] = rdb
	}
	notifier := notify.New(notify.NewQueueMailer(q), cfg.FrontendURL)

	signer := auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	accounts := account.NewRepository(db.Client)
	accountSvc := account.NewService(accounts, signer, notifier, zl, cfg.InviteTTL)

	attRepo := attendance.NewRepository(db.Client)
	registry := attendance.NewRegistry(attRepo, accounts, cfg.CodeTTL, zl, m)
	ledger := attendance.NewLedger(registry, attRepo, attRepo, accounts, attendance.LedgerOptions{
		HistoryLimit: cfg.HistoryLimit,
		WindowDays:   cfg.StatsWindowDays,
		Location:     cfg.Location(),
	}, zl, m)

	// Single-process mode: no worker drains the in-memory queue or reaps codes.
	if cfg.QueueBackend == "memory" {
		dispatcher := notify.NewDispatcher(q, deliveryMailer(cfg, zl), zl, m)
		go func() {
			if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("dispatcher stopped", zap.Error(err))
			}
		}()
		reaper := attendance.NewReaper(attRepo, cfg.CodeRetention, zl, m)
		if err := reaper.Start(cfg.ReapSchedule); err != nil {
			return err
		}
		defer func() { <-reaper.Stop().Done() }()
	}

	h := api.NewHandler(accountSvc, registry, ledger, checks, zl)
	router := api.NewRouter(h, signer, api.RouterOptions{
		CORSOrigins:     cfg.CORSOrigins,
		TrustedProxies:  cfg.TrustedProxies,
		Production:      cfg.Production(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		Metrics:         m,
		Gatherer:        reg,
		Log:             zl,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("api listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func deliveryMailer(cfg config.App, zl *zap.Logger) notify.Mailer {
	if cfg.ResendAPIKey == "" {
		zl.Warn("RESEND_API_KEY not set, emails are logged instead of sent")
		return notify.NewLogMailer(zl)
	}
	return notify.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
}
