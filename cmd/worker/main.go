package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"presentsmart/internal/attendance"
	"presentsmart/internal/config"
	"presentsmart/internal/logger"
	"presentsmart/internal/notify"
	"presentsmart/internal/queue"
	"presentsmart/internal/store"
)

// Worker delivers queued notification emails and purges old attendance codes.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	reaper := attendance.NewReaper(attendance.NewRepository(db.Client), cfg.CodeRetention, zl, nil)
	if err := reaper.Start(cfg.ReapSchedule); err != nil {
		zl.Fatal("reaper schedule rejected", zap.Error(err))
	}
	defer func() { <-reaper.Stop().Done() }()

	if cfg.QueueBackend == "memory" {
		zl.Warn("QUEUE_BACKEND=memory: the api delivers its own email, worker only reaps codes")
		<-ctx.Done()
		return
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		zl.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	mailer := notify.Mailer(notify.NewLogMailer(zl))
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
	}
	dispatcher := notify.NewDispatcher(queue.NewRedisQueue(rdb.Client, cfg.QueueKey), mailer, zl, nil)

	zl.Info("worker started", zap.String("queue", cfg.QueueKey))
	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("dispatcher stopped", zap.Error(err))
	}
	zl.Info("worker stopped")
}
