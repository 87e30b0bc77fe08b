// cmd/toolplug/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hhamzie/toolplug/internal/catalog"
	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/database"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/dispatch"
	"github.com/hhamzie/toolplug/internal/editorial"
	"github.com/hhamzie/toolplug/internal/feedback"
	"github.com/hhamzie/toolplug/internal/mailer"
	"github.com/hhamzie/toolplug/internal/pipeline"
	"github.com/hhamzie/toolplug/internal/server"
	"github.com/hhamzie/toolplug/internal/store"
	"github.com/hhamzie/toolplug/internal/subscribers"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting toolplug...",
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.HTTP.Address),
	)

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := database.Migrate(ctx, pg.DB); err != nil {
		zapLog.Fatal("database migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init SES mailer ---
	sesMailer, err := mailer.NewSESMailer(ctx, cfg.Mail.AWS.Region, cfg.Mail.FromEmail, cfg.Mail.FromName)
	if err != nil {
		zapLog.Fatal("ses mailer init failed", zap.Error(err))
	}
	zapLog.Info("SES mailer ready", zap.String("region", cfg.Mail.AWS.Region))

	// --- Wire application services ---
	feed := catalog.NewClient(&catalog.Config{
		URL:              cfg.Catalog.URL,
		Token:            cfg.Catalog.Token,
		PageDelay:        config.GetDuration(cfg.Catalog.PageDelay),
		MaxRateLimitWait: config.GetDuration(cfg.Catalog.MaxRateLimitWait),
		Timeout:          config.GetDuration(cfg.Catalog.Timeout),
	}, log)

	generator := editorial.NewGenerator(&cfg.GenAI, log)
	pickStore := store.New(pg.DB, rdb.Client, log)
	subsService := subscribers.New(pg.DB, sesMailer, cfg, log)
	feedbackService := feedback.New(pg.DB, log)
	pipe := pipeline.New(feed, generator, pickStore, cfg, log)
	engine := dispatch.New(pg.DB, pickStore, subsService, sesMailer, cfg, log)

	srv := server.New(cfg, subsService, feedbackService, pipe, engine, pickStore, log)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
