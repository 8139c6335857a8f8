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
	"go.uber.org/zap"

	"github.com/suryadaiv/playground-server/internal/api"
	"github.com/suryadaiv/playground-server/internal/collab"
	"github.com/suryadaiv/playground-server/internal/config"
	"github.com/suryadaiv/playground-server/internal/judge"
	"github.com/suryadaiv/playground-server/internal/logger"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	judgeClient := judge.NewClient(judge.Config{
		BaseURL: cfg.Judge0BaseURL,
		APIKey:  cfg.Judge0APIKey,
	})
	handler := api.NewHandler(judgeClient, judge.Options{
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.RunTimeout,
	}, zlog)

	broker := collab.NewBroker(zlog, cfg.SessionIdleThreshold, cfg.SweepInterval, cfg.MaxParticipants)
	wsHandler := collab.NewHandler(broker, zlog, cfg.AllowedOrigins())

	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, handler, wsHandler, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimiter:    api.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go broker.RunSweeper(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zlog.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("judge0", cfg.Judge0BaseURL),
			zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("shutdown incomplete", zap.Error(err))
	}
}
