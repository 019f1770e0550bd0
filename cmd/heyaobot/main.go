package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/heyao-tools/heyaobot/internal/bot"
	"github.com/heyao-tools/heyaobot/internal/config"
	"github.com/heyao-tools/heyaobot/internal/heyao"
	"github.com/heyao-tools/heyaobot/internal/onebot"
	"github.com/heyao-tools/heyaobot/internal/web"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize services
	var images heyao.PointerStore = heyao.NewMemoryPointerStore()
	if cfg.Redis.Addr != "" {
		images = heyao.NewRedisPointerStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		logger.Info("Using redis-backed image pointer store", zap.String("addr", cfg.Redis.Addr))
	}

	renderer := heyao.NewImageRenderer(cfg.Plugin.BaseDir, logger)
	apiClient := heyao.NewClient(logger)
	plugin := heyao.New(apiClient, renderer, images, logger)

	obClient := onebot.NewClient(onebot.Options{
		URL:            cfg.OneBot.URL,
		AccessToken:    cfg.OneBot.AccessToken,
		ReconnectDelay: cfg.OneBot.ReconnectDelay,
		APITimeout:     cfg.OneBot.APITimeout,
	}, logger)

	gateway := bot.NewGateway(obClient, logger)
	gateway.Register(plugin)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional debug HTTP server
	var server *http.Server
	if cfg.Web.Addr != "" {
		gin.SetMode(gin.ReleaseMode)
		router := web.NewRouter(web.NewDebugHandler(apiClient, renderer, logger), logger)
		server = &http.Server{
			Addr:         cfg.Web.Addr,
			ReadTimeout:  cfg.Web.ReadTimeout,
			WriteTimeout: cfg.Web.WriteTimeout,
			Handler:      router.SetupRoutes(),
		}
		go func() {
			logger.Info("Starting debug server", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Debug server failed to start", zap.Error(err))
			}
		}()
	}

	logger.Info("heyaobot starting",
		zap.String("onebot_url", cfg.OneBot.URL),
		zap.String("base_dir", cfg.Plugin.BaseDir))
	if err := gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Gateway stopped", zap.Error(err))
	}

	logger.Info("Shutting down...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Debug server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("heyaobot exited")
}
