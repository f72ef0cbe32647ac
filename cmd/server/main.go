package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jengzang/simplegis/internal/api"
	"github.com/jengzang/simplegis/internal/cache"
	"github.com/jengzang/simplegis/internal/config"
	"github.com/jengzang/simplegis/internal/database"
	"github.com/jengzang/simplegis/internal/logger"
	"github.com/jengzang/simplegis/internal/metrics"
	"github.com/jengzang/simplegis/internal/middleware"
	"github.com/jengzang/simplegis/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if logger.ParseLevel(cfg.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据源
	src, err := database.Open(cfg.Database())
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []service.Option{service.WithMetrics(metrics.New(reg)), service.WithLogger(log)}
	if cfg.CacheEnabled() {
		rc, err := cache.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return err
		}
		defer rc.Close()
		opts = append(opts, service.WithCache(rc))
		log.Info("result cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}
	svc := service.NewQueryService(src, cfg.MaxRows, opts...)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		defer limiter.Stop()
	}

	// 初始化路由
	router, err := api.SetupRouter(cfg, api.Deps{
		Source:   src,
		Service:  svc,
		Gatherer: reg,
		Logger:   log,
		Limiter:  limiter,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		// 启动服务器
		log.Info("server starting", "addr", srv.Addr, "source", src.Kind(), "max_rows", cfg.MaxRows)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
