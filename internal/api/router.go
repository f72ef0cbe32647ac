package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/simplegis/internal/config"
	"github.com/jengzang/simplegis/internal/database"
	"github.com/jengzang/simplegis/internal/handler"
	"github.com/jengzang/simplegis/internal/middleware"
	"github.com/jengzang/simplegis/internal/service"
)

// Deps 路由依赖
type Deps struct {
	Source   database.Source
	Service  *service.QueryService
	Gatherer prometheus.Gatherer // nil 时不暴露 /metrics
	Logger   *slog.Logger
	Limiter  *middleware.RateLimiter // nil 时不限流，由调用方负责 Stop
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(deps.Logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", handler.NewHealthHandler(deps.Source.Kind()).Health)

	if cfg.Metrics && deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// 鉴权与限流，查询接口和 SQL 调试页面共用
	var guard []gin.HandlerFunc
	if cfg.JWTSecret != "" {
		guard = append(guard, middleware.Auth(cfg.JWTSecret))
	}
	if deps.Limiter != nil {
		guard = append(guard, middleware.RateLimit(deps.Limiter))
	}

	// 查询接口
	r.POST("/query/", append(guard, handler.NewQueryHandler(deps.Service).Query)...)

	// SQL 调试页面
	if cfg.DebugSQL {
		if err := mountDebugSQL(r.Group("", guard...), deps.Source); err != nil {
			return nil, fmt.Errorf("failed to mount debug sql: %w", err)
		}
	}

	return r, nil
}
