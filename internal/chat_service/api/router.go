package api

import (
	"Mimic_1.0/internal/config"
	"Mimic_1.0/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, cfg *config.MiddlewareConfig) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	r.GET("/healthz", h.Health)

	// 使用 v1 版本对 API 进行分组
	apiV1 := r.Group("/api/v1")
	{
		chat := apiV1.Group("/chat")
		if cfg.RateLimiter.Enabled {
			limiter := ratelimiter.NewTokenBucket(cfg.RateLimiter.Rate, cfg.RateLimiter.Capacity)
			chat.Use(RateLimitMiddleware(limiter))
		}
		{
			chat.POST("", h.Chat)
		}

		apiV1.GET("/trace/:trace_id", h.Trace)

		personas := apiV1.Group("/personas")
		{
			personas.GET("", h.ListPersonas)
			personas.POST("/switch", h.SwitchPersona)
			personas.POST("/:name/taboos", h.UpdateTaboos)
		}
	}

	return r
}
