// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/utils"
)

const rateLimitWindow = time.Minute

// SetupRouter 配置HTTP路由
func SetupRouter(h *Handler, cfg *config.AppConfig, metrics *utils.MetricsCollector) *gin.Engine {
	if !cfg.DebugMode && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware(metrics))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.GetLogger().Error("请求处理发生 panic", map[string]interface{}{
			"request_id": c.GetString(ctxRequestIDKey),
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		})
		h.Response.Error(c, http.StatusInternalServerError, ErrorInternal, "error.internal")
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(LanguageMiddleware(cfg.DefaultLanguage))

	r.NoRoute(func(c *gin.Context) { h.Response.NotFound(c) })

	// 运维
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	optionalAuth := OptionalAuthMiddleware(h.Auth)
	requireAuth := AuthMiddleware(h.Auth, h.Response)
	limited := RateLimitByUser(h.Limiter, h.Response, cfg.RateLimitPerMinute, rateLimitWindow)

	r.GET("/language/:lang", optionalAuth, h.SetLanguage)

	// WebSocket：浏览器用 ?access_token= 传令牌
	r.GET("/ws/wizard/:id", requireAuth, h.WizardWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// 公开接口
		api.GET("/i18n/:lang", h.GetDictionary)
		api.GET("/catalog", optionalAuth, h.GetCatalog)
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		authed := api.Group("", requireAuth)
		{
			authed.GET("/auth/me", h.Me)

			// 向导会话
			wizardGroup := authed.Group("/wizard")
			{
				wizardGroup.GET("", h.ListWizardSessions)
				wizardGroup.POST("", h.CreateWizardSession)
				wizardGroup.GET("/:id", h.GetWizardSession)
				wizardGroup.PUT("/:id/fields", h.UpdateWizardFields)
				wizardGroup.POST("/:id/advance", h.AdvanceWizard)
				wizardGroup.POST("/:id/retreat", h.RetreatWizard)
				wizardGroup.POST("/:id/reset", h.ResetWizard)
				wizardGroup.POST("/:id/generate", limited, h.GenerateWizardContent)
				wizardGroup.DELETE("/:id", h.DeleteWizardSession)
			}

			// 无状态生成类接口
			authed.POST("/generate/preview", limited, h.PreviewContent)
			authed.POST("/translate", limited, h.Translate)
			authed.POST("/topics/generate", limited, h.GenerateTopics)

			// 内容库
			libraryGroup := authed.Group("/library")
			{
				libraryGroup.GET("", h.ListPosts)
				libraryGroup.POST("", h.SavePost)
				libraryGroup.GET("/:id", h.GetPost)
				libraryGroup.DELETE("/:id", h.DeletePost)
				libraryGroup.GET("/:id/export", h.ExportPost)
			}

			authed.GET("/dashboard/stats", h.GetDashboardStats)

			// 管理后台
			adminGroup := authed.Group("/admin", RequireAdmin(h.Response))
			{
				adminGroup.GET("/users", h.ListUsers)
				adminGroup.PUT("/users/:id", h.UpdateUser)
				adminGroup.DELETE("/users/:id", h.DeleteUser)
				adminGroup.GET("/settings", h.GetSettings)
				adminGroup.PUT("/settings", h.UpdateSettings)
				adminGroup.GET("/ws/status", h.WebSocketStatus)
			}
		}
	}

	return r
}

// corsConfig 未配置来源时允许全部来源（本地开发）
func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept-Language", requestIDHeader}
	c.ExposeHeaders = []string{requestIDHeader, "Content-Disposition", "X-RateLimit-Remaining"}
	c.AllowWebSockets = true

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
