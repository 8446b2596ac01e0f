package api

import (
	"github.com/awdoty/GlucoseUploader-sub002/internal/auth"
	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/awdoty/GlucoseUploader-sub002/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Controllers 路由依赖的控制器集合
type Controllers struct {
	Import  *ImportController
	Reading *ReadingController
	Sync    *SyncController
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, db *gorm.DB, store *healthstore.Client, gate *permissions.Gate, ctls Controllers, hub *websocket.Hub, validator *auth.TokenValidator) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(SecurityHeadersMiddleware())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	}
	router.Use(RateLimitMiddleware(100, 200))

	// 健康检查
	healthController := NewHealthController(db, store)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由:同步进度推送
	if hub != nil {
		router.GET("/ws/sync", websocket.SyncProgressHandler(hub, validator))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if cfg.Auth.Enabled && validator != nil {
		v1.Use(auth.AuthMiddleware(validator))
	}
	{
		// 权限门路由
		permissionController := NewPermissionController(gate)
		perms := v1.Group("/permissions")
		{
			perms.GET("/status", permissionController.Status)
			perms.POST("/request", permissionController.RequestRequired)
			perms.POST("/request/:permission", permissionController.RequestOptional)
			perms.GET("/optional/:permission", permissionController.HasOptional)
			perms.POST("/revoke", permissionController.RevokeAll)
		}

		// CSV 导入路由
		imports := v1.Group("/imports")
		{
			imports.POST("", ctls.Import.Upload)
			imports.GET("", ctls.Import.List)
			imports.GET("/:id", ctls.Import.Get)
		}

		// 读数查询路由
		readings := v1.Group("/readings")
		{
			readings.GET("", ctls.Reading.List)
			readings.GET("/:id", ctls.Reading.Get)
		}

		// 同步路由
		sync := v1.Group("/sync")
		{
			sync.POST("", ctls.Sync.Trigger)
			sync.GET("/logs", ctls.Sync.Logs)
		}
	}

	return router
}
