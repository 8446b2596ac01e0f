package api

import (
	"context"
	"net/http"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db    *gorm.DB
	store *healthstore.Client
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, store *healthstore.Client) *HealthController {
	return &HealthController{
		db:    db,
		store: store,
	}
}

// Check 健康检查
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	// 检查数据库连接
	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// 检查健康数据存储连接
	// 存储不可达不影响服务整体健康:导入与查询仍然可用,只是上传会失败关闭
	if c.store != nil {
		if c.store.CheckHealth(ctx.Request.Context()) {
			checks["healthstore"] = "healthy"
		} else {
			checks["healthstore"] = "unreachable"
		}
	} else {
		checks["healthstore"] = "not configured"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// checkDatabase 检查数据库连接
func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
