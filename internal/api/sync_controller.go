package api

import (
	"net/http"
	"strconv"

	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/awdoty/GlucoseUploader-sub002/internal/uploader"
	"github.com/gin-gonic/gin"
)

// SyncController 同步控制器
type SyncController struct {
	uploadService *uploader.Service
	logs          repository.UploadLogRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(uploadService *uploader.Service, logs repository.UploadLogRepository) *SyncController {
	return &SyncController{
		uploadService: uploadService,
		logs:          logs,
	}
}

// Trigger 立即执行一次同步
// 权限不足不视为错误,结果中的 status 字段携带权限状态
func (c *SyncController) Trigger(ctx *gin.Context) {
	result, err := c.uploadService.SyncPending(ctx.Request.Context())
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "sync failed", err.Error())
		return
	}

	Success(ctx, result)
}

// Logs 查询最近的上传日志
func (c *SyncController) Logs(ctx *gin.Context) {
	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			Error(ctx, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = parsed
	}

	entries, err := c.logs.FindRecent(limit)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list upload logs", err.Error())
		return
	}

	Success(ctx, entries)
}
