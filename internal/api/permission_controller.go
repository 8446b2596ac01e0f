package api

import (
	"net/http"

	"github.com/awdoty/GlucoseUploader-sub002/internal/metrics"
	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/gin-gonic/gin"
)

// PermissionController 权限控制器
// 暴露权限门的状态查询与申请/撤销操作
type PermissionController struct {
	gate *permissions.Gate
}

// NewPermissionController 创建权限控制器
func NewPermissionController(gate *permissions.Gate) *PermissionController {
	return &PermissionController{gate: gate}
}

// permissionStatusResponse 权限状态响应
type permissionStatusResponse struct {
	Status    permissions.Status `json:"status"`
	Available bool               `json:"available"`
	Required  []string           `json:"required"`
	Missing   []string           `json:"missing"`
}

// Status 查询必需权限状态
func (c *PermissionController) Status(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()

	status := c.gate.StatusRequired(reqCtx)
	metrics.RecordPermissionCheck(string(status))

	Success(ctx, permissionStatusResponse{
		Status:    status,
		Available: c.gate.IsServiceAvailable(reqCtx),
		Required:  c.gate.Required().Strings(),
		Missing:   c.gate.MissingRequired(reqCtx).Strings(),
	})
}

// RequestRequired 申请全部必需权限
// 申请是 fire-and-forget,接口立即返回,调用方之后轮询 Status
func (c *PermissionController) RequestRequired(ctx *gin.Context) {
	c.gate.RequestRequired(ctx.Request.Context(), nil)
	ctx.JSON(http.StatusAccepted, Response{
		Code:    0,
		Message: "permission request launched",
	})
}

// RequestOptional 申请单个可选权限
func (c *PermissionController) RequestOptional(ctx *gin.Context) {
	perm := permissions.Permission(ctx.Param("permission"))
	if !permissions.OptionalSet().Contains(perm) {
		Error(ctx, http.StatusBadRequest, "unknown optional permission", string(perm))
		return
	}

	c.gate.RequestOptional(ctx.Request.Context(), perm)
	ctx.JSON(http.StatusAccepted, Response{
		Code:    0,
		Message: "permission request launched",
	})
}

// HasOptional 查询单个可选权限
func (c *PermissionController) HasOptional(ctx *gin.Context) {
	perm := permissions.Permission(ctx.Param("permission"))
	if !permissions.OptionalSet().Contains(perm) {
		Error(ctx, http.StatusBadRequest, "unknown optional permission", string(perm))
		return
	}

	Success(ctx, gin.H{
		"permission": perm,
		"granted":    c.gate.HasOptional(ctx.Request.Context(), perm),
	})
}

// RevokeAll 撤销全部权限
func (c *PermissionController) RevokeAll(ctx *gin.Context) {
	c.gate.RevokeAll(ctx.Request.Context())
	Success(ctx, gin.H{"revoked": true})
}
