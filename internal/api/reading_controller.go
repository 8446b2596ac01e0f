package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReadingController 血糖读数查询控制器
type ReadingController struct {
	readings repository.ReadingRepository
}

// NewReadingController 创建读数控制器
func NewReadingController(readings repository.ReadingRepository) *ReadingController {
	return &ReadingController{readings: readings}
}

// listReadingsQuery 读数列表查询参数
type listReadingsQuery struct {
	State    string `form:"state" binding:"omitempty,oneof=pending uploaded failed"`
	BatchID  string `form:"batch_id"`
	Start    string `form:"start" binding:"omitempty"`
	End      string `form:"end" binding:"omitempty"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=200"`
}

// List 分页查询读数
func (c *ReadingController) List(ctx *gin.Context) {
	var query listReadingsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	filter := &repository.ReadingFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.State != "" {
		filter.State = &query.State
	}
	if query.BatchID != "" {
		filter.BatchID = &query.BatchID
	}
	if query.Start != "" {
		start, err := time.Parse(time.RFC3339, query.Start)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid start time", err.Error())
			return
		}
		filter.StartTime = &start
	}
	if query.End != "" {
		end, err := time.Parse(time.RFC3339, query.End)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid end time", err.Error())
			return
		}
		filter.EndTime = &end
	}

	readings, total, err := c.readings.FindByFilter(filter)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list readings", err.Error())
		return
	}

	totalPage := int(total) / query.PageSize
	if int(total)%query.PageSize > 0 {
		totalPage++
	}

	Paginated(ctx, readings, PaginationInfo{
		Page:      query.Page,
		PageSize:  query.PageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// Get 查询单条读数
func (c *ReadingController) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	reading, err := c.readings.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(ctx, http.StatusNotFound, "reading not found", id)
			return
		}
		Error(ctx, http.StatusInternalServerError, "failed to get reading", err.Error())
		return
	}

	Success(ctx, reading)
}
