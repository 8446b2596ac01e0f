package api

import (
	"errors"
	"net/http"

	"github.com/awdoty/GlucoseUploader-sub002/internal/importer"
	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ImportController CSV 导入控制器
type ImportController struct {
	service *importer.Service
	batches repository.ImportBatchRepository
}

// NewImportController 创建导入控制器
func NewImportController(service *importer.Service, batches repository.ImportBatchRepository) *ImportController {
	return &ImportController{
		service: service,
		batches: batches,
	}
}

// Upload 上传并导入 CSV 文件
func (c *ImportController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		Error(ctx, http.StatusBadRequest, "missing csv file", err.Error())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to open uploaded file", err.Error())
		return
	}
	defer f.Close()

	batch, err := c.service.ImportReader(ctx.Request.Context(), fileHeader.Filename, f)
	if err != nil {
		if errors.Is(err, importer.ErrDuplicateFile) {
			Error(ctx, http.StatusConflict, "file already imported", batch.ID)
			return
		}
		Error(ctx, http.StatusBadRequest, "csv import failed", err.Error())
		return
	}

	Success(ctx, batch)
}

// List 查询导入批次列表
func (c *ImportController) List(ctx *gin.Context) {
	batches, err := c.batches.FindAll()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list import batches", err.Error())
		return
	}
	Success(ctx, batches)
}

// Get 查询单个导入批次
func (c *ImportController) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	batch, err := c.batches.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(ctx, http.StatusNotFound, "import batch not found", id)
			return
		}
		Error(ctx, http.StatusInternalServerError, "failed to get import batch", err.Error())
		return
	}

	Success(ctx, batch)
}
