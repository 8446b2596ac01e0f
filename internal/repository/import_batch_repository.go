package repository

import (
	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"gorm.io/gorm"
)

// ImportBatchRepository 导入批次仓储接口
type ImportBatchRepository interface {
	Save(batch *model.ImportBatchModel) error
	FindByID(id string) (*model.ImportBatchModel, error)
	FindByChecksum(checksum string) (*model.ImportBatchModel, error)
	FindAll() ([]*model.ImportBatchModel, error)
}

// importBatchRepository 导入批次仓储实现
type importBatchRepository struct {
	db *gorm.DB
}

// NewImportBatchRepository 创建导入批次仓储
func NewImportBatchRepository(db *gorm.DB) ImportBatchRepository {
	return &importBatchRepository{db: db}
}

// Save 保存批次
func (r *importBatchRepository) Save(batch *model.ImportBatchModel) error {
	return r.db.Save(batch).Error
}

// FindByID 根据 ID 查找批次
func (r *importBatchRepository) FindByID(id string) (*model.ImportBatchModel, error) {
	var batch model.ImportBatchModel
	if err := r.db.Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindByChecksum 根据文件校验和查找批次,用于重复导入检测
func (r *importBatchRepository) FindByChecksum(checksum string) (*model.ImportBatchModel, error) {
	var batch model.ImportBatchModel
	if err := r.db.Where("checksum = ?", checksum).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindAll 查找所有批次
func (r *importBatchRepository) FindAll() ([]*model.ImportBatchModel, error) {
	var batches []*model.ImportBatchModel
	err := r.db.Order("created_at DESC").Find(&batches).Error
	return batches, err
}
