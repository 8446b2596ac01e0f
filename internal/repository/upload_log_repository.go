package repository

import (
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"gorm.io/gorm"
)

// UploadLogRepository 上传日志仓储接口
type UploadLogRepository interface {
	Save(entry *model.UploadLogModel) error
	FindRecent(limit int) ([]*model.UploadLogModel, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// uploadLogRepository 上传日志仓储实现
type uploadLogRepository struct {
	db *gorm.DB
}

// NewUploadLogRepository 创建上传日志仓储
func NewUploadLogRepository(db *gorm.DB) UploadLogRepository {
	return &uploadLogRepository{db: db}
}

// Save 保存日志
func (r *uploadLogRepository) Save(entry *model.UploadLogModel) error {
	return r.db.Save(entry).Error
}

// FindRecent 查找最近的上传日志
func (r *uploadLogRepository) FindRecent(limit int) ([]*model.UploadLogModel, error) {
	var entries []*model.UploadLogModel
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// DeleteOlderThan 删除早于 cutoff 的日志,返回删除条数
func (r *uploadLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&model.UploadLogModel{})
	return result.RowsAffected, result.Error
}
