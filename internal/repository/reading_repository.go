package repository

import (
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"gorm.io/gorm"
)

// ReadingRepository 血糖读数仓储接口
type ReadingRepository interface {
	Save(reading *model.GlucoseReadingModel) error
	SaveBatch(readings []*model.GlucoseReadingModel) error
	FindByID(id string) (*model.GlucoseReadingModel, error)
	FindPending(limit int) ([]*model.GlucoseReadingModel, error)
	FindByFilter(filter *ReadingFilter) ([]*model.GlucoseReadingModel, int64, error)
	MarkUploaded(ids []string, uploadedAt time.Time) error
	MarkFailed(ids []string) error
}

// ReadingFilter 读数查询过滤器
type ReadingFilter struct {
	State     *string
	BatchID   *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// readingRepository 血糖读数仓储实现
type readingRepository struct {
	db *gorm.DB
}

// NewReadingRepository 创建血糖读数仓储
func NewReadingRepository(db *gorm.DB) ReadingRepository {
	return &readingRepository{db: db}
}

// Save 保存读数
func (r *readingRepository) Save(reading *model.GlucoseReadingModel) error {
	return r.db.Save(reading).Error
}

// SaveBatch 批量保存读数
func (r *readingRepository) SaveBatch(readings []*model.GlucoseReadingModel) error {
	if len(readings) == 0 {
		return nil
	}
	return r.db.Create(readings).Error
}

// FindByID 根据 ID 查找读数
func (r *readingRepository) FindByID(id string) (*model.GlucoseReadingModel, error) {
	var reading model.GlucoseReadingModel
	if err := r.db.Where("id = ?", id).First(&reading).Error; err != nil {
		return nil, err
	}
	return &reading, nil
}

// FindPending 查找待上传读数,按测量时间升序
func (r *readingRepository) FindPending(limit int) ([]*model.GlucoseReadingModel, error) {
	var readings []*model.GlucoseReadingModel
	query := r.db.Where("state = ?", model.ReadingStatePending).Order("measured_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&readings).Error
	return readings, err
}

// FindByFilter 根据过滤器查找读数,返回总数用于分页
func (r *readingRepository) FindByFilter(filter *ReadingFilter) ([]*model.GlucoseReadingModel, int64, error) {
	var readings []*model.GlucoseReadingModel
	query := r.db.Model(&model.GlucoseReadingModel{})

	if filter != nil {
		if filter.State != nil {
			query = query.Where("state = ?", *filter.State)
		}
		if filter.BatchID != nil {
			query = query.Where("batch_id = ?", *filter.BatchID)
		}
		if filter.StartTime != nil {
			query = query.Where("measured_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("measured_at <= ?", *filter.EndTime)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	err := query.Order("measured_at DESC").Find(&readings).Error
	return readings, total, err
}

// MarkUploaded 标记读数为已上传
func (r *readingRepository) MarkUploaded(ids []string, uploadedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&model.GlucoseReadingModel{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"state":       model.ReadingStateUploaded,
			"uploaded_at": uploadedAt,
		}).Error
}

// MarkFailed 标记读数为上传失败
func (r *readingRepository) MarkFailed(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&model.GlucoseReadingModel{}).
		Where("id IN ?", ids).
		Update("state", model.ReadingStateFailed).Error
}
