package model

import (
	"errors"
	"time"
)

// 读数上传状态
const (
	ReadingStatePending  = "pending"  // 待上传
	ReadingStateUploaded = "uploaded" // 已上传
	ReadingStateFailed   = "failed"   // 上传失败
)

// GlucoseReadingModel 血糖读数数据模型
type GlucoseReadingModel struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)"`
	BatchID        string     `gorm:"type:varchar(64);not null;index"` // 所属导入批次
	MeasuredAt     time.Time  `gorm:"not null;index"`                  // 测量时间
	ValueMgdl      float64    `gorm:"not null"`                        // 血糖值 mg/dL
	SpecimenSource string     `gorm:"type:varchar(32)"`                // 采样来源
	MealRelation   string     `gorm:"type:varchar(32)"`                // 与用餐的关系
	Notes          string     `gorm:"type:text"`
	State          string     `gorm:"type:varchar(32);not null;index"` // 上传状态
	UploadedAt     *time.Time `gorm:"index"`                           // 上传时间
	CreatedAt      time.Time  `gorm:"not null;index"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName 指定表名
func (GlucoseReadingModel) TableName() string {
	return "glucose_readings"
}

// Validate 验证读数模型
func (m *GlucoseReadingModel) Validate() error {
	if m.ID == "" {
		return errors.New("reading ID is required")
	}
	if m.BatchID == "" {
		return errors.New("batch ID is required")
	}
	if m.MeasuredAt.IsZero() {
		return errors.New("measured time is required")
	}
	if m.ValueMgdl <= 0 {
		return errors.New("glucose value must be positive")
	}
	if m.State == "" {
		return errors.New("reading state is required")
	}
	return nil
}
