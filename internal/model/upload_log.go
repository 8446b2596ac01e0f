package model

import (
	"errors"
	"time"
)

// 上传结果
const (
	UploadResultSuccess = "success"
	UploadResultFailed  = "failed"
	UploadResultDenied  = "denied" // 权限检查未通过
)

// UploadLogModel 上传日志数据模型
// 记录每次向健康数据存储的上传尝试
type UploadLogModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	Result       string    `gorm:"type:varchar(32);not null;index"`
	ReadingCount int       `gorm:"not null"` // 本次尝试上传的读数条数
	Inserted     int       `gorm:"not null"` // 存储端确认写入的条数
	Detail       string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (UploadLogModel) TableName() string {
	return "upload_logs"
}

// Validate 验证上传日志模型
func (m *UploadLogModel) Validate() error {
	if m.ID == "" {
		return errors.New("upload log ID is required")
	}
	if m.Result == "" {
		return errors.New("upload result is required")
	}
	return nil
}
