package model

import (
	"errors"
	"time"
)

// 导入批次状态
const (
	BatchStateImported = "imported" // 解析完成
	BatchStatePartial  = "partial"  // 部分行被拒绝
	BatchStateRejected = "rejected" // 全部行被拒绝
)

// ImportBatchModel 导入批次数据模型
// 一次 CSV 文件导入产生一个批次
type ImportBatchModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	FileName     string    `gorm:"type:varchar(255);not null;index"`
	Checksum     string    `gorm:"type:varchar(64);index"` // 文件内容 SHA-256
	State        string    `gorm:"type:varchar(32);not null;index"`
	RowsTotal    int       `gorm:"not null"`
	RowsParsed   int       `gorm:"not null"`
	RowsRejected int       `gorm:"not null"`
	Errors       string    `gorm:"type:text"` // 行级错误,每行一条
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ImportBatchModel) TableName() string {
	return "import_batches"
}

// Validate 验证批次模型
func (m *ImportBatchModel) Validate() error {
	if m.ID == "" {
		return errors.New("batch ID is required")
	}
	if m.FileName == "" {
		return errors.New("file name is required")
	}
	if m.State == "" {
		return errors.New("batch state is required")
	}
	return nil
}
