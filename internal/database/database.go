package database

import (
	"context"
	"fmt"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,
		MaxOpenConns:    200,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟（生产环境缩短空闲时间）
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := configurePool(db, cfg, GetPoolConfig()); err != nil {
		return nil, err
	}

	return db, nil
}

// ConnectProduction 连接数据库（生产环境配置）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := configurePool(db, cfg, GetProductionPoolConfig()); err != nil {
		return nil, err
	}

	return db, nil
}

// configurePool 配置连接池,配置缺省时回落到 fallback
func configurePool(db *gorm.DB, cfg config.DatabaseConfig, fallback *PoolConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if poolConfig.MaxIdleConns == 0 {
		poolConfig.MaxIdleConns = fallback.MaxIdleConns
	}
	if poolConfig.MaxOpenConns == 0 {
		poolConfig.MaxOpenConns = fallback.MaxOpenConns
	}
	if poolConfig.ConnMaxLifetime == 0 {
		poolConfig.ConnMaxLifetime = fallback.ConnMaxLifetime
	}
	if poolConfig.ConnMaxIdleTime == 0 {
		poolConfig.ConnMaxIdleTime = fallback.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return nil
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 使用手动建表,与 GORM SQLite dialector 的类型映射保持一致
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.GlucoseReadingModel{},
			&model.ImportBatchModel{},
			&model.UploadLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表
func createSQLiteTables(db *gorm.DB) error {
	// 创建 glucose_readings 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS glucose_readings (
			id VARCHAR(64) PRIMARY KEY,
			batch_id VARCHAR(64) NOT NULL,
			measured_at DATETIME NOT NULL,
			value_mgdl REAL NOT NULL,
			specimen_source VARCHAR(32),
			meal_relation VARCHAR(32),
			notes TEXT,
			state VARCHAR(32) NOT NULL,
			uploaded_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create glucose_readings table: %w", err)
	}

	// 创建 import_batches 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS import_batches (
			id VARCHAR(64) PRIMARY KEY,
			file_name VARCHAR(255) NOT NULL,
			checksum VARCHAR(64),
			state VARCHAR(32) NOT NULL,
			rows_total INTEGER NOT NULL,
			rows_parsed INTEGER NOT NULL,
			rows_rejected INTEGER NOT NULL,
			errors TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create import_batches table: %w", err)
	}

	// 创建 upload_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS upload_logs (
			id VARCHAR(64) PRIMARY KEY,
			result VARCHAR(32) NOT NULL,
			reading_count INTEGER NOT NULL,
			inserted INTEGER NOT NULL,
			detail TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create upload_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// glucose_readings 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_readings_state_measured ON glucose_readings(state, measured_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_readings_state_measured: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_readings_batch_id ON glucose_readings(batch_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_readings_batch_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_readings_uploaded_at ON glucose_readings(uploaded_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_readings_uploaded_at: %w", err)
	}

	// import_batches 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_checksum ON import_batches(checksum)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_checksum: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_created_at ON import_batches(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_created_at: %w", err)
	}

	// upload_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_upload_logs_result ON upload_logs(result)").Error; err != nil {
		return fmt.Errorf("failed to create idx_upload_logs_result: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_upload_logs_created_at ON upload_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_upload_logs_created_at: %w", err)
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	// 关闭旧连接
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	// 重新连接
	return Connect(cfg)
}
