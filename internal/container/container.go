package container

import (
	"fmt"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/auth"
	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/database"
	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
	"github.com/awdoty/GlucoseUploader-sub002/internal/importer"
	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/awdoty/GlucoseUploader-sub002/internal/scheduler"
	"github.com/awdoty/GlucoseUploader-sub002/internal/uploader"
	"github.com/awdoty/GlucoseUploader-sub002/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、客户端等
type Container struct {
	db             *gorm.DB
	store          *healthstore.Client
	gate           *permissions.Gate
	readings       repository.ReadingRepository
	batches        repository.ImportBatchRepository
	uploadLogs     repository.UploadLogRepository
	importService  *importer.Service
	uploadService  *uploader.Service
	watcher        *importer.Watcher
	syncScheduler  *scheduler.SyncScheduler
	hub            *websocket.Hub
	tokenValidator *auth.TokenValidator
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.New()
	}

	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化健康数据存储客户端
	// 存储此时不可达不阻止启动:上传路径对存储故障失败关闭
	store, err := healthstore.NewClient(cfg.HealthStore)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize health store client: %w", err)
	}

	// 3. 初始化权限门
	gate := permissions.NewGate(cfg.HealthStore, logger)

	// 4. 初始化仓储
	readings := repository.NewReadingRepository(db)
	batches := repository.NewImportBatchRepository(db)
	uploadLogs := repository.NewUploadLogRepository(db)

	// 5. 初始化导入服务
	importService := importer.NewService(readings, batches, cfg.Importer.MaxFileSize, logger)

	var watcher *importer.Watcher
	if cfg.Importer.WatchDir != "" {
		watcher = importer.NewWatcher(importService, cfg.Importer.WatchDir, cfg.Importer.ArchiveDir, logger)
	}

	// 6. 初始化上传服务与 WebSocket 进度推送
	uploadService := uploader.NewService(gate, store, readings, uploadLogs, cfg.Sync.BatchSize, logger)
	hub := websocket.NewHub()
	uploadService.SetProgressSink(websocket.NewProgressPublisher(hub))

	// 7. 初始化同步调度器
	syncScheduler := scheduler.NewSyncScheduler(uploadService, &scheduler.SyncScheduleConfig{
		SyncEnabled:      cfg.Sync.Enabled,
		SyncInterval:     time.Duration(cfg.Sync.Interval) * time.Second,
		LogRetentionDays: cfg.Sync.LogRetentionDays,
	}, logger)

	// 8. 初始化 Token 验证器
	var tokenValidator *auth.TokenValidator
	if cfg.Auth.Enabled {
		tokenValidator = auth.NewTokenValidator(cfg.Auth.Issuer, cfg.Auth.JWKSURL)
	}

	return &Container{
		db:             db,
		store:          store,
		gate:           gate,
		readings:       readings,
		batches:        batches,
		uploadLogs:     uploadLogs,
		importService:  importService,
		uploadService:  uploadService,
		watcher:        watcher,
		syncScheduler:  syncScheduler,
		hub:            hub,
		tokenValidator: tokenValidator,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// HealthStore 获取健康数据存储客户端
func (c *Container) HealthStore() *healthstore.Client {
	return c.store
}

// Gate 获取权限门
func (c *Container) Gate() *permissions.Gate {
	return c.gate
}

// ReadingRepository 获取读数仓储
func (c *Container) ReadingRepository() repository.ReadingRepository {
	return c.readings
}

// ImportBatchRepository 获取导入批次仓储
func (c *Container) ImportBatchRepository() repository.ImportBatchRepository {
	return c.batches
}

// UploadLogRepository 获取上传日志仓储
func (c *Container) UploadLogRepository() repository.UploadLogRepository {
	return c.uploadLogs
}

// ImportService 获取导入服务
func (c *Container) ImportService() *importer.Service {
	return c.importService
}

// UploadService 获取上传服务
func (c *Container) UploadService() *uploader.Service {
	return c.uploadService
}

// Watcher 获取目录监听器,未配置监听目录时为 nil
func (c *Container) Watcher() *importer.Watcher {
	return c.watcher
}

// SyncScheduler 获取同步调度器
func (c *Container) SyncScheduler() *scheduler.SyncScheduler {
	return c.syncScheduler
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TokenValidator 获取 Token 验证器,认证未启用时为 nil
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.syncScheduler != nil {
		c.syncScheduler.Stop()
	}
	if c.watcher != nil {
		c.watcher.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
