package scheduler

import (
	"context"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/uploader"
	"github.com/sirupsen/logrus"
)

// SyncScheduler 同步调度器
// 定期上传待上传读数,并清理过期上传日志
type SyncScheduler struct {
	uploadService *uploader.Service
	config        *SyncScheduleConfig
	logger        *logrus.Logger
	stopChan      chan struct{}
}

// SyncScheduleConfig 同步计划配置
type SyncScheduleConfig struct {
	SyncEnabled      bool          // 是否启用定期同步
	SyncInterval     time.Duration // 同步间隔
	RunAtStart       bool          // 启动时是否立即执行一次
	LogRetentionDays int           // 上传日志保留天数
}

// NewSyncScheduler 创建同步调度器
func NewSyncScheduler(uploadService *uploader.Service, config *SyncScheduleConfig, logger *logrus.Logger) *SyncScheduler {
	if config == nil {
		config = &SyncScheduleConfig{
			SyncEnabled:      true,
			SyncInterval:     15 * time.Minute,
			RunAtStart:       true,
			LogRetentionDays: 30,
		}
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &SyncScheduler{
		uploadService: uploadService,
		config:        config,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动同步调度器
func (s *SyncScheduler) Start(ctx context.Context) error {
	if s.config.SyncEnabled {
		go s.scheduleSync(ctx)
	}

	// 启动日志清理调度
	go s.scheduleLogCleanup(ctx)

	return nil
}

// Stop 停止同步调度器
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
}

// Config 获取同步配置
func (s *SyncScheduler) Config() *SyncScheduleConfig {
	return s.config
}

// scheduleSync 调度定期同步
func (s *SyncScheduler) scheduleSync(ctx context.Context) {
	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	if s.config.RunAtStart {
		s.performSync(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.performSync(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// scheduleLogCleanup 调度日志清理
func (s *SyncScheduler) scheduleLogCleanup(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour) // 每天执行一次
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performLogCleanup(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// performSync 执行一次同步
func (s *SyncScheduler) performSync(ctx context.Context) {
	result, err := s.uploadService.SyncPending(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("scheduled sync failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"status":   result.Status,
		"uploaded": result.Uploaded,
		"failed":   result.Failed,
	}).Info("scheduled sync finished")
}

// performLogCleanup 执行一次日志清理
func (s *SyncScheduler) performLogCleanup(ctx context.Context) {
	if _, err := s.uploadService.CleanupLogs(ctx, s.config.LogRetentionDays); err != nil {
		s.logger.WithError(err).Warn("upload log cleanup failed")
	}
}
