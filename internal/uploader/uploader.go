package uploader

import (
	"context"
	"fmt"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
	"github.com/awdoty/GlucoseUploader-sub002/internal/metrics"
	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StoreWriter 健康数据存储的记录写入接口
type StoreWriter interface {
	WriteRecords(ctx context.Context, records []healthstore.GlucoseRecord) (int, error)
}

// ProgressEvent 同步进度事件
type ProgressEvent struct {
	Type     string `json:"type"` // sync_started, batch_uploaded, batch_failed, sync_finished
	Uploaded int    `json:"uploaded"`
	Failed   int    `json:"failed"`
	Pending  int    `json:"pending"`
	Detail   string `json:"detail,omitempty"`
}

// ProgressSink 进度事件接收器
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// SyncResult 一次同步的结果
type SyncResult struct {
	Status   permissions.Status `json:"status"`
	Uploaded int                `json:"uploaded"`
	Failed   int                `json:"failed"`
	Batches  int                `json:"batches"`
}

// Service 上传服务
// 将本地待上传读数经由权限门上传到健康数据存储。
// 权限检查与写入之间没有互斥:外部撤销落在两者之间时,写入以故障形式暴露
type Service struct {
	gate      *permissions.Gate
	store     StoreWriter
	readings  repository.ReadingRepository
	logs      repository.UploadLogRepository
	batchSize int
	logger    *logrus.Logger
	progress  ProgressSink
}

// NewService 创建上传服务
func NewService(
	gate *permissions.Gate,
	store StoreWriter,
	readings repository.ReadingRepository,
	logs repository.UploadLogRepository,
	batchSize int,
	logger *logrus.Logger,
) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{
		gate:      gate,
		store:     store,
		readings:  readings,
		logs:      logs,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SetProgressSink 注册进度事件接收器
func (s *Service) SetProgressSink(sink ProgressSink) {
	s.progress = sink
}

// SyncPending 上传全部待上传读数
// 检查一次必需权限,之后分批上传;权限不足不报错,结果携带权限状态
func (s *Service) SyncPending(ctx context.Context) (*SyncResult, error) {
	status := s.gate.StatusRequired(ctx)
	metrics.RecordPermissionCheck(string(status))

	result := &SyncResult{Status: status}

	if !status.Allowed() {
		s.logger.WithField("status", status).Warn("sync skipped, required permissions not granted")
		s.saveLog(model.UploadResultDenied, 0, 0, fmt.Sprintf("permission status: %s", status))
		metrics.RecordUpload(model.UploadResultDenied, 0)
		return result, nil
	}

	s.publish(ProgressEvent{Type: "sync_started"})

	for {
		pending, err := s.readings.FindPending(s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to load pending readings: %w", err)
		}
		if len(pending) == 0 {
			break
		}

		uploaded, err := s.uploadBatch(ctx, pending)
		result.Batches++
		if err != nil {
			result.Failed += len(pending)
			s.publish(ProgressEvent{Type: "batch_failed", Uploaded: result.Uploaded, Failed: result.Failed, Detail: err.Error()})
			break
		}
		result.Uploaded += uploaded
		s.publish(ProgressEvent{Type: "batch_uploaded", Uploaded: result.Uploaded, Failed: result.Failed})
	}

	s.publish(ProgressEvent{Type: "sync_finished", Uploaded: result.Uploaded, Failed: result.Failed})

	s.logger.WithFields(logrus.Fields{
		"uploaded": result.Uploaded,
		"failed":   result.Failed,
		"batches":  result.Batches,
	}).Info("sync completed")

	return result, nil
}

// uploadBatch 上传一批读数
func (s *Service) uploadBatch(ctx context.Context, batch []*model.GlucoseReadingModel) (int, error) {
	meta := Metadata()
	records := make([]healthstore.GlucoseRecord, 0, len(batch))
	ids := make([]string, 0, len(batch))
	for _, reading := range batch {
		records = append(records, healthstore.GlucoseRecord{
			Time:           reading.MeasuredAt,
			ValueMgdl:      reading.ValueMgdl,
			SpecimenSource: reading.SpecimenSource,
			MealRelation:   reading.MealRelation,
			Metadata:       meta,
		})
		ids = append(ids, reading.ID)
	}

	inserted, err := s.store.WriteRecords(ctx, records)
	if err != nil {
		s.logger.WithError(err).Warn("failed to write records to health store")
		if markErr := s.readings.MarkFailed(ids); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to mark readings failed")
		}
		s.saveLog(model.UploadResultFailed, len(batch), 0, err.Error())
		metrics.RecordUpload(model.UploadResultFailed, len(batch))
		return 0, err
	}

	if err := s.readings.MarkUploaded(ids, time.Now()); err != nil {
		return inserted, fmt.Errorf("failed to mark readings uploaded: %w", err)
	}

	s.saveLog(model.UploadResultSuccess, len(batch), inserted, "")
	metrics.RecordUpload(model.UploadResultSuccess, len(batch))
	return len(batch), nil
}

// CleanupLogs 清理过期上传日志
func (s *Service) CleanupLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.logs.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup upload logs: %w", err)
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("old upload logs removed")
	}
	return deleted, nil
}

// saveLog 保存上传日志,失败只记日志
func (s *Service) saveLog(result string, count, inserted int, detail string) {
	entry := &model.UploadLogModel{
		ID:           uuid.New().String(),
		Result:       result,
		ReadingCount: count,
		Inserted:     inserted,
		Detail:       detail,
		CreatedAt:    time.Now(),
	}
	if err := s.logs.Save(entry); err != nil {
		s.logger.WithError(err).Warn("failed to save upload log")
	}
}

// publish 发布进度事件
func (s *Service) publish(event ProgressEvent) {
	if s.progress != nil {
		s.progress.Publish(event)
	}
}
