package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/metrics"
	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrDuplicateFile 文件内容已导入过
var ErrDuplicateFile = errors.New("file already imported")

// Service CSV 导入服务
// 解析 CSV 文件,落库为导入批次与待上传读数
type Service struct {
	readings    repository.ReadingRepository
	batches     repository.ImportBatchRepository
	parser      *Parser
	logger      *logrus.Logger
	maxFileSize int64
}

// NewService 创建导入服务
func NewService(readings repository.ReadingRepository, batches repository.ImportBatchRepository, maxFileSize int64, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	return &Service{
		readings:    readings,
		batches:     batches,
		parser:      NewParser(),
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// ImportFile 导入单个 CSV 文件
func (s *Service) ImportFile(ctx context.Context, path string) (*model.ImportBatchModel, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("file %s exceeds size limit (%d bytes)", path, s.maxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return s.ImportReader(ctx, filepath.Base(path), f)
}

// ImportReader 从 reader 导入 CSV 内容
// 内容校验和相同的文件视为重复导入,直接拒绝
func (s *Service) ImportReader(ctx context.Context, fileName string, r io.Reader) (*model.ImportBatchModel, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read csv content: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("file %s exceeds size limit (%d bytes)", fileName, s.maxFileSize)
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	// 重复导入检测
	if existing, err := s.batches.FindByChecksum(checksum); err == nil && existing != nil {
		return existing, ErrDuplicateFile
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate import: %w", err)
	}

	result, err := s.parser.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}

	batch := s.buildBatch(fileName, checksum, result)
	if err := s.batches.Save(batch); err != nil {
		return nil, fmt.Errorf("failed to save import batch: %w", err)
	}

	readings := make([]*model.GlucoseReadingModel, 0, len(result.Rows))
	now := time.Now()
	for _, row := range result.Rows {
		readings = append(readings, &model.GlucoseReadingModel{
			ID:           uuid.New().String(),
			BatchID:      batch.ID,
			MeasuredAt:   row.MeasuredAt,
			ValueMgdl:    row.ValueMgdl,
			MealRelation: row.MealRelation,
			Notes:        row.Notes,
			State:        model.ReadingStatePending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if err := s.readings.SaveBatch(readings); err != nil {
		return nil, fmt.Errorf("failed to save readings: %w", err)
	}

	metrics.RecordImport(len(result.Rows), len(result.RowErrors))

	s.logger.WithFields(logrus.Fields{
		"file":     fileName,
		"batch_id": batch.ID,
		"parsed":   batch.RowsParsed,
		"rejected": batch.RowsRejected,
	}).Info("csv import completed")

	return batch, nil
}

// buildBatch 根据解析结果构造批次模型
func (s *Service) buildBatch(fileName, checksum string, result *ParseResult) *model.ImportBatchModel {
	state := model.BatchStateImported
	if len(result.RowErrors) > 0 {
		state = model.BatchStatePartial
	}
	if len(result.Rows) == 0 {
		state = model.BatchStateRejected
	}

	var errLines []string
	for _, re := range result.RowErrors {
		errLines = append(errLines, fmt.Sprintf("line %d: %s", re.Line, re.Err))
	}

	now := time.Now()
	return &model.ImportBatchModel{
		ID:           uuid.New().String(),
		FileName:     fileName,
		Checksum:     checksum,
		State:        state,
		RowsTotal:    result.Total,
		RowsParsed:   len(result.Rows),
		RowsRejected: len(result.RowErrors),
		Errors:       strings.Join(errLines, "\n"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
