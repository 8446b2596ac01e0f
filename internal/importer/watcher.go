package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher CSV 目录监听器
// 监听目录中新出现的 CSV 文件并自动导入,导入成功后移动到归档目录
type Watcher struct {
	service    *Service
	watchDir   string
	archiveDir string
	logger     *logrus.Logger
	stopChan   chan struct{}
}

// NewWatcher 创建目录监听器
func NewWatcher(service *Service, watchDir, archiveDir string, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{
		service:    service,
		watchDir:   watchDir,
		archiveDir: archiveDir,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start 启动监听
// 先导入目录中已有的 CSV 文件,再监听新文件
func (w *Watcher) Start(ctx context.Context) error {
	if w.watchDir == "" {
		return errors.New("watch directory is not configured")
	}
	if err := os.MkdirAll(w.watchDir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if w.archiveDir != "" {
		if err := os.MkdirAll(w.archiveDir, 0755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(w.watchDir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.watchDir, err)
	}

	// 处理启动前已经存在的文件
	w.importExisting(ctx)

	go w.run(ctx, fsWatcher)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() {
	close(w.stopChan)
}

// run 事件循环
func (w *Watcher) run(ctx context.Context, fsWatcher *fsnotify.Watcher) {
	defer fsWatcher.Close()

	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}
			// 等待写入方完成写文件
			time.Sleep(200 * time.Millisecond)
			w.importOne(ctx, event.Name)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("csv watcher error")

		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// importExisting 导入目录中已有的 CSV 文件
func (w *Watcher) importExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		w.logger.WithError(err).Warn("failed to list watch directory")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isCSV(entry.Name()) {
			continue
		}
		w.importOne(ctx, filepath.Join(w.watchDir, entry.Name()))
	}
}

// importOne 导入单个文件并归档
func (w *Watcher) importOne(ctx context.Context, path string) {
	batch, err := w.service.ImportFile(ctx, path)
	if err != nil {
		if errors.Is(err, ErrDuplicateFile) {
			w.logger.WithField("file", path).Info("skipping duplicate csv file")
			w.archive(path)
			return
		}
		w.logger.WithError(err).WithField("file", path).Warn("csv auto-import failed")
		return
	}

	w.logger.WithFields(logrus.Fields{
		"file":     path,
		"batch_id": batch.ID,
	}).Info("csv file auto-imported")
	w.archive(path)
}

// archive 将处理完的文件移动到归档目录
func (w *Watcher) archive(path string) {
	if w.archiveDir == "" {
		return
	}
	target := filepath.Join(w.archiveDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		w.logger.WithError(err).WithField("file", path).Warn("failed to archive csv file")
	}
}

// isCSV 判断文件名是否为 CSV
func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
