package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/database"
	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/awdoty/GlucoseUploader-sub002/internal/repository"
	"github.com/awdoty/GlucoseUploader-sub002/internal/scheduler"
	"github.com/awdoty/GlucoseUploader-sub002/internal/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// deniedStoreClient 从不授权的存储客户端
type deniedStoreClient struct{}

func (deniedStoreClient) GetGrantedPermissions(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (deniedStoreClient) RequestPermissions(ctx context.Context, perms []string) error {
	return nil
}

func (deniedStoreClient) RevokeAllPermissions(ctx context.Context) error {
	return nil
}

// newUploadService 构造权限被拒的上传服务,调度器测试只关心调度行为
func newUploadService(t *testing.T) (*uploader.Service, repository.UploadLogRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	gate := permissions.NewGateWithFactory(permissions.RequiredSet(), func() (permissions.StoreClient, error) {
		return deniedStoreClient{}, nil
	}, nil)

	logs := repository.NewUploadLogRepository(db)
	service := uploader.NewService(gate, nil, repository.NewReadingRepository(db), logs, 10, nil)
	return service, logs
}

// TestNewSyncScheduler_DefaultConfig 测试缺省配置
func TestNewSyncScheduler_DefaultConfig(t *testing.T) {
	service, _ := newUploadService(t)

	s := scheduler.NewSyncScheduler(service, nil, nil)
	cfg := s.Config()

	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.RunAtStart)
	assert.Equal(t, 30, cfg.LogRetentionDays)
}

// TestSyncScheduler_RunAtStart 测试启动时立即执行一次同步
func TestSyncScheduler_RunAtStart(t *testing.T) {
	service, logs := newUploadService(t)

	s := scheduler.NewSyncScheduler(service, &scheduler.SyncScheduleConfig{
		SyncEnabled:  true,
		SyncInterval: time.Hour,
		RunAtStart:   true,
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// 权限被拒的同步会立即写一条 denied 日志
	require.Eventually(t, func() bool {
		entries, err := logs.FindRecent(1)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := logs.FindRecent(1)
	require.NoError(t, err)
	assert.Equal(t, model.UploadResultDenied, entries[0].Result)
}

// TestSyncScheduler_PeriodicSync 测试按间隔周期执行
func TestSyncScheduler_PeriodicSync(t *testing.T) {
	service, logs := newUploadService(t)

	s := scheduler.NewSyncScheduler(service, &scheduler.SyncScheduleConfig{
		SyncEnabled:  true,
		SyncInterval: 20 * time.Millisecond,
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		entries, err := logs.FindRecent(0)
		return err == nil && len(entries) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSyncScheduler_Disabled 测试禁用时不执行同步
func TestSyncScheduler_Disabled(t *testing.T) {
	service, logs := newUploadService(t)

	s := scheduler.NewSyncScheduler(service, &scheduler.SyncScheduleConfig{
		SyncEnabled:  false,
		SyncInterval: 10 * time.Millisecond,
		RunAtStart:   true,
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	entries, err := logs.FindRecent(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestSyncScheduler_Stop 测试停止后不再执行
func TestSyncScheduler_Stop(t *testing.T) {
	service, logs := newUploadService(t)

	s := scheduler.NewSyncScheduler(service, &scheduler.SyncScheduleConfig{
		SyncEnabled:  true,
		SyncInterval: 20 * time.Millisecond,
	}, nil)

	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		entries, err := logs.FindRecent(0)
		return err == nil && len(entries) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	time.Sleep(50 * time.Millisecond)

	entries, err := logs.FindRecent(0)
	require.NoError(t, err)
	countAfterStop := len(entries)

	time.Sleep(100 * time.Millisecond)
	entries, err = logs.FindRecent(0)
	require.NoError(t, err)
	assert.Equal(t, countAfterStop, len(entries))
}

// TestSyncScheduler_ContextCancel 测试 context 取消后调度退出
func TestSyncScheduler_ContextCancel(t *testing.T) {
	service, logs := newUploadService(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := scheduler.NewSyncScheduler(service, &scheduler.SyncScheduleConfig{
		SyncEnabled:  true,
		SyncInterval: 20 * time.Millisecond,
	}, nil)

	require.NoError(t, s.Start(ctx))
	cancel()
	time.Sleep(50 * time.Millisecond)

	entries, err := logs.FindRecent(0)
	require.NoError(t, err)
	count := len(entries)

	time.Sleep(100 * time.Millisecond)
	entries, err = logs.FindRecent(0)
	require.NoError(t, err)
	assert.Equal(t, count, len(entries))

	// Stop 在 context 取消后仍然安全
	assert.NotPanics(t, s.Stop)
}
