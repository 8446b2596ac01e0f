package permissions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStoreClient 可编程的存储客户端
type fakeStoreClient struct {
	mu       sync.Mutex
	granted  []string
	queryErr error

	requestErr error
	requested  [][]string

	revokeErr error
	revoked   bool
}

func (f *fakeStoreClient) GetGrantedPermissions(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return append([]string(nil), f.granted...), nil
}

func (f *fakeStoreClient) RequestPermissions(ctx context.Context, perms []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.requested = append(f.requested, append([]string(nil), perms...))
	// 模拟用户批准:申请的权限全部落入授权集合
	f.granted = append(f.granted, perms...)
	return nil
}

func (f *fakeStoreClient) RevokeAllPermissions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = true
	f.granted = nil
	return nil
}

func newTestGate(client permissions.StoreClient, factoryErr error) *permissions.Gate {
	return permissions.NewGateWithFactory(permissions.RequiredSet(), func() (permissions.StoreClient, error) {
		if factoryErr != nil {
			return nil, factoryErr
		}
		return client, nil
	}, nil)
}

// TestGate_CheckRequired_AllGranted 测试必需权限全部授权时检查通过
func TestGate_CheckRequired_AllGranted(t *testing.T) {
	client := &fakeStoreClient{granted: []string{
		string(permissions.ReadBloodGlucose),
		string(permissions.WriteBloodGlucose),
	}}
	gate := newTestGate(client, nil)

	assert.True(t, gate.CheckRequired(context.Background()))
	assert.Equal(t, permissions.StatusGranted, gate.StatusRequired(context.Background()))
	assert.Equal(t, 0, gate.MissingRequired(context.Background()).Len())
}

// TestGate_CheckRequired_Subset 测试仅授权部分必需权限时检查失败
func TestGate_CheckRequired_Subset(t *testing.T) {
	client := &fakeStoreClient{granted: []string{string(permissions.ReadBloodGlucose)}}
	gate := newTestGate(client, nil)

	assert.False(t, gate.CheckRequired(context.Background()))
	assert.Equal(t, permissions.StatusNotGranted, gate.StatusRequired(context.Background()))

	missing := gate.MissingRequired(context.Background())
	assert.Equal(t, 1, missing.Len())
	assert.True(t, missing.Contains(permissions.WriteBloodGlucose))
	assert.False(t, missing.Contains(permissions.ReadBloodGlucose))
}

// TestGate_CheckRequired_Superset 测试授权为必需集合超集时检查通过
func TestGate_CheckRequired_Superset(t *testing.T) {
	client := &fakeStoreClient{granted: []string{
		string(permissions.ReadBloodGlucose),
		string(permissions.WriteBloodGlucose),
		string(permissions.ReadHistory),
	}}
	gate := newTestGate(client, nil)

	assert.True(t, gate.CheckRequired(context.Background()))
}

// TestGate_QueryFailure_FailsClosed 测试查询失败时所有回答坍缩为否定
func TestGate_QueryFailure_FailsClosed(t *testing.T) {
	client := &fakeStoreClient{queryErr: errors.New("store unavailable")}
	gate := newTestGate(client, nil)
	ctx := context.Background()

	assert.Equal(t, permissions.StatusQueryFailed, gate.StatusRequired(ctx))
	assert.False(t, gate.CheckRequired(ctx))
	assert.False(t, gate.HasOptional(ctx, permissions.ReadHistory))
	assert.False(t, gate.IsServiceAvailable(ctx))

	// 失败关闭:缺失集合为完整的必需集合
	missing := gate.MissingRequired(ctx)
	assert.True(t, missing.ContainsAll(permissions.RequiredSet()))
	assert.Equal(t, permissions.RequiredSet().Len(), missing.Len())
}

// TestGate_ClientConstructionFailure 测试客户端构造失败时不抛出且回答否定
func TestGate_ClientConstructionFailure(t *testing.T) {
	gate := newTestGate(nil, errors.New("no client"))
	ctx := context.Background()

	assert.Equal(t, permissions.StatusServiceAbsent, gate.StatusRequired(ctx))
	assert.False(t, gate.CheckRequired(ctx))
	assert.False(t, gate.IsServiceAvailable(ctx))
	assert.False(t, gate.HasOptional(ctx, permissions.ReadHistory))
	assert.True(t, gate.MissingRequired(ctx).ContainsAll(permissions.RequiredSet()))

	// 申请与撤销同样不抛出
	assert.NotPanics(t, func() {
		gate.RequestRequired(ctx, nil)
		gate.RequestOptional(ctx, permissions.ReadHistory)
		gate.RevokeAll(ctx)
	})
}

// TestGate_RequestRequired_DeliversOutcome 测试申请结果经注册 channel 异步送达
func TestGate_RequestRequired_DeliversOutcome(t *testing.T) {
	client := &fakeStoreClient{}
	gate := newTestGate(client, nil)

	results := make(chan permissions.RequestOutcome, 1)
	gate.RequestRequired(context.Background(), results)

	select {
	case outcome := <-results:
		assert.True(t, outcome.Requested.ContainsAll(permissions.RequiredSet()))
		assert.True(t, outcome.Granted.ContainsAll(permissions.RequiredSet()))
	case <-time.After(2 * time.Second):
		t.Fatal("request outcome not delivered")
	}

	assert.True(t, gate.CheckRequired(context.Background()))
}

// TestGate_RequestRequired_NilChannel 测试不注册回调 channel 时申请仍然生效
func TestGate_RequestRequired_NilChannel(t *testing.T) {
	client := &fakeStoreClient{}
	gate := newTestGate(client, nil)

	gate.RequestRequired(context.Background(), nil)

	// 轮询授权状态直到申请生效
	require.Eventually(t, func() bool {
		return gate.CheckRequired(context.Background())
	}, 2*time.Second, 10*time.Millisecond)
}

// TestGate_RequestRequired_LaunchFailure 测试申请发起失败被吞掉且不送达结果
func TestGate_RequestRequired_LaunchFailure(t *testing.T) {
	client := &fakeStoreClient{requestErr: errors.New("request rejected")}
	gate := newTestGate(client, nil)

	results := make(chan permissions.RequestOutcome, 1)
	assert.NotPanics(t, func() {
		gate.RequestRequired(context.Background(), results)
	})

	select {
	case <-results:
		t.Fatal("no outcome expected on launch failure")
	case <-time.After(200 * time.Millisecond):
	}
}

// TestGate_RevokeThenCheck 测试撤销后必需权限检查失败
func TestGate_RevokeThenCheck(t *testing.T) {
	client := &fakeStoreClient{granted: []string{
		string(permissions.ReadBloodGlucose),
		string(permissions.WriteBloodGlucose),
	}}
	gate := newTestGate(client, nil)
	ctx := context.Background()

	require.True(t, gate.CheckRequired(ctx))

	gate.RevokeAll(ctx)

	assert.True(t, client.revoked)
	assert.False(t, gate.CheckRequired(ctx))
	assert.Equal(t, permissions.StatusNotGranted, gate.StatusRequired(ctx))
}

// TestGate_HasOptional 测试可选权限独立于必需权限判定
func TestGate_HasOptional(t *testing.T) {
	client := &fakeStoreClient{granted: []string{string(permissions.ReadHistory)}}
	gate := newTestGate(client, nil)
	ctx := context.Background()

	assert.True(t, gate.HasOptional(ctx, permissions.ReadHistory))
	assert.False(t, gate.HasOptional(ctx, permissions.ReadInBackground))
	assert.False(t, gate.CheckRequired(ctx))
}

// TestGate_IsServiceAvailable_CachesProbe 测试可用性探测结果被缓存
func TestGate_IsServiceAvailable_CachesProbe(t *testing.T) {
	client := &fakeStoreClient{}
	gate := newTestGate(client, nil)
	ctx := context.Background()

	assert.True(t, gate.IsServiceAvailable(ctx))

	// 之后的查询故障不影响缓存期内的探测结果
	client.mu.Lock()
	client.queryErr = errors.New("store down")
	client.mu.Unlock()

	assert.True(t, gate.IsServiceAvailable(ctx))
}

// TestGate_GrantsNeverCached 测试授权集合每次检查都重新查询
func TestGate_GrantsNeverCached(t *testing.T) {
	client := &fakeStoreClient{granted: []string{
		string(permissions.ReadBloodGlucose),
		string(permissions.WriteBloodGlucose),
	}}
	gate := newTestGate(client, nil)
	ctx := context.Background()

	require.True(t, gate.CheckRequired(ctx))

	// 外部撤销(不经过 gate)必须立即反映在下一次检查中
	client.mu.Lock()
	client.granted = nil
	client.mu.Unlock()

	assert.False(t, gate.CheckRequired(ctx))
}
