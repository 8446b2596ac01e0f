package permissions

import (
	"context"
	"sync"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
	"github.com/sirupsen/logrus"
)

// StoreClient 权限门依赖的健康数据存储接口
type StoreClient interface {
	GetGrantedPermissions(ctx context.Context) ([]string, error)
	RequestPermissions(ctx context.Context, permissions []string) error
	RevokeAllPermissions(ctx context.Context) error
}

// RequestOutcome 权限申请回调结果
// 申请本身是 fire-and-forget,结果通过调用方注册的 channel 异步送达
type RequestOutcome struct {
	Requested Set // 本次申请的权限
	Granted   Set // 申请往返后重新查询到的已授权集合
}

// Gate 权限门
// 回答"当前能否对健康数据存储执行操作 X",并驱动权限申请。
// 所有外部调用的故障都被捕获并坍缩为失败关闭的否定结果,同时记录日志。
type Gate struct {
	required Set
	logger   *logrus.Logger
	factory  func() (StoreClient, error)

	// 客户端句柄延迟构造,至多一次,之后只读
	once      sync.Once
	client    StoreClient
	clientErr error

	probeCache *ProbeCache
}

// NewGate 创建权限门
// 客户端在首次使用时延迟构造,构造失败不会向调用方传播
func NewGate(cfg config.HealthStoreConfig, logger *logrus.Logger) *Gate {
	factory := func() (StoreClient, error) {
		return healthstore.NewClient(cfg)
	}
	return NewGateWithFactory(RequiredSet(), factory, logger)
}

// NewGateWithFactory 使用自定义客户端工厂创建权限门
func NewGateWithFactory(required Set, factory func() (StoreClient, error), logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gate{
		required:   required,
		logger:     logger,
		factory:    factory,
		probeCache: NewProbeCache(30 * time.Second),
	}
}

// Required 返回固定的必需权限集合
func (g *Gate) Required() Set {
	return g.required
}

// storeClient 获取延迟构造的客户端句柄
func (g *Gate) storeClient() (StoreClient, error) {
	g.once.Do(func() {
		g.client, g.clientErr = g.factory()
		if g.clientErr != nil {
			g.logger.WithError(g.clientErr).Warn("healthstore client construction failed")
		}
	})
	return g.client, g.clientErr
}

// IsServiceAvailable 判断健康数据存储是否可用
// 客户端无法构造或探测失败时返回 false,从不抛出
func (g *Gate) IsServiceAvailable(ctx context.Context) bool {
	if ok, found := g.probeCache.Get(probeKeyAvailability); found {
		return ok
	}

	client, err := g.storeClient()
	if err != nil {
		g.probeCache.Set(probeKeyAvailability, false)
		return false
	}

	// 探测用授权查询本身,查询可用则服务可用
	_, err = client.GetGrantedPermissions(ctx)
	available := err == nil
	if err != nil {
		g.logger.WithError(err).Debug("healthstore availability probe failed")
	}

	g.probeCache.Set(probeKeyAvailability, available)
	return available
}

// StatusRequired 查询必需权限的授权状态
// 返回区分服务缺失/查询失败/未授权/已授权的标记结果
func (g *Gate) StatusRequired(ctx context.Context) Status {
	client, err := g.storeClient()
	if err != nil {
		return StatusServiceAbsent
	}

	ids, err := client.GetGrantedPermissions(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("failed to fetch granted permissions")
		return StatusQueryFailed
	}

	if NewSetFromStrings(ids).ContainsAll(g.required) {
		return StatusGranted
	}
	return StatusNotGranted
}

// CheckRequired 判断必需权限是否全部已授权
// 查询故障与未授权不可区分,统一返回 false
func (g *Gate) CheckRequired(ctx context.Context) bool {
	return g.StatusRequired(ctx).Allowed()
}

// MissingRequired 返回缺失的必需权限
// 查询失败时返回完整的必需权限集合（失败关闭）
func (g *Gate) MissingRequired(ctx context.Context) Set {
	client, err := g.storeClient()
	if err != nil {
		return g.required
	}

	ids, err := client.GetGrantedPermissions(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("failed to fetch granted permissions")
		return g.required
	}

	return g.required.Minus(NewSetFromStrings(ids))
}

// HasOptional 判断单个可选权限是否已授权
func (g *Gate) HasOptional(ctx context.Context, perm Permission) bool {
	client, err := g.storeClient()
	if err != nil {
		return false
	}

	ids, err := client.GetGrantedPermissions(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("failed to fetch granted permissions")
		return false
	}

	return NewSetFromStrings(ids).Contains(perm)
}

// RequestRequired 申请全部必需权限
// fire-and-forget:发起申请后立即返回,结果通过 results channel 异步送达;
// 发起失败被吞掉并记录日志,调用方应在之后轮询 CheckRequired
func (g *Gate) RequestRequired(ctx context.Context, results chan<- RequestOutcome) {
	client, err := g.storeClient()
	if err != nil {
		return
	}

	go func() {
		if err := client.RequestPermissions(ctx, g.required.Strings()); err != nil {
			g.logger.WithError(err).Warn("failed to launch permission request")
			return
		}

		// 申请往返后重新查询授权集合,送达注册的回调 channel
		ids, err := client.GetGrantedPermissions(ctx)
		if err != nil {
			g.logger.WithError(err).Warn("failed to fetch granted permissions after request")
			return
		}

		if results != nil {
			select {
			case results <- RequestOutcome{Requested: g.required, Granted: NewSetFromStrings(ids)}:
			default:
				// 调用方未在消费,丢弃结果
			}
		}
	}()
}

// RequestOptional 申请单个可选权限
// 直接经由存储端的权限控制接口发起,故障被吞掉并记录日志
func (g *Gate) RequestOptional(ctx context.Context, perm Permission) {
	client, err := g.storeClient()
	if err != nil {
		return
	}

	if err := client.RequestPermissions(ctx, []string{string(perm)}); err != nil {
		g.logger.WithError(err).WithField("permission", perm).Warn("failed to request optional permission")
	}
}

// RevokeAll 撤销全部权限,尽力而为
func (g *Gate) RevokeAll(ctx context.Context) {
	client, err := g.storeClient()
	if err != nil {
		return
	}

	if err := client.RevokeAllPermissions(ctx); err != nil {
		g.logger.WithError(err).Warn("failed to revoke permissions")
	}

	// 撤销后可用性可能变化,失效探测缓存
	g.probeCache.Clear()
}
