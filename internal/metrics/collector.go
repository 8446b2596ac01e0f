package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期从数据库采样连接池与读数状态分布
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			// 更新数据库连接数指标
			_ = UpdateDatabaseConnections(c.db)
			// 更新读数状态分布
			c.sampleReadingStates()
		}
	}
}

// sampleReadingStates 按状态统计读数条数
func (c *Collector) sampleReadingStates() {
	type stateCount struct {
		State string
		Count int64
	}
	var counts []stateCount
	if err := c.db.Table("glucose_readings").
		Select("state, count(*) as count").
		Group("state").
		Scan(&counts).Error; err != nil {
		return
	}
	for _, sc := range counts {
		UpdateReadingsByState(sc.State, float64(sc.Count))
	}
}
