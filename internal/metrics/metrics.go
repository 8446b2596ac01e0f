package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 导入的读数条数
	readingsImportedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "readings_imported_total",
			Help: "Total number of glucose readings imported from CSV",
		},
	)

	// 被拒绝的 CSV 行数
	rowsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "csv_rows_rejected_total",
			Help: "Total number of CSV rows rejected during import",
		},
	)

	// 上传的读数条数
	readingsUploadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_uploaded_total",
			Help: "Total number of glucose readings uploaded to the health store",
		},
		[]string{"result"}, // success, failed, denied
	)

	// 权限检查结果分布
	permissionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_checks_total",
			Help: "Total number of permission checks by status",
		},
		[]string{"status"}, // granted, not_granted, query_failed, service_absent
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 读数状态分布
	readingsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "readings_by_state",
			Help: "Number of glucose readings by upload state",
		},
		[]string{"state"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(readingsImportedTotal)
	prometheus.MustRegister(rowsRejectedTotal)
	prometheus.MustRegister(readingsUploadedTotal)
	prometheus.MustRegister(permissionChecksTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(readingsByState)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 尝试注册 Go 运行时指标，如果已注册则忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordImport 记录一次 CSV 导入
func RecordImport(parsed, rejected int) {
	readingsImportedTotal.Add(float64(parsed))
	rowsRejectedTotal.Add(float64(rejected))
}

// RecordUpload 记录一次上传结果
func RecordUpload(result string, count int) {
	readingsUploadedTotal.WithLabelValues(result).Add(float64(count))
}

// RecordPermissionCheck 记录权限检查结果
func RecordPermissionCheck(status string) {
	permissionChecksTotal.WithLabelValues(status).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateReadingsByState 更新读数状态分布指标
func UpdateReadingsByState(state string, count float64) {
	readingsByState.WithLabelValues(state).Set(count)
}
