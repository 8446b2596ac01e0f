package permissions

// Status 权限探测结果
// 区分"服务不可用"、"查询失败"、"未授权"与"已授权",
// 布尔形式的接口在这些状态之间统一坍缩为未授权（失败关闭）
type Status string

const (
	// StatusGranted 必需权限全部已授权
	StatusGranted Status = "granted"

	// StatusNotGranted 查询成功但存在未授权的必需权限
	StatusNotGranted Status = "not_granted"

	// StatusQueryFailed 授权查询失败
	StatusQueryFailed Status = "query_failed"

	// StatusServiceAbsent 存储服务不可用或客户端无法构造
	StatusServiceAbsent Status = "service_absent"
)

// Allowed 判断状态是否允许执行受权限保护的操作
func (s Status) Allowed() bool {
	return s == StatusGranted
}
