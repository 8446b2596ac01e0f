package healthstore

import "time"

// RecordMetadata 记录来源元数据
// 描述一条上传记录的设备来源与采集方式
type RecordMetadata struct {
	DeviceType      string `json:"device_type"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	RecordingMethod string `json:"recording_method"` // manual, automatic
}

// GlucoseRecord 血糖记录
type GlucoseRecord struct {
	Time           time.Time      `json:"time"`
	ValueMgdl      float64        `json:"value_mgdl"`
	SpecimenSource string         `json:"specimen_source,omitempty"`
	MealRelation   string         `json:"meal_relation,omitempty"`
	Metadata       RecordMetadata `json:"metadata"`
}

// grantedPermissionsResponse 已授权权限响应
type grantedPermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// permissionRequest 权限申请请求
type permissionRequest struct {
	AppID       string   `json:"app_id"`
	Permissions []string `json:"permissions"`
}

// writeRecordsRequest 写入记录请求
type writeRecordsRequest struct {
	AppID   string          `json:"app_id"`
	Records []GlucoseRecord `json:"records"`
}

// writeRecordsResponse 写入记录响应
type writeRecordsResponse struct {
	Inserted int `json:"inserted"`
}
