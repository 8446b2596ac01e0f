package uploader

import (
	"os"
	"runtime"

	"github.com/awdoty/GlucoseUploader-sub002/internal/healthstore"
)

// 采集方式标签
const (
	// RecordingMethodManual 手工录入
	// 所有数据都来自 CSV 导入,从不来自实时传感器
	RecordingMethodManual = "manual"
)

// DeviceTypeServer 上传方设备类型
const DeviceTypeServer = "server"

// Metadata 构造记录来源元数据
// 对同一台主机是确定性的:设备类型固定为 server,
// 制造商取运行平台,型号取主机名,采集方式恒为 manual
func Metadata() healthstore.RecordMetadata {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}

	return healthstore.RecordMetadata{
		DeviceType:      DeviceTypeServer,
		Manufacturer:    runtime.GOOS,
		Model:           host,
		RecordingMethod: RecordingMethodManual,
	}
}
