package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/awdoty/GlucoseUploader-sub002/internal/auth"
	"github.com/awdoty/GlucoseUploader-sub002/internal/uploader"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该检查 Origin
		return true
	},
}

// SyncProgressHandler 同步进度 WebSocket 处理器
// validator 为 nil 时不做认证
func SyncProgressHandler(hub *Hub, validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 可选的 token 认证
		if validator != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			if _, err := validator.ValidateToken(token); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		// 2. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		// 3. 创建并注册客户端
		client := NewClient(uuid.New().String(), hub, conn)
		hub.Register <- client

		// 4. 启动 readPump 和 writePump
		go client.ReadPump()
		go client.WritePump()
	}
}

// ProgressPublisher 把同步进度事件广播到 Hub
type ProgressPublisher struct {
	hub *Hub
}

// NewProgressPublisher 创建进度事件发布器
func NewProgressPublisher(hub *Hub) *ProgressPublisher {
	return &ProgressPublisher{hub: hub}
}

// Publish 广播一条进度事件
func (p *ProgressPublisher) Publish(event uploader.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	select {
	case p.hub.Broadcast <- data:
	default:
		// Hub 不在消费时丢弃事件,进度推送是尽力而为
	}
}
