// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prisken/content-sub000/internal/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 32
)

// WebSocketMessage 推送给前端的消息
type WebSocketMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketClient 一个向导会话的订阅连接
type WebSocketClient struct {
	conn      *websocket.Conn
	sessionID string
	userID    string
	send      chan []byte
	done      chan struct{}
	closed    int32 // 原子操作标志，0=开启，1=关闭
	createdAt time.Time
}

// Close 安全关闭客户端连接，可重复调用
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		client.conn.Close()
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// SendMessage 放入发送队列；队列满时丢弃，进度事件后面还会覆盖
func (client *WebSocketClient) SendMessage(msg WebSocketMessage) {
	if client.IsClosed() {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	case <-client.done:
	default:
		utils.GetLogger().Warn("WebSocket 发送队列已满，消息被丢弃", map[string]interface{}{
			"session_id": client.sessionID,
			"type":       msg.Type,
		})
	}
}

// WebSocketHub 管理所有连接；不是全局单例，随 Handler 创建、随服务器关闭
type WebSocketHub struct {
	upgrader websocket.Upgrader
	metrics  *utils.MetricsCollector
	logger   *utils.Logger

	mutex   sync.Mutex
	clients map[*WebSocketClient]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewWebSocketHub 创建连接管理器；allowedOrigins 为空时允许任意来源
func NewWebSocketHub(allowedOrigins []string, metrics *utils.MetricsCollector) *WebSocketHub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok || hasWildcard(origins)
			},
		},
		metrics: metrics,
		logger:  utils.GetLogger(),
		clients: make(map[*WebSocketClient]struct{}),
	}
}

func hasWildcard(origins map[string]struct{}) bool {
	_, ok := origins["*"]
	return ok
}

// register 登记连接；hub 已关闭时返回 false
func (h *WebSocketHub) register(client *WebSocketClient) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	h.wg.Add(1)
	h.metrics.AddWSClients(1)
	return true
}

func (h *WebSocketHub) unregister(client *WebSocketClient) {
	h.mutex.Lock()
	_, exists := h.clients[client]
	delete(h.clients, client)
	h.mutex.Unlock()

	client.Close()
	if exists {
		h.metrics.AddWSClients(-1)
		h.wg.Done()
	}
}

// ClientCount 当前连接数
func (h *WebSocketHub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// GetStatus 按会话汇总连接
func (h *WebSocketHub) GetStatus() map[string]interface{} {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	sessions := make(map[string]int)
	for client := range h.clients {
		sessions[client.sessionID]++
	}
	return map[string]interface{}{
		"total_connections": len(h.clients),
		"sessions":          sessions,
	}
}

// Close 关闭所有连接并等待读写协程退出
func (h *WebSocketHub) Close() {
	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		return
	}
	h.closed = true
	clients := make([]*WebSocketClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.Close()
	}
	h.wg.Wait()
	h.logger.Info("WebSocket 管理器已关闭", map[string]interface{}{"closed_clients": len(clients)})
}
