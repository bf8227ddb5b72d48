// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/prisken/content-sub000/internal/services"
)

const wsMaxMessageSize = 4096

// WizardWebSocket 推送向导会话的生成进度；连接建立后立即收到当前状态
func (h *Handler) WizardWebSocket(c *gin.Context) {
	user, _ := CurrentUser(c)
	sessionID := c.Param("id")
	if err := h.Wizard.Authorize(user.ID, sessionID); err != nil {
		h.Response.Fail(c, err)
		return
	}

	conn, err := h.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		h.logger.Warn("WebSocket 升级失败", map[string]interface{}{"session_id": sessionID, "error": err})
		return
	}

	client := &WebSocketClient{
		conn:      conn,
		sessionID: sessionID,
		userID:    user.ID,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	if !h.hub.register(client) {
		conn.Close()
		return
	}
	defer h.hub.unregister(client)

	updates, unsubscribe := h.Wizard.Progress().Subscribe(sessionID)
	defer unsubscribe()

	h.logger.Debug("WebSocket 客户端已连接", map[string]interface{}{"session_id": sessionID, "user_id": user.ID})

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		h.hub.readPump(client)
	}()

	h.hub.writePump(client, updates)
	client.Close()
	<-readerDone

	h.logger.Debug("WebSocket 客户端已断开", map[string]interface{}{"session_id": sessionID, "user_id": user.ID})
}

// WebSocketStatus 管理后台查看连接情况
func (h *Handler) WebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.hub.GetStatus())
}

// clientMessage 前端发来的消息，目前只有心跳
type clientMessage struct {
	Type string `json:"type"`
}

// readPump 处理心跳与关闭帧，读出错即关闭连接
func (h *WebSocketHub) readPump(client *WebSocketClient) {
	defer client.Close()

	client.conn.SetReadLimit(wsMaxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if json.Unmarshal(data, &msg) != nil {
			client.SendMessage(WebSocketMessage{Type: "error", SessionID: client.sessionID, Error: "invalid message"})
			continue
		}
		if msg.Type == "ping" {
			client.SendMessage(WebSocketMessage{Type: "pong", SessionID: client.sessionID})
		}
	}
}

// writePump 唯一写连接的协程：进度事件、队列消息和定时 ping
func (h *WebSocketHub) writePump(client *WebSocketClient, updates <-chan services.ProgressUpdate) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	write := func(messageType int, data []byte) bool {
		_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return client.conn.WriteMessage(messageType, data) == nil
	}

	for {
		select {
		case <-client.done:
			return

		case update, ok := <-updates:
			if !ok {
				// 会话被删除
				data, _ := json.Marshal(WebSocketMessage{Type: "session_closed", SessionID: client.sessionID, Timestamp: time.Now()})
				write(websocket.TextMessage, data)
				write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(WebSocketMessage{
				Type:      "progress",
				SessionID: client.sessionID,
				Data:      update,
				Timestamp: update.Timestamp,
			})
			if err != nil {
				continue
			}
			if !write(websocket.TextMessage, data) {
				return
			}

		case data := <-client.send:
			if !write(websocket.TextMessage, data) {
				return
			}

		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}
