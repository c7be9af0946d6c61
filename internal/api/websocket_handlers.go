// internal/api/websocket_handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/services"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

// wsInbound is a message sent by an editor client.
type wsInbound struct {
	Type   string        `json:"type"`
	ItemID string        `json:"item_id,omitempty"`
	Delta  *layout.Delta `json:"delta,omitempty"`
}

// WebSocketHandler 处理方案视图同步的 WebSocket 连接
type WebSocketHandler struct {
	manager  *WebSocketManager
	plans    *services.PlanService
	response *ResponseHelper
	logger   *utils.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(manager *WebSocketManager, plans *services.PlanService) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		plans:    plans,
		response: NewResponseHelper(),
		logger:   utils.GetLogger(),
	}
}

// PlanWebSocket 订阅方案变更。连接建立后先推送当前的二维和三维视图，
// 之后每次变更推送 plan_updated；客户端可以发送 move_item 编辑家具。
func (wh *WebSocketHandler) PlanWebSocket(c *gin.Context) {
	planID := c.Param("id")
	views, err := wh.plans.Views(c.Request.Context(), planID)
	if err != nil {
		wh.response.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Warn("WebSocket upgrade failed", map[string]interface{}{
			"plan_id": planID,
			"error":   err.Error(),
		})
		return
	}

	client := newWebSocketClient(uuid.NewString(), planID, conn)
	wh.manager.Register(client)
	defer wh.manager.Unregister(client)

	go wh.writePump(client)

	client.SendMessage(map[string]interface{}{
		"type":      "connected",
		"plan_id":   planID,
		"client_id": client.id,
		"views":     views,
		"timestamp": time.Now().UTC(),
	})

	wh.readPump(client)
}

// readPump 读取客户端消息，直到连接关闭
func (wh *WebSocketHandler) readPump(client *WebSocketClient) {
	client.conn.SetReadLimit(wsMaxMsgBytes)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for !client.IsClosed() {
		_, messageBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wh.logger.Warn("WebSocket read error", map[string]interface{}{
					"plan_id": client.planID,
					"error":   err.Error(),
				})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg wsInbound
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			client.SendError(ErrorBadRequest, "message is not valid JSON")
			continue
		}
		wh.handleMessage(client, msg)
	}
}

// writePump 是唯一写连接的协程
func (wh *WebSocketHandler) writePump(client *WebSocketClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case msg := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}

// handleMessage 处理不同类型的消息
func (wh *WebSocketHandler) handleMessage(client *WebSocketClient, msg wsInbound) {
	switch msg.Type {
	case "ping":
		client.SendMessage(map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().UTC(),
		})
	case "sync":
		views, err := wh.plans.Views(context.Background(), client.planID)
		if err != nil {
			wh.sendAppError(client, err)
			return
		}
		client.SendMessage(map[string]interface{}{
			"type":      "views",
			"plan_id":   client.planID,
			"views":     views,
			"timestamp": time.Now().UTC(),
		})
	case "move_item":
		if msg.ItemID == "" || msg.Delta == nil {
			client.SendError(ErrorBadRequest, "move_item needs item_id and delta")
			return
		}
		// 成功后由 PlanService 通知广播 plan_updated
		if _, err := wh.plans.MoveFurniture(context.Background(), client.planID, msg.ItemID, *msg.Delta); err != nil {
			wh.sendAppError(client, err)
		}
	default:
		client.SendError(ErrorBadRequest, "unknown message type: "+msg.Type)
	}
}

func (wh *WebSocketHandler) sendAppError(client *WebSocketClient, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		client.SendMessage(map[string]interface{}{
			"type":      "error",
			"code":      appErr.Code,
			"error":     appErr.Message,
			"details":   appErr.Details,
			"timestamp": time.Now().UTC(),
		})
		return
	}
	client.SendError(ErrorInternalError, "internal error")
}
