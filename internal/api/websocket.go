// internal/api/websocket.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vanplanner/VanLayoutMCP/internal/services"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = (wsPongWait * 9) / 10
	wsSendBuffer  = 256
	wsMaxMsgBytes = 64 * 1024
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketConnection 定义 WebSocket 连接的接口
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
}

// WebSocketClient 表示订阅某个方案的一个连接
type WebSocketClient struct {
	id        string
	conn      WebSocketConnection
	planID    string
	send      chan []byte
	done      chan struct{}
	closed    int32 // 0=开启，1=关闭
	lastPing  atomic.Int64
	createdAt time.Time
}

func newWebSocketClient(id, planID string, conn WebSocketConnection) *WebSocketClient {
	client := &WebSocketClient{
		id:        id,
		conn:      conn,
		planID:    planID,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close 安全关闭客户端连接
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后活跃时间
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// enqueue queues a serialized message without blocking. It reports false
// when the queue is full.
func (client *WebSocketClient) enqueue(msg []byte) bool {
	if client.IsClosed() {
		return true
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// SendMessage 序列化并发送消息
func (client *WebSocketClient) SendMessage(message interface{}) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	client.enqueue(msgBytes)
	return nil
}

// SendError 发送错误消息到客户端
func (client *WebSocketClient) SendError(code, errorMsg string) {
	client.SendMessage(map[string]interface{}{
		"type":      "error",
		"code":      code,
		"error":     errorMsg,
		"timestamp": time.Now().UTC(),
	})
}

// WebSocketManager 按方案ID管理连接，并把方案变更推送给订阅者
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{} // planID -> clients
	mutex       sync.RWMutex
	pingTimeout time.Duration
	logger      *utils.Logger
}

// NewWebSocketManager 创建管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		pingTimeout: 2 * wsPongWait,
		logger:      utils.GetLogger(),
	}
}

// Register adds client to its plan's subscribers.
func (manager *WebSocketManager) Register(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.planID] == nil {
		manager.connections[client.planID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.planID][client] = struct{}{}

	manager.logger.Info("WebSocket client connected", map[string]interface{}{
		"plan_id":   client.planID,
		"client_id": client.id,
	})
}

// Unregister 注销客户端并关闭连接
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	manager.mutex.Lock()
	if clients, exists := manager.connections[client.planID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.planID)
		}
	}
	manager.mutex.Unlock()

	client.Close()
	manager.logger.Info("WebSocket client disconnected", map[string]interface{}{
		"plan_id":   client.planID,
		"client_id": client.id,
	})
}

// StartCleanup 定期清理过期连接，直到 ctx 结束；结束时关闭所有连接
func (manager *WebSocketManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				manager.Shutdown()
				return
			case <-ticker.C:
				manager.cleanupExpiredConnections()
			}
		}
	}()
}

// cleanupExpiredConnections 清理过期和死连接
func (manager *WebSocketManager) cleanupExpiredConnections() int {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	removed := 0
	for planID, clients := range manager.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(clients, client)
				client.Close()
				removed++
			}
		}
		if len(clients) == 0 {
			delete(manager.connections, planID)
		}
	}
	return removed
}

// BroadcastToPlan 向订阅指定方案的所有客户端广播消息
func (manager *WebSocketManager) BroadcastToPlan(planID string, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		manager.logger.Error("failed to encode broadcast", map[string]interface{}{"error": err.Error()})
		return
	}

	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[planID]))
	for client := range manager.connections[planID] {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		if !client.enqueue(msgBytes) {
			// 队列已满的慢客户端直接断开
			manager.logger.Warn("WebSocket client queue full, disconnecting", map[string]interface{}{
				"plan_id":   planID,
				"client_id": client.id,
			})
			go manager.Unregister(client)
		}
	}
}

// NotifyPlanChanged pushes a plan event to the plan's subscribers.
func (manager *WebSocketManager) NotifyPlanChanged(event services.PlanEvent) {
	manager.BroadcastToPlan(event.PlanID, event)
}

// Shutdown 关闭所有连接
func (manager *WebSocketManager) Shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
	manager.logger.Info("WebSocket manager shut down", nil)
}

// ClientCount returns the number of subscribers of planID.
func (manager *WebSocketManager) ClientCount(planID string) int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.connections[planID])
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	plans := make(map[string]interface{})
	total := 0
	for planID, clients := range manager.connections {
		list := make([]map[string]interface{}, 0, len(clients))
		for client := range clients {
			if client.IsClosed() {
				continue
			}
			list = append(list, map[string]interface{}{
				"client_id":    client.id,
				"connected_at": client.createdAt.Format(time.RFC3339),
				"last_ping":    time.Unix(0, client.lastPing.Load()).Format(time.RFC3339),
			})
		}
		plans[planID] = map[string]interface{}{
			"client_count": len(list),
			"clients":      list,
		}
		total += len(list)
	}

	return map[string]interface{}{
		"total_plans":       len(manager.connections),
		"total_connections": total,
		"plans":             plans,
	}
}
