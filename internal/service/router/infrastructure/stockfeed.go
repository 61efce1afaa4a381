// internal/service/router/infrastructure/stockfeed.go
package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/router/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 内部运维页面，允许所有跨域
		return true
	},
}

// StockFeedHub 维护所有观察库存事件的 WebSocket 连接并负责广播。
// 纯旁路设施：慢客户端被丢消息或踢掉，绝不反压缓存刷新路径。
type StockFeedHub struct {
	cache domain.CandidateCache

	clients    map[string]*feedClient
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan []byte
	lock       sync.RWMutex
}

type feedClient struct {
	hub  *StockFeedHub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func NewStockFeedHub(cache domain.CandidateCache) *StockFeedHub {
	return &StockFeedHub{
		cache:      cache,
		clients:    make(map[string]*feedClient),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan []byte, 256),
	}
}

// Run 驱动注册/注销/广播循环，在独立 goroutine 里执行。
func (h *StockFeedHub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.id] = client
			h.lock.Unlock()
			log.Info().Str("client", client.id).Msg("stock feed client connected")
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.lock.Unlock()
			log.Info().Str("client", client.id).Msg("stock feed client disconnected")
		case payload := <-h.broadcast:
			h.lock.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// 客户端写不过来，丢这一条
				}
			}
			h.lock.RUnlock()
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast 把一条库存事件推给全部已连接的客户端。
func (h *StockFeedHub) Broadcast(event *events.StockChanged) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		log.Warn().Msg("stock feed broadcast queue full, event dropped")
	}
}

// ServeWS 把 HTTP 请求升级为 WebSocket 并注册到 Hub，
// 连接建立后先推一份当前缓存快照。
func (h *StockFeedHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &feedClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.New().String()[:8],
	}
	h.register <- client

	if snapshot, err := h.cache.Snapshot(r.Context()); err == nil {
		if payload, err := json.Marshal(snapshot); err == nil {
			client.send <- payload
		}
	}

	go client.writePump()
	go client.readPump()
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// 观察端不发业务消息，读循环只用于感知断连和心跳
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
