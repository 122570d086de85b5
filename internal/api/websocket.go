package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket
	// connections allowed across all IPs.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP.
	MaxWSConnectionsPerIP = 10

	// wsWriteTimeout bounds a single snapshot write; slow consumers are
	// dropped rather than allowed to stall the broadcast loop.
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Snapshot data is not sensitive; all origins may subscribe.
		return true
	},
}

// wsClient tracks one WebSocket connection with its source IP.
type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	ip   string
}

// WebSocketHub fans per-tick snapshots out to all connected clients,
// with per-IP and total connection caps.
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*wsClient

	wsLimiter *WebSocketRateLimiter

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHub creates a hub with connection limiting.
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:   make(map[uuid.UUID]*wsClient),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:  make(chan struct{}),
	}
}

// HandleWS upgrades the request and registers the connection.
func (h *WebSocketHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()
	if total >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from this address", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.wsLimiter.Release(ip)
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{id: uuid.New(), conn: conn, ip: ip}

	h.mu.Lock()
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()
	wsConnectionsActive.Set(float64(count))

	// Reader goroutine: we never expect client messages, but reading
	// surfaces close frames and connection drops.
	go func() {
		defer h.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// drop unregisters a client and closes its connection.
func (h *WebSocketHub) drop(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	count := len(h.clients)
	h.mu.Unlock()

	h.wsLimiter.Release(client.ip)
	wsConnectionsActive.Set(float64(count))
	_ = client.conn.Close()
}

// StartBroadcastLoop begins pushing snapshots to all clients at the
// given rate. Snapshots are marshaled once per tick, not per client.
func (h *WebSocketHub) StartBroadcastLoop(runner RunnerInterface, perSecond int) {
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(perSecond))
		defer ticker.Stop()

		var lastSequence uint64

		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				snap := runner.Snapshot()
				if snap.Sequence == lastSequence {
					continue // No new tick since the last broadcast
				}
				lastSequence = snap.Sequence

				payload, err := json.Marshal(snap)
				if err != nil {
					log.Printf("snapshot marshal failed: %v", err)
					continue
				}
				h.broadcast(payload)
			}
		}
	}()
}

// Stop ends the broadcast loop and closes all connections.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}

func (h *WebSocketHub) broadcast(payload []byte) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			continue
		}
		wsMessagesTotal.Inc()
	}
}

// NumClients returns the number of connected clients.
func (h *WebSocketHub) NumClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
