package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"jewelpo/internal/auth"
)

// Event is pushed to clients when a purchase order or vendor changes.
type Event struct {
	Type      string `json:"type"`
	CompanyID int64  `json:"company_id"`
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	Status    string `json:"status,omitempty"`
}

// client wraps a WebSocket connection with a mutex for thread-safe writes.
type client struct {
	conn      *ws.Conn
	mu        sync.Mutex
	companyID int64
	global    bool
}

func (c *client) wants(evt Event) bool {
	return c.global || c.companyID == evt.CompanyID
}

// Hub keeps connected clients and fans events out to the ones in the same company.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *zap.Logger
	gauge   prometheus.Gauge
}

// NewHub creates a Hub. gauge may be nil.
func NewHub(log *zap.Logger, gauge prometheus.Gauge) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{clients: make(map[*client]struct{}), log: log, gauge: gauge}
}

func (h *Hub) register(c *client) int {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Inc()
	}
	return n
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	if h.gauge != nil {
		h.gauge.Dec()
	}
	_ = c.conn.Close()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends evt to every client of the event's company and to platform admins.
func (h *Hub) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("ws: marshal event", zap.Error(err))
		return
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(evt) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		writeErr := c.conn.WriteMessage(ws.TextMessage, data)
		c.mu.Unlock()

		if writeErr != nil {
			h.log.Debug("ws: dropping client", zap.Error(writeErr))
			h.unregister(c)
		}
	}
}

// Upgrader is the default WebSocket upgrader.
var Upgrader = ws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades an authenticated request and keeps it alive with pings
// until the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, companyID: rc.CompanyID, global: rc.IsPlatformAdmin()}
	n := h.register(c)
	h.log.Info("ws: client connected",
		zap.Int64("user_id", rc.UserID), zap.Int64("company_id", rc.CompanyID), zap.Int("clients", n))

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(5*time.Second))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.unregister(c)
	h.log.Info("ws: client disconnected", zap.Int64("user_id", rc.UserID))
}
