package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bridgify/apps/bridgify/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is open for the whole API
	},
}

type streamClient struct {
	conn   *websocket.Conn
	wallet string
	mu     sync.Mutex
}

func (c *streamClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub fans order events out to websocket subscribers. A subscriber that named a
// wallet only receives that wallet's events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*streamClient]struct{}),
		logger:  logger,
	}
}

// Broadcast sends event to every matching subscriber and returns how many got it.
func (h *Hub) Broadcast(event model.OrderEvent) int {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal order event", zap.String("event_id", event.EventID), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*streamClient, 0, len(h.clients))
	for client := range h.clients {
		if client.wallet == "" || client.wallet == event.WalletAddress {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if err := client.write(websocket.TextMessage, data); err != nil {
			h.logger.Warn("Dropping order stream subscriber", zap.String("wallet_address", client.wallet), zap.Error(err))
			h.remove(client)
			continue
		}
		delivered++
	}

	return delivered
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeStream handles GET /api/orders/stream?wallet=
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade order stream", zap.Error(err))
		return
	}

	client := &streamClient{conn: conn, wallet: r.URL.Query().Get("wallet")}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("Order stream subscriber connected", zap.String("wallet_address", client.wallet))

	done := make(chan struct{})
	go h.pingLoop(client, done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribers never send data; reading only detects disconnects and handles control frames
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.remove(client)
	h.logger.Info("Order stream subscriber disconnected", zap.String("wallet_address", client.wallet))
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*streamClient]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.conn.Close()
	}
}

func (h *Hub) pingLoop(client *streamClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(client *streamClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		client.conn.Close()
	}
}
