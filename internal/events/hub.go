package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-presale/internal/domain"
	"solana-presale/internal/observability"
)

// ErrHubClosed is returned by Publish after Close.
var ErrHubClosed = errors.New("websocket hub closed")

// HubConfig configures websocket hub behavior.
type HubConfig struct {
	// SendBuffer is the per-client queue length; a client whose queue is
	// full is disconnected.
	SendBuffer int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub streams committed ledger events to websocket clients.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// NewHub creates a hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, log zerolog.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	defaults := DefaultHubConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log.With().Str("component", "ws_hub").Logger(),
		clients: make(map[*hubClient]struct{}),
	}
}

// Name implements Sink.
func (h *Hub) Name() string {
	return "websocket"
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.wg.Add(2)
	h.mu.Unlock()
	observability.SetWSClients(n)
	h.log.Debug().Str("remote", r.RemoteAddr).Int("clients", n).Msg("websocket client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Publish broadcasts the event to all connected clients.
func (h *Hub) Publish(_ context.Context, e *domain.LedgerEvent) error {
	if h.closed.Load() {
		return ErrHubClosed
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Msg("websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() {
	if h.closed.Swap(true) {
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	observability.SetWSClients(len(h.clients))
}

// writeLoop drains the client queue and keeps the connection alive.
func (h *Hub) writeLoop(c *hubClient) {
	defer h.wg.Done()
	defer c.conn.Close()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop discards client input and detects disconnects.
func (h *Hub) readLoop(c *hubClient) {
	defer h.wg.Done()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}
