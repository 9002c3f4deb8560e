// Package editor carries live theme-editor setting overrides to open
// storefront previews over websockets.
package editor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 16
)

type subscriber struct {
	id   string
	shop string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans overrides out to every preview subscribed to a shop.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *infra.Metrics

	mu     sync.RWMutex
	shops  map[string]map[string]*subscriber
	closed bool
}

// NewHub creates an empty hub. A nil m records into the global metrics.
func NewHub(m *infra.Metrics) *Hub {
	if m == nil {
		m = infra.GlobalMetrics
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Previews run on the shop's own storefront domain.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		metrics: m,
		shops:   make(map[string]map[string]*subscriber),
	}
}

// ServeHTTP upgrades GET ?shop=<shop> to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		http.Error(w, "missing shop", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Editor websocket upgrade failed", slog.Any("error", err))
		return
	}

	sub := &subscriber{
		id:   uuid.NewString(),
		shop: shop,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if !h.register(sub) {
		conn.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(sub)
	}()

	h.readLoop(sub)
	h.unregister(sub)
	wg.Wait()
}

func (h *Hub) register(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	subs, ok := h.shops[sub.shop]
	if !ok {
		subs = make(map[string]*subscriber)
		h.shops[sub.shop] = subs
	}
	subs[sub.id] = sub
	h.metrics.IncrementConnections()

	slog.Info("Editor preview subscribed",
		slog.String("shop", sub.shop),
		slog.String("client", sub.id),
		slog.Int("subscribers", len(subs)),
	)
	return true
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.shops[sub.shop]
	if _, ok := subs[sub.id]; !ok {
		return
	}
	h.remove(sub)
	slog.Info("Editor preview unsubscribed", slog.String("shop", sub.shop), slog.String("client", sub.id))
}

// remove drops sub and closes its queue. Callers hold h.mu.
func (h *Hub) remove(sub *subscriber) {
	subs := h.shops[sub.shop]
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(h.shops, sub.shop)
	}
	sub.close()
	h.metrics.DecrementConnections()
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(sub *subscriber) {
	sub.conn.SetReadDeadline(time.Now().Add(readTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Editor websocket read error", slog.String("client", sub.id), slog.Any("error", err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast sends o to every preview of shop and returns how many
// subscribers it was queued for. Slow subscribers miss the update.
func (h *Hub) Broadcast(shop string, o domain.SettingsOverride) int {
	msg, err := json.Marshal(o)
	if err != nil {
		slog.Error("Failed to encode override", slog.Any("error", err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, sub := range h.shops[shop] {
		select {
		case sub.send <- msg:
			sent++
		default:
			slog.Warn("Editor subscriber buffer full, dropping override", slog.String("client", sub.id))
		}
	}
	return sent
}

// Subscribers returns the number of open previews for shop.
func (h *Hub) Subscribers(shop string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.shops[shop])
}

// Close ends every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, subs := range h.shops {
		for _, sub := range subs {
			h.remove(sub)
		}
	}
}
