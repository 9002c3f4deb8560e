package editor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	listenerMaxRetries = 10
	overrideBuffer     = 16
)

// Listener subscribes to a shop's overrides and delivers them on a channel,
// reconnecting with exponential backoff until disconnected.
type Listener struct {
	url       string
	overrides chan domain.SettingsOverride
	backoff   func(retry int) time.Duration

	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithReconnectBackoff replaces the delay between reconnect attempts.
func WithReconnectBackoff(fn func(retry int) time.Duration) ListenerOption {
	return func(l *Listener) { l.backoff = fn }
}

// NewListener creates a listener for the editor endpoint wsURL
// (ws://host/apps/currency-switcher/api/editor) and shop.
func NewListener(wsURL, shop string, opts ...ListenerOption) (*Listener, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("editor url: %w", err)
	}
	q := u.Query()
	q.Set("shop", shop)
	u.RawQuery = q.Encode()

	l := &Listener{
		url:       u.String(),
		overrides: make(chan domain.SettingsOverride, overrideBuffer),
		backoff:   infra.CalculateBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Overrides is closed after Disconnect.
func (l *Listener) Overrides() <-chan domain.SettingsOverride { return l.overrides }

// Connect starts the WebSocket connection with automatic reconnection
func (l *Listener) Connect(ctx context.Context) error {
	ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.connectionLoop(ctx)

	return nil
}

// connectionLoop handles connection and reconnection with exponential backoff
func (l *Listener) connectionLoop(ctx context.Context) {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Editor listener panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Editor listener loop stopped")
			return
		default:
		}

		if err := l.connect(ctx); err != nil {
			slog.Warn("Editor connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := l.backoff(retryCount)
			retryCount++
			if retryCount > listenerMaxRetries {
				slog.Error("Editor max retries exceeded, resetting counter")
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0
		l.readLoop(ctx)
	}
}

func (l *Listener) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.connected = true
	l.mu.Unlock()

	slog.Info("Editor WebSocket connected", slog.String("url", l.url))
	return nil
}

func (l *Listener) readLoop(ctx context.Context) {
	l.mu.RLock()
	conn := l.conn
	l.mu.RUnlock()
	if conn == nil {
		return
	}

	// Unblock ReadMessage when the listener is cancelled.
	stop := context.AfterFunc(ctx, l.closeConnection)
	defer stop()

	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Editor WebSocket read error", slog.Any("error", err))
			}
			l.closeConnection()
			return
		}

		l.handleMessage(message)
	}
}

func (l *Listener) handleMessage(message []byte) {
	o, ok := domain.DecodeOverride(message)
	if !ok || o.IsEmpty() {
		slog.Debug("Ignoring editor message", slog.Int("bytes", len(message)))
		return
	}

	select {
	case l.overrides <- o:
	default:
		slog.Warn("Editor override channel full, dropping update")
	}
}

// closeConnection safely closes the WebSocket connection
func (l *Listener) closeConnection() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.connected = false
}

// Disconnect stops the listener and closes Overrides.
func (l *Listener) Disconnect() {
	if l.cancel != nil {
		l.cancel()
	}
	l.closeConnection()
	l.wg.Wait()
	l.closeOnce.Do(func() {
		close(l.overrides)
		slog.Info("Editor WebSocket disconnected")
	})
}

// IsConnected returns connection status
func (l *Listener) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}
