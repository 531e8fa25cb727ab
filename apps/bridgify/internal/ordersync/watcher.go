package ordersync

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// backoff returns base * 2^retry capped at max.
func backoff(base, max time.Duration, retry int) time.Duration {
	if retry < 0 {
		return base
	}
	if retry > 30 {
		return max
	}
	delay := base * time.Duration(1<<retry)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// StreamURL turns an http(s) server address into the order stream websocket URL.
func StreamURL(baseURL, walletAddress string) string {
	wsURL := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	return wsURL + "/api/orders/stream?wallet=" + url.QueryEscape(walletAddress)
}

// Watcher subscribes to the server's order stream and calls onEvent for every
// notification. It reconnects with exponential backoff until stopped. Polling stays
// the baseline; the watcher only shortens the time to the next load.
type Watcher struct {
	url     string
	onEvent func(ctx context.Context, payload []byte)
	logger  *zap.Logger

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ReadTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(streamURL string, onEvent func(ctx context.Context, payload []byte), logger *zap.Logger) *Watcher {
	return &Watcher{
		url:         streamURL,
		onEvent:     onEvent,
		logger:      logger,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		ReadTimeout: 90 * time.Second,
	}
}

func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.runLoop(ctx)
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *Watcher) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			delay := backoff(w.BaseDelay, w.MaxDelay, retry)
			w.logger.Warn("Order stream connection failed",
				zap.String("url", w.url),
				zap.Int("retry", retry),
				zap.Duration("delay", delay),
				zap.Error(err))
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.process(ctx)
	}
}

func (w *Watcher) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}

	// server pings keep an idle stream alive
	conn.SetPingHandler(func(data string) error {
		if w.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	w.logger.Info("Order stream connected", zap.String("url", w.url))
	return nil
}

func (w *Watcher) process(ctx context.Context) {
	for {
		w.mu.Lock()
		c := w.conn
		w.mu.Unlock()
		if c == nil {
			return
		}

		if w.ReadTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("Order stream read error", zap.String("url", w.url), zap.Error(err))
			}
			w.close()
			return
		}

		w.onEvent(ctx, msg)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
