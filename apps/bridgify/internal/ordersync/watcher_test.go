package ordersync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, time.Minute, -1))
	assert.Equal(t, time.Second, backoff(time.Second, time.Minute, 0))
	assert.Equal(t, 4*time.Second, backoff(time.Second, time.Minute, 2))
	assert.Equal(t, time.Minute, backoff(time.Second, time.Minute, 10))
	assert.Equal(t, time.Minute, backoff(time.Second, time.Minute, 100))
}

func TestWatcher_DeliversAndReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xABC", r.URL.Query().Get("wallet"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := connections.Add(1)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"order_created"}`))
		if n == 1 {
			// drop the first connection to force a reconnect
			return
		}
		// keep later connections open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	var mu sync.Mutex
	var payloads []string
	watcher := NewWatcher(StreamURL(server.URL, "0xABC"), func(ctx context.Context, payload []byte) {
		mu.Lock()
		payloads = append(payloads, string(payload))
		mu.Unlock()
	}, zap.NewNop())
	watcher.BaseDelay = 10 * time.Millisecond

	watcher.Start(context.Background())
	defer watcher.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(payloads) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, connections.Load(), int32(2))
	mu.Lock()
	assert.Equal(t, `{"event_type":"order_created"}`, payloads[0])
	mu.Unlock()
}

func TestWatcher_StopWhileDisconnected(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	watcher := NewWatcher(StreamURL(server.URL, "0xABC"), func(context.Context, []byte) {}, zap.NewNop())
	watcher.BaseDelay = time.Hour

	watcher.Start(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
