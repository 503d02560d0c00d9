package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testHandler struct {
	url      string
	connects atomic.Int32
	messages chan []byte
}

func newTestHandler(url string) *testHandler {
	return &testHandler{url: url, messages: make(chan []byte, 16)}
}

func (h *testHandler) GetURL() string      { return h.url }
func (h *testHandler) Header() http.Header { return nil }
func (h *testHandler) ID() string          { return "TEST" }

func (h *testHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	h.connects.Add(1)
	return nil
}

func (h *testHandler) OnMessage(ctx context.Context, msg []byte) {
	h.messages <- msg
}

func (h *testHandler) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

func wsServer(t *testing.T, serve func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
}

func TestWorkerDeliversMessages(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	h := newTestHandler("ws" + strings.TrimPrefix(srv.URL, "http"))
	w := NewBaseWSWorker(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	select {
	case msg := <-h.messages:
		if string(msg) != "hello" {
			t.Fatalf("got %q, want hello", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestWorkerReconnectsAfterDrop(t *testing.T) {
	// The server closes every connection immediately; the worker must
	// redial on its fixed delay, forever.
	srv := wsServer(t, func(conn *websocket.Conn) {})
	defer srv.Close()

	h := newTestHandler("ws" + strings.TrimPrefix(srv.URL, "http"))
	w := NewBaseWSWorker(h)
	w.ReconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	deadline := time.After(3 * time.Second)
	for h.connects.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d connects, want >= 3", h.connects.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWorkerStopJoins(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	h := newTestHandler("ws" + strings.TrimPrefix(srv.URL, "http"))
	w := NewBaseWSWorker(h)
	w.Start(context.Background())

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not join the run loop")
	}
}

func TestWorkerDialFailureRetries(t *testing.T) {
	h := newTestHandler("ws://127.0.0.1:1") // nothing listens here
	w := NewBaseWSWorker(h)
	w.ReconnectDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	w.Stop()

	if h.connects.Load() != 0 {
		t.Fatal("no connection should have succeeded")
	}
}
