package mexc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cancelRecorder struct {
	mu       sync.Mutex
	canceled []string
	fail     bool
}

func (c *cancelRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v3/order" {
			http.NotFound(w, r)
			return
		}
		c.mu.Lock()
		c.canceled = append(c.canceled, r.URL.Query().Get("orderId"))
		fail := c.fail
		c.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":30004,"msg":"order not exist"}`)
			return
		}
		fmt.Fprint(w, `{"orderId":"ok","status":"CANCELED"}`)
	})
}

func (c *cancelRecorder) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.canceled...)
}

func newTestWatcher(srvURL string, rec func(string)) (*FillWatcher, *PairRegistry) {
	pairs := NewPairRegistry()
	client := NewClient(srvURL, NewSigner("k", "s"))
	return NewFillWatcher(client, "ws://unused", pairs, rec), pairs
}

func TestWatcherCancelsSiblingOnTerminal(t *testing.T) {
	rec := &cancelRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, pairs := newTestWatcher(srv.URL, nil)
	pairs.Add("2001", "2002")

	frame := `{"e":"executionReport","s":"FOOUSDT","i":2001,"X":"FILLED"}`
	w.OnMessage(context.Background(), []byte(frame))

	assert.Equal(t, []string{"2002"}, rec.ids())
	assert.Zero(t, pairs.Len())
}

func TestWatcherDuplicateTerminalIsNoop(t *testing.T) {
	rec := &cancelRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, pairs := newTestWatcher(srv.URL, nil)
	pairs.Add("2001", "2002")

	w.HandleTerminal(context.Background(), "FOOUSDT", "2001")
	w.HandleTerminal(context.Background(), "FOOUSDT", "2001")
	w.HandleTerminal(context.Background(), "FOOUSDT", "2002")

	assert.Len(t, rec.ids(), 1, "one cancel per pair, ever")
}

func TestWatcherIgnoresNonTerminalAndForeignFrames(t *testing.T) {
	rec := &cancelRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	w, pairs := newTestWatcher(srv.URL, nil)
	pairs.Add("2001", "2002")

	for _, frame := range []string{
		`{"e":"executionReport","s":"FOOUSDT","i":2001,"X":"NEW"}`,
		`{"e":"executionReport","s":"FOOUSDT","i":2001,"X":"PARTIALLY_FILLED"}`,
		`{"e":"outboundAccountPosition"}`,
		`{"e":"executionReport","s":"FOOUSDT","i":9999,"X":"FILLED"}`,
		`not json`,
	} {
		w.OnMessage(context.Background(), []byte(frame))
	}

	assert.Empty(t, rec.ids())
	assert.Equal(t, 2, pairs.Len())
}

func TestWatcherCancelFailureIsReported(t *testing.T) {
	rec := &cancelRecorder{fail: true}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	var mu sync.Mutex
	var notes []string
	w, pairs := newTestWatcher(srv.URL, func(msg string) {
		mu.Lock()
		notes = append(notes, msg)
		mu.Unlock()
	})
	pairs.Add("2001", "2002")

	w.HandleTerminal(context.Background(), "FOOUSDT", "2001")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "2002")
}

func TestWatcherStreamURLCarriesListenKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/v3/userDataStream" {
			fmt.Fprint(w, `{"listenKey":"lk-123"}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	w, _ := newTestWatcher(srv.URL, nil)
	w.wsURL = "wss://wbs.example.com/ws"

	assert.Equal(t, "wss://wbs.example.com/ws?listenKey=lk-123", w.GetURL())
	// The fetched key is cached for the next dial.
	assert.Equal(t, "lk-123", w.listenKey)
}
