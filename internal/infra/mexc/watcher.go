package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hprow/bnc-anc/internal/infra"
)

const listenKeyKeepalive = 30 * time.Minute

// FillWatcher maintains the OCO invariant for the split-order venue:
// when either leg of a TP/SL pair goes terminal on the private order
// stream, the sibling is cancelled. It runs one long-lived stream per
// adapter, started lazily on first need, and never gives up: stream
// errors lead to a fixed-delay resubscribe, keepalive errors retry
// with exponential backoff. Watcher failures never propagate into an
// in-flight trade.
type FillWatcher struct {
	client *Client
	wsURL  string
	pairs  *PairRegistry
	notify func(string)

	mu        sync.Mutex
	started   bool
	listenKey string
	worker    *infra.BaseWSWorker
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewFillWatcher creates a watcher bound to a client and registry.
// notify receives human-readable failure reports; it may be nil.
func NewFillWatcher(client *Client, wsURL string, pairs *PairRegistry, notify func(string)) *FillWatcher {
	if notify == nil {
		notify = func(string) {}
	}
	return &FillWatcher{
		client: client,
		wsURL:  wsURL,
		pairs:  pairs,
		notify: notify,
	}
}

// Ensure lazily starts the background stream. Safe to call on every
// trade; only the first call does anything.
func (w *FillWatcher) Ensure(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	ctx, w.cancel = context.WithCancel(ctx)

	key, err := w.obtainListenKey(ctx)
	if err != nil {
		// The worker redials through GetURL, which re-requests a key,
		// so a failure here only delays the first subscription.
		slog.Warn("Fill watcher could not obtain listen key yet", "err", err)
	}
	w.listenKey = key

	w.worker = infra.NewBaseWSWorker(w)
	w.worker.Start(ctx)

	w.wg.Add(1)
	go w.keepaliveLoop(ctx)

	slog.Info("Fill watcher started")
}

// Stop tears down the stream and joins the loops.
func (w *FillWatcher) Stop() {
	w.mu.Lock()
	started := w.started
	cancel := w.cancel
	worker := w.worker
	w.mu.Unlock()

	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	if worker != nil {
		worker.Stop()
	}
	w.wg.Wait()
}

func (w *FillWatcher) obtainListenKey(ctx context.Context) (string, error) {
	raw, err := w.client.Do(ctx, http.MethodPost, listenKeyPath, nil, true)
	if err != nil {
		return "", err
	}
	var resp listenKeyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode listen key: %w", err)
	}
	if resp.ListenKey == "" {
		return "", fmt.Errorf("empty listen key")
	}
	return resp.ListenKey, nil
}

// keepaliveLoop extends the listen key periodically. Each failed
// extension retries with capped exponential backoff until it works.
func (w *FillWatcher) keepaliveLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(listenKeyKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for retry := 0; ; retry++ {
			w.mu.Lock()
			key := w.listenKey
			w.mu.Unlock()

			params := url.Values{"listenKey": {key}}
			_, err := w.client.Do(ctx, http.MethodPut, listenKeyPath, params, true)
			if err == nil {
				break
			}
			slog.Warn("Listen key keepalive failed", "retry", retry, "err", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(infra.CalculateBackoff(retry)):
			}
		}
	}
}

// GetURL re-requests a listen key when needed so every (re)subscribe
// uses a valid key.
func (w *FillWatcher) GetURL() string {
	w.mu.Lock()
	key := w.listenKey
	w.mu.Unlock()

	if key == "" {
		fresh, err := w.obtainListenKey(context.Background())
		if err == nil {
			w.mu.Lock()
			w.listenKey = fresh
			w.mu.Unlock()
			key = fresh
		}
	}
	return w.wsURL + "?listenKey=" + key
}

func (w *FillWatcher) Header() http.Header { return nil }

func (w *FillWatcher) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	slog.Info("Private order stream connected")
	return nil
}

func (w *FillWatcher) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (w *FillWatcher) ID() string { return "MEXC_ORDER_STREAM" }

// OnMessage processes one private-stream frame. Only terminal order
// updates for tracked ids matter; everything else is ignored.
func (w *FillWatcher) OnMessage(ctx context.Context, msg []byte) {
	var report executionReport
	if err := json.Unmarshal(msg, &report); err != nil {
		return
	}
	if report.Event != "executionReport" || !report.terminal() {
		return
	}

	w.HandleTerminal(ctx, report.Symbol, report.OrderID.String())
}

// HandleTerminal cancels the sibling of a terminated pair leg. Unknown
// or already-handled ids are no-ops.
func (w *FillWatcher) HandleTerminal(ctx context.Context, symbol, orderID string) {
	sibling, ok := w.pairs.Take(orderID)
	if !ok {
		return
	}

	slog.Info("OCO leg terminal, cancelling sibling",
		"order", orderID, "sibling", sibling, "symbol", symbol)

	params := url.Values{
		"symbol":  {symbol},
		"orderId": {sibling},
	}
	if _, err := w.client.Do(ctx, http.MethodDelete, orderPath, params, true); err != nil {
		msg := fmt.Sprintf("⚠️ failed to cancel sibling order %s (%s): %v", sibling, symbol, err)
		slog.Error("Sibling cancel failed", "order", sibling, "symbol", symbol, "err", err)
		w.notify(msg)
	}
}
