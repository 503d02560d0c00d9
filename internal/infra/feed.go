package infra

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hprow/bnc-anc/internal/domain"
)

// AnnouncementFeed supervises the signed announcement stream. It
// implements WSHandler on top of BaseWSWorker: every (re)connect signs
// a fresh subscription URL, every decoded DATA message is dispatched
// to the handler without blocking the read loop, and every transport
// error leads to a fixed-delay redial, forever.
type AnnouncementFeed struct {
	wsURL      string
	topic      string
	recvWindow int64
	apiKey     string
	apiSecret  []byte
	dispatch   func(domain.AnnouncementEvent)

	worker *BaseWSWorker
}

// NewAnnouncementFeed builds the feed supervisor. dispatch is invoked
// in its own goroutine per event and must tolerate concurrent calls.
func NewAnnouncementFeed(cfg *Config, dispatch func(domain.AnnouncementEvent)) *AnnouncementFeed {
	f := &AnnouncementFeed{
		wsURL:      cfg.Feed.WSURL,
		topic:      cfg.Feed.Topic,
		recvWindow: cfg.Feed.RecvWindow,
		apiKey:     cfg.Feed.APIKey,
		apiSecret:  []byte(cfg.Feed.APISecret),
		dispatch:   dispatch,
	}
	f.worker = NewBaseWSWorker(f)
	return f
}

// Start begins the supervision loop.
func (f *AnnouncementFeed) Start(ctx context.Context) {
	f.worker.Start(ctx)
}

// Stop tears the stream down and joins the loop.
func (f *AnnouncementFeed) Stop() {
	f.worker.Stop()
	slog.Info("Announcement feed stopped")
}

// GetURL builds a freshly signed subscription URL. Called once per
// dial attempt so the nonce and timestamp are never reused.
func (f *AnnouncementFeed) GetURL() string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")
	ts := time.Now().UnixMilli()
	qs := fmt.Sprintf("random=%s&topic=%s&recvWindow=%d&timestamp=%d", rnd, f.topic, f.recvWindow, ts)

	mac := hmac.New(sha256.New, f.apiSecret)
	mac.Write([]byte(qs))
	sig := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s?%s&signature=%s", f.wsURL, qs, sig)
}

// Header carries the API key on the handshake.
func (f *AnnouncementFeed) Header() http.Header {
	h := make(http.Header)
	h.Set("X-MBX-APIKEY", f.apiKey)
	return h
}

func (f *AnnouncementFeed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	slog.Info("🟢 Announcement feed connected", "topic", f.topic)
	return nil
}

func (f *AnnouncementFeed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (f *AnnouncementFeed) ID() string { return "ANNOUNCEMENT_FEED" }

// envelope is the outer frame of every feed message. The data field is
// a JSON document encoded as a string.
type envelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// OnMessage decodes one frame. Malformed frames are dropped without
// tearing down the connection; valid events are handed off to a new
// goroutine so the read loop never waits on trade execution.
func (f *AnnouncementFeed) OnMessage(ctx context.Context, msg []byte) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		slog.Debug("Feed frame dropped (bad envelope)", "err", err)
		return
	}
	if env.Type != "DATA" {
		return
	}

	var ev domain.AnnouncementEvent
	if err := json.Unmarshal([]byte(env.Data), &ev); err != nil {
		slog.Debug("Feed frame dropped (bad payload)", "err", err)
		return
	}

	slog.Info("📨 Announcement received", "title", ev.Title, "category", ev.CatalogID)
	go f.dispatch(ev)
}
