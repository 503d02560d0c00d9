// Command feedtest runs a local fake announcement feed. It speaks the
// same wire protocol as the real stream and sends a canned listing
// announcement to every subscriber, so the bot can be exercised end to
// end without feed credentials:
//
//	feedtest -addr :9443 -title "Binance Will List Foo (FOO)" -every 10s
//
// Point the bot at it with feed.ws_url: ws://localhost:9443/ws and
// test_mode: true.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type announcement struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CatalogID int    `json:"catalogId"`
}

func main() {
	addr := flag.String("addr", ":9443", "listen address")
	title := flag.String("title", "Binance Will List TestCoin (TST)", "announcement title to emit")
	catalog := flag.Int("catalog", 48, "catalogId to emit")
	every := flag.Duration("every", 15*time.Second, "emission interval")
	flag.Parse()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	nextID := int64(1)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("Upgrade failed", "err", err)
			return
		}
		defer conn.Close()
		slog.Info("Subscriber connected",
			"remote", r.RemoteAddr, "query", r.URL.RawQuery,
			"apikey", r.Header.Get("X-MBX-APIKEY") != "")

		// Drain client frames so pings are answered.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(*every)
		defer ticker.Stop()
		for {
			payload, _ := json.Marshal(announcement{
				ID:        nextID,
				Title:     *title,
				CatalogID: *catalog,
			})
			nextID++
			frame, _ := json.Marshal(envelope{Type: "DATA", Data: string(payload)})
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Info("Subscriber disconnected", "remote", r.RemoteAddr)
				return
			}
			slog.Info("Announcement emitted", "title", *title)
			<-ticker.C
		}
	})

	slog.Info("Fake announcement feed listening", "addr", *addr, "path", "/ws")
	if err := http.ListenAndServe(*addr, nil); err != nil {
		slog.Error("Server failed", "err", err)
	}
}
