package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const sendTimeout = 8 * time.Second

// Telegram posts messages to a chat via the Bot API. Send never
// returns an error; failures are logged and dropped so notification
// problems cannot back-pressure the trading path.
type Telegram struct {
	apiURL string
	chatID string
	http   *http.Client
}

// NewTelegram creates a notifier for one bot token and chat.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		apiURL: "https://api.telegram.org/bot" + token + "/sendMessage",
		chatID: chatID,
		http:   &http.Client{Timeout: sendTimeout},
	}
}

// NewTelegramWithURL is used by tests to point at a local server.
func NewTelegramWithURL(apiURL, chatID string) *Telegram {
	return &Telegram{
		apiURL: apiURL,
		chatID: chatID,
		http:   &http.Client{Timeout: sendTimeout},
	}
}

func (t *Telegram) Send(ctx context.Context, text string) {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, strings.NewReader(string(body)))
	if err != nil {
		slog.Warn("Telegram request build failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		slog.Warn("Telegram send failed", "err", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Telegram send rejected", "status", resp.StatusCode)
	}
}

// FromConfig returns a Telegram notifier when both the token and chat
// id are present, otherwise a Nop.
func FromConfig(token, chatID string) Notifier {
	if token == "" || chatID == "" {
		slog.Info("Telegram not configured, notifications disabled")
		return Nop{}
	}
	return NewTelegram(token, chatID)
}

// Sendf is a convenience wrapper over Send.
func Sendf(ctx context.Context, n Notifier, format string, args ...any) {
	n.Send(ctx, fmt.Sprintf(format, args...))
}
