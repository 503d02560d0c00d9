package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegramWithURL(srv.URL, "42")
	tg.Send(context.Background(), "position opened")

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "position opened", got["text"])
}

func TestTelegramSendSwallowsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegramWithURL(srv.URL, "42")
	// Must not panic or block; failures are dropped.
	tg.Send(context.Background(), "msg")

	srv.Close()
	tg.Send(context.Background(), "after close")
}

func TestFromConfig(t *testing.T) {
	_, isNop := FromConfig("", "").(Nop)
	assert.True(t, isNop)

	_, isTg := FromConfig("token", "chat").(*Telegram)
	assert.True(t, isTg)
}
