package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendMessage_PostsEscapedMarkdown(t *testing.T) {
	var got sendMessageRequest
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	svc := NewService("TOKEN", zap.NewNop(), WithAPIBase(server.URL))
	err := svc.SendMessage(context.Background(), 42, "SN-1. срок 2024-06-01!")

	require.NoError(t, err)
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "MarkdownV2", got.ParseMode)
	assert.Equal(t, `SN\-1\. срок 2024\-06\-01\!`, got.Text)
}

func TestSendMessage_APIErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"bot was blocked by the user"}`))
	}))
	defer server.Close()

	svc := NewService("TOKEN", zap.NewNop(), WithAPIBase(server.URL))
	err := svc.SendMessage(context.Background(), 42, "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked")
}

func TestSendMessage_NoToken(t *testing.T) {
	svc := NewService("", zap.NewNop())
	assert.False(t, svc.Enabled())
	assert.Error(t, svc.SendMessage(context.Background(), 1, "x"))
}

func TestEscapeTextForMarkdownV2_BackslashFirst(t *testing.T) {
	assert.Equal(t, `a\\\_b`, EscapeTextForMarkdownV2(`a\_b`))
}
