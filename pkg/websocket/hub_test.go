package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func TestHub_SendMessageToUser_DeliversToEveryConnection(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	first := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 7}
	second := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 7}
	other := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 8}
	hub.Register <- first
	hub.Register <- second
	hub.Register <- other
	require.Eventually(t, func() bool { return hub.ConnectionsOf(7) == 2 }, time.Second, 5*time.Millisecond)

	err := hub.SendMessageToUser(7, NotificationPayload{Message: "hello"}, MessageTypeNotification)
	require.NoError(t, err)

	for _, c := range []*Client{first, second} {
		select {
		case raw := <-c.Send:
			var env struct {
				Type    string              `json:"type"`
				Payload NotificationPayload `json:"payload"`
			}
			require.NoError(t, json.Unmarshal(raw, &env))
			assert.Equal(t, MessageTypeNotification, env.Type)
			assert.Equal(t, "hello", env.Payload.Message)
		default:
			t.Fatal("сообщение не доставлено")
		}
	}
	assert.Len(t, other.Send, 0)
}

func TestHub_FullQueueDoesNotBlock(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	client := &Client{Hub: hub, Send: make(chan []byte), UserID: 1}
	hub.Register <- client
	require.Eventually(t, func() bool { return hub.ConnectionsOf(1) == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- hub.SendMessageToUser(1, "x", "ping") }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SendMessageToUser заблокировался")
	}
}

func TestHub_UnknownUserIsNotAnError(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	assert.NoError(t, hub.SendMessageToUser(404, "x", "ping"))
}

func TestHub_RunClosesConnectionsOnCancel(t *testing.T) {
	hub, cancel := startHub(t)

	client := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 3}
	hub.Register <- client
	require.Eventually(t, func() bool { return hub.ConnectionsOf(3) == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.ConnectionsOf(3))
}
