package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub держит открытые соединения по пользователям и раздаёт им сообщения.
type Hub struct {
	userClients map[uint64]map[*Client]struct{}
	Register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		userClients: make(map[uint64]map[*Client]struct{}),
		Register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run обслуживает регистрацию клиентов до отмены ctx, затем закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.Register:
			h.mu.Lock()
			if h.userClients[client.UserID] == nil {
				h.userClients[client.UserID] = make(map[*Client]struct{})
			}
			h.userClients[client.UserID][client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("WebSocket клиент зарегистрирован", zap.Uint64("userID", client.UserID))
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Join регистрирует клиента. false - хаб уже остановлен.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.userClients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.logger.Debug("WebSocket клиент отсоединён", zap.Uint64("userID", client.UserID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.userClients {
		for client := range clients {
			close(client.Send)
		}
		delete(h.userClients, userID)
	}
}

// ConnectionsOf - число открытых соединений пользователя.
func (h *Hub) ConnectionsOf(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// SendMessageToUser кладёт сообщение в очередь каждого соединения пользователя.
// Переполненная очередь не блокирует отправителя: сообщение для такого
// соединения отбрасывается. Пользователь без соединений - не ошибка.
func (h *Hub) SendMessageToUser(userID uint64, payload interface{}, messageType string) error {
	messageBytes, err := json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userClients[userID] {
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("Очередь WebSocket клиента переполнена, сообщение отброшено", zap.Uint64("userID", userID))
		}
	}
	return nil
}
