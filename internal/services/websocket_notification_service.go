package services

import (
	"go.uber.org/zap"

	"equipment-compliance/pkg/websocket"
)

type WebSocketNotificationServiceInterface interface {
	SendNotification(userID uint64, payload interface{}, messageType string) error
}

type WebSocketNotificationService struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewWebSocketNotificationService(hub *websocket.Hub, logger *zap.Logger) WebSocketNotificationServiceInterface {
	return &WebSocketNotificationService{
		hub:    hub,
		logger: logger,
	}
}

func (s *WebSocketNotificationService) SendNotification(userID uint64, payload interface{}, messageType string) error {
	s.logger.Debug("Отправка WebSocket-уведомления",
		zap.Uint64("userID", userID),
		zap.String("type", messageType),
	)
	return s.hub.SendMessageToUser(userID, payload, messageType)
}
