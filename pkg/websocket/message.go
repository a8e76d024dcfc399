package websocket

import "time"

// Envelope - конверт любого сообщения. По Type фронтенд выбирает обработчик.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationPayload - уведомление в колокольчике.
type NotificationPayload struct {
	NotificationID uint64    `json:"notificationId"`
	Category       string    `json:"category"`
	IsRead         bool      `json:"isRead"`
	Message        string    `json:"message"`
	Link           string    `json:"link"`
	CreatedAt      time.Time `json:"created_at"`
}

const MessageTypeNotification = "notification"
