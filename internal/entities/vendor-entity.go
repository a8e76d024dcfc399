package entities

import "equipment-compliance/pkg/types"

type Vendor struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	UserID         *uint64 `json:"user_id"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
	IsActive       bool    `json:"is_active"`

	types.BaseEntity
}

type Client struct {
	ID       uint64  `json:"id"`
	VendorID uint64  `json:"vendor_id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	UserID   *uint64 `json:"user_id"`
	IsActive bool    `json:"is_active"`

	types.BaseEntity
}
