package entities

import (
	"time"

	"github.com/google/uuid"

	"equipment-compliance/pkg/constants"
)

// ReminderRecord - запись журнала идемпотентности рассылки.
// Уникальность (EntityType, EntityID, Kind, PeriodKey) обеспечивает БД.
type ReminderRecord struct {
	ID           uuid.UUID              `json:"id"`
	EntityType   string                 `json:"entity_type"`
	EntityID     uint64                 `json:"entity_id"`
	Kind         constants.ReminderKind `json:"kind"`
	PeriodKey    string                 `json:"period_key"`
	DispatchedAt time.Time              `json:"dispatched_at"`
}

// ReminderCandidate - оборудование, попавшее в окно рассылки, вместе с получателем.
type ReminderCandidate struct {
	EquipmentID       uint64
	SerialNumber      string
	EquipmentTypeName string
	DueDate           time.Time
	Vendor            Vendor
}

// Notification - уведомление в колокольчике пользователя.
type Notification struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
