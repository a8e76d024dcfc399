package entities

import (
	"time"

	"equipment-compliance/pkg/types"
)

// Ticket - заявка на обслуживание. Статус меняется только через TicketService.
type Ticket struct {
	ID                    uint64     `json:"id"`
	Status                string     `json:"status"`
	SupportType           string     `json:"support_type"`
	Priority              string     `json:"priority"`
	IssueDescription      string     `json:"issue_description"`
	ResolutionDescription *string    `json:"resolution_description"`
	EquipmentID           *uint64    `json:"equipment_id"`
	VendorID              *uint64    `json:"vendor_id"`
	ClientID              *uint64    `json:"client_id"`
	ScheduledDate         *time.Time `json:"scheduled_date"`
	ResolvedAt            *time.Time `json:"resolved_at"`
	ClosedAt              *time.Time `json:"closed_at"`
	CalculatedHours       *float64   `json:"calculated_hours"`

	types.BaseEntity
}
