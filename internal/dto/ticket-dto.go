package dto

import (
	"github.com/aarondl/null/v8"
)

type CreateTicketDTO struct {
	SupportType      string      `json:"support_type" validate:"required,oneof=maintenance system user"`
	Priority         string      `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	IssueDescription string      `json:"issue_description" validate:"required,min=5,max=2000"`
	EquipmentID      *uint64     `json:"equipment_id" validate:"omitempty,gt=0"`
	VendorID         *uint64     `json:"vendor_id" validate:"omitempty,gt=0"`
	ClientID         *uint64     `json:"client_id" validate:"omitempty,gt=0"`
	ScheduledDate    null.String `json:"scheduled_date" validate:"omitempty,date_only"`
}

// ResolveTicketDTO - тело запроса на решение заявки.
// Даты переопределения передаются строкой YYYY-MM-DD.
type ResolveTicketDTO struct {
	ResolutionDescription     string      `json:"resolution_description" validate:"required,min=10,max=1000"`
	ActualHours               float64     `json:"actual_hours" validate:"gt=0,lte=100"`
	CustomMaintenanceDate     null.String `json:"custom_maintenance_date" validate:"omitempty,date_only"`
	CustomNextMaintenanceDate null.String `json:"custom_next_maintenance_date" validate:"omitempty,date_only"`
}

type TicketDTO struct {
	ID                    uint64   `json:"id"`
	Status                string   `json:"status"`
	SupportType           string   `json:"support_type"`
	Priority              string   `json:"priority"`
	IssueDescription      string   `json:"issue_description"`
	ResolutionDescription *string  `json:"resolution_description"`
	EquipmentID           *uint64  `json:"equipment_id"`
	VendorID              *uint64  `json:"vendor_id"`
	ClientID              *uint64  `json:"client_id"`
	ScheduledDate         *string  `json:"scheduled_date"`
	ResolvedAt            *string  `json:"resolved_at"`
	ClosedAt              *string  `json:"closed_at"`
	CalculatedHours       *float64 `json:"calculated_hours"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at"`

	// Заполняется только при решении заявки по обслуживанию.
	Equipment *EquipmentComplianceDTO `json:"equipment,omitempty"`
}
