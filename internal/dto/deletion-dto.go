package dto

// DeletionConstraintReport - результат агрегации зависимых записей.
// Считается по запросу и никогда не сохраняется.
type DeletionConstraintReport struct {
	EntityType string            `json:"entity_type"`
	EntityID   uint64            `json:"entity_id"`
	CanDelete  bool              `json:"can_delete"`
	Counts     map[string]uint64 `json:"counts"`
}

// Имена счётчиков в отчёте.
const (
	CountClients       = "clientsCount"
	CountEquipment     = "equipmentCount"
	CountAssignments   = "assignmentsCount"
	CountActiveTickets = "activeTicketsCount"
)
