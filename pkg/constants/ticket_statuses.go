package constants

// --- СТАТУСЫ ЗАЯВОК (совпадают со значениями в БД) ---
const (
	TicketStatusOpen     = "open"
	TicketStatusResolved = "resolved"
	TicketStatusClosed   = "closed"
)

// Единственно допустимые переходы: open -> resolved -> closed.
var ticketTransitions = map[string]string{
	TicketStatusOpen:     TicketStatusResolved,
	TicketStatusResolved: TicketStatusClosed,
}

// CanTransition проверяет, что переход from -> to разрешён.
func CanTransition(from, to string) bool {
	next, ok := ticketTransitions[from]
	return ok && next == to
}

// IsFinalStatus - закрытая заявка больше не меняется.
func IsFinalStatus(code string) bool {
	return code == TicketStatusClosed
}

// --- ТИПЫ ПОДДЕРЖКИ ---
const (
	SupportTypeMaintenance = "maintenance"
	SupportTypeSystem      = "system"
	SupportTypeUser        = "user"
)

// --- ПРИОРИТЕТЫ ---
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// --- ОГРАНИЧЕНИЯ РЕШЕНИЯ ЗАЯВКИ ---
const (
	ResolutionDescriptionMinLen = 10
	ResolutionDescriptionMaxLen = 1000
	MaxResolutionHours          = 100.0
)
