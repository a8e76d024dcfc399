package constants

// ComplianceStatus - производное состояние оборудования.
type ComplianceStatus string

const (
	ComplianceCompliant ComplianceStatus = "compliant"
	ComplianceOverdue   ComplianceStatus = "overdue"
	ComplianceExpired   ComplianceStatus = "expired"
)

func (s ComplianceStatus) String() string {
	return string(s)
}

// ReminderKind - тип напоминания в журнале reminder_records.
type ReminderKind string

const (
	ReminderMaintenanceDue ReminderKind = "maintenance_due"
	ReminderExpiration     ReminderKind = "expiration"
)

func (k ReminderKind) String() string {
	return string(k)
}

// Типы сущностей для журнала напоминаний и проверки удаления.
const (
	EntityEquipment = "equipment"
	EntityVendor    = "vendor"
	EntityClient    = "client"
)
