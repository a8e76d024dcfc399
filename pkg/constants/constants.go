// pkg/constants/constants.go
package constants

//============== ROLES ==============

// Role - роль пользователя, запрашивающего данные.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
	RoleClient Role = "client"
)

// Roles - полный список ролей, используется для проверки полноты таблиц.
var Roles = []Role{RoleAdmin, RoleVendor, RoleClient}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if known == r {
			return true
		}
	}
	return false
}

//============== NOTIFICATION CATEGORIES ==============

// NotificationCategory - категория события для уведомлений.
type NotificationCategory string

const (
	CategoryMaintenanceDue  NotificationCategory = "maintenance_due"
	CategoryExpiration      NotificationCategory = "expiration"
	CategoryTicketCreated   NotificationCategory = "ticket_created"
	CategoryTicketResolved  NotificationCategory = "ticket_resolved"
	CategoryTicketClosed    NotificationCategory = "ticket_closed"
	CategoryDeletionBlocked NotificationCategory = "deletion_blocked"
)

var NotificationCategories = []NotificationCategory{
	CategoryMaintenanceDue,
	CategoryExpiration,
	CategoryTicketCreated,
	CategoryTicketResolved,
	CategoryTicketClosed,
	CategoryDeletionBlocked,
}

//============== CACHE KEYS ==============

// Префиксы для ключей в Redis.
const (
	// Блокировка запуска рассылки.
	// Формат: reminder_run:<kind>:<YYYY-MM-DD> -> run_id
	CacheKeyReminderRunLock = "reminder_run:%s:%s"
)

//============== NOTIFICATION CHANNELS ==============

const (
	ChannelEmail    = "email"
	ChannelInApp    = "in_app"
	ChannelTelegram = "telegram"
)

//============== TEMPLATES ==============

const (
	TemplateMaintenanceDue = "maintenance_due"
	TemplateExpiration     = "expiration_alert"
)
