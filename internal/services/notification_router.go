package services

import (
	"equipment-compliance/pkg/constants"
)

// DefaultNotificationPath - куда ведёт уведомление, для которого нет маршрута.
const DefaultNotificationPath = "/notifications"

type routeKey struct {
	category constants.NotificationCategory
	role     constants.Role
}

// notificationRoutes - единственная таблица маршрутов (категория x роль -> страница).
// Должна покрывать все сочетания constants.NotificationCategories x constants.Roles.
var notificationRoutes = map[routeKey]string{
	{constants.CategoryMaintenanceDue, constants.RoleAdmin}:  "/admin/equipment?filter=maintenance_due",
	{constants.CategoryMaintenanceDue, constants.RoleVendor}: "/vendor/equipment?filter=maintenance_due",
	{constants.CategoryMaintenanceDue, constants.RoleClient}: "/client/equipment",

	{constants.CategoryExpiration, constants.RoleAdmin}:  "/admin/equipment?filter=expiring",
	{constants.CategoryExpiration, constants.RoleVendor}: "/vendor/equipment?filter=expiring",
	{constants.CategoryExpiration, constants.RoleClient}: "/client/equipment",

	{constants.CategoryTicketCreated, constants.RoleAdmin}:  "/admin/tickets",
	{constants.CategoryTicketCreated, constants.RoleVendor}: "/vendor/tickets",
	{constants.CategoryTicketCreated, constants.RoleClient}: "/client/tickets",

	{constants.CategoryTicketResolved, constants.RoleAdmin}:  "/admin/tickets?status=resolved",
	{constants.CategoryTicketResolved, constants.RoleVendor}: "/vendor/tickets?status=resolved",
	{constants.CategoryTicketResolved, constants.RoleClient}: "/client/tickets?status=resolved",

	{constants.CategoryTicketClosed, constants.RoleAdmin}:  "/admin/tickets?status=closed",
	{constants.CategoryTicketClosed, constants.RoleVendor}: "/vendor/tickets?status=closed",
	{constants.CategoryTicketClosed, constants.RoleClient}: "/client/tickets?status=closed",

	{constants.CategoryDeletionBlocked, constants.RoleAdmin}:  "/admin/vendors",
	{constants.CategoryDeletionBlocked, constants.RoleVendor}: "/vendor/clients",
	{constants.CategoryDeletionBlocked, constants.RoleClient}: DefaultNotificationPath,
}

// RouteNotification возвращает путь страницы для уведомления. Никогда не падает:
// неизвестное сочетание ведёт на DefaultNotificationPath.
func RouteNotification(category constants.NotificationCategory, role constants.Role) string {
	if path, ok := notificationRoutes[routeKey{category: category, role: role}]; ok {
		return path
	}
	return DefaultNotificationPath
}
