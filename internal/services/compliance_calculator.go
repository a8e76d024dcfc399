package services

import (
	"time"

	"equipment-compliance/internal/entities"
	"equipment-compliance/pkg/constants"
	"equipment-compliance/pkg/utils"
)

// ScheduleDates - входные данные расчёта соответствия. Любая дата может отсутствовать.
type ScheduleDates struct {
	LastMaintenanceDate *time.Time
	NextMaintenanceDate *time.Time
	ExpirationDate      *time.Time
}

// CalculateComplianceStatus - чистая функция: даты + "сегодня" -> статус.
// Сравнение идёт по дням в UTC. Порядок правил важен, первое совпадение побеждает:
//  1. срок службы истёк (expiration_date < today) -> expired;
//  2. обслуживание просрочено (next_maintenance_date < today) -> overdue;
//  3. иначе compliant, в том числе когда график ещё не задан.
func CalculateComplianceStatus(dates ScheduleDates, today time.Time) constants.ComplianceStatus {
	day := utils.DateOnly(today)

	if dates.ExpirationDate != nil && utils.DateOnly(*dates.ExpirationDate).Before(day) {
		return constants.ComplianceExpired
	}
	if dates.NextMaintenanceDate != nil && utils.DateOnly(*dates.NextMaintenanceDate).Before(day) {
		return constants.ComplianceOverdue
	}
	return constants.ComplianceCompliant
}

// EquipmentComplianceStatus считает статус по текущим датам оборудования.
func EquipmentComplianceStatus(e *entities.Equipment, today time.Time) constants.ComplianceStatus {
	return CalculateComplianceStatus(ScheduleDates{
		LastMaintenanceDate: e.LastMaintenanceDate,
		NextMaintenanceDate: e.NextMaintenanceDate,
		ExpirationDate:      e.ExpirationDate,
	}, today)
}

// NextMaintenanceDate - дата следующего обслуживания по интервалу типа оборудования.
func NextMaintenanceDate(last time.Time, intervalDays int) time.Time {
	return utils.AddDays(last, intervalDays)
}
