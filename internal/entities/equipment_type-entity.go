package entities

import "equipment-compliance/pkg/types"

type EquipmentType struct {
	ID                      uint64 `json:"id"`
	Name                    string `json:"name"`
	MaintenanceIntervalDays int    `json:"maintenance_interval_days"`

	types.BaseEntity
}
