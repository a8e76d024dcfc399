package entities

import (
	"time"

	"equipment-compliance/pkg/constants"
	"equipment-compliance/pkg/types"
)

// Equipment - экземпляр оборудования. Даты хранятся с точностью до дня (UTC).
type Equipment struct {
	ID                  uint64                     `json:"id"`
	SerialNumber        string                     `json:"serial_number"`
	VendorID            uint64                     `json:"vendor_id"`
	EquipmentTypeID     uint64                     `json:"equipment_type_id"`
	LastMaintenanceDate *time.Time                 `json:"last_maintenance_date"`
	NextMaintenanceDate *time.Time                 `json:"next_maintenance_date"`
	ExpirationDate      *time.Time                 `json:"expiration_date"`
	ComplianceStatus    constants.ComplianceStatus `json:"compliance_status"`

	types.BaseEntity

	// Поля для связанных данных (не колонки в таблице)
	EquipmentType *EquipmentType `db:"-"`
	Vendor        *Vendor        `db:"-"`
}
