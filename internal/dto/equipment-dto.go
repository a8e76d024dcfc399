package dto

type EquipmentComplianceDTO struct {
	ID                  uint64  `json:"id"`
	SerialNumber        string  `json:"serial_number"`
	EquipmentTypeID     uint64  `json:"equipment_type_id"`
	LastMaintenanceDate *string `json:"last_maintenance_date"`
	NextMaintenanceDate *string `json:"next_maintenance_date"`
	ExpirationDate      *string `json:"expiration_date"`
	ComplianceStatus    string  `json:"compliance_status"`
	EvaluatedOn         string  `json:"evaluated_on"`
}

type ScheduleImportRowError struct {
	Row          int    `json:"row"`
	SerialNumber string `json:"serial_number"`
	Reason       string `json:"reason"`
}

type ScheduleImportResultDTO struct {
	Processed int                      `json:"processed"`
	Updated   int                      `json:"updated"`
	Failed    int                      `json:"failed"`
	Errors    []ScheduleImportRowError `json:"errors"`
}
