package dto

import "time"

// DispatchFailure - элемент, который не удалось доставить. Retryable: запись
// журнала снята и следующий запуск отправит уведомление снова. Если часть
// каналов уже доставила уведомление, повтора не будет.
type DispatchFailure struct {
	EntityID     uint64 `json:"entity_id"`
	SerialNumber string `json:"serial_number"`
	Reason       string `json:"reason"`
	Retryable    bool   `json:"retryable"`
}

// DispatchReport - итог одного запуска рассылки.
// Attempted = Succeeded + Failed + Skipped.
type DispatchReport struct {
	RunID      string            `json:"run_id"`
	Kind       string            `json:"kind"`
	Today      string            `json:"today"`
	Attempted  int               `json:"attempted"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Cancelled  bool              `json:"cancelled"`
	Failures   []DispatchFailure `json:"failures"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

type ComplianceRefreshReport struct {
	Scanned int `json:"scanned"`
	Changed int `json:"changed"`
	Skipped int `json:"skipped"`
}
