package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/pkg/metrics"
	"equipment-compliance/pkg/utils"
)

const complianceRefreshBatch = 100

type ComplianceServiceInterface interface {
	GetEquipmentCompliance(ctx context.Context, id uint64) (*dto.EquipmentComplianceDTO, error)
	RefreshComplianceStatuses(ctx context.Context) (*dto.ComplianceRefreshReport, error)
}

type ComplianceService struct {
	equipmentRepo repositories.EquipmentRepositoryInterface
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewComplianceService(
	equipmentRepo repositories.EquipmentRepositoryInterface,
	m *metrics.Metrics,
	logger *zap.Logger,
) ComplianceServiceInterface {
	return &ComplianceService{
		equipmentRepo: equipmentRepo,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// GetEquipmentCompliance всегда считает статус заново, колонка compliance_status
// используется только для фильтров и отчётов.
func (s *ComplianceService) GetEquipmentCompliance(ctx context.Context, id uint64) (*dto.EquipmentComplianceDTO, error) {
	equipment, err := s.equipmentRepo.FindEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	today := utils.DateOnly(s.now())
	result := toEquipmentComplianceDTO(equipment, EquipmentComplianceStatus(equipment, today), today)
	return &result, nil
}

// RefreshComplianceStatuses переписывает устаревшие статусы: с течением дней
// оборудование становится просроченным без изменения дат.
func (s *ComplianceService) RefreshComplianceStatuses(ctx context.Context) (*dto.ComplianceRefreshReport, error) {
	today := utils.DateOnly(s.now())
	report := &dto.ComplianceRefreshReport{}

	var afterID uint64
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := s.equipmentRepo.ListSchedules(ctx, afterID, complianceRefreshBatch)
		if err != nil {
			return report, fmt.Errorf("чтение графиков оборудования: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			e := &batch[i]
			report.Scanned++
			status := EquipmentComplianceStatus(e, today)
			if status == e.ComplianceStatus {
				continue
			}
			updated, err := s.equipmentRepo.UpdateComplianceStatusIfUnchanged(ctx, e, status)
			if err != nil {
				return report, fmt.Errorf("обновление статуса оборудования %d: %w", e.ID, err)
			}
			if !updated {
				// Даты поменялись после чтения пачки, статус уже пересчитан в той транзакции.
				s.logger.Debug("Даты оборудования изменились во время пересчёта, статус не тронут", zap.Uint64("equipmentID", e.ID))
				report.Skipped++
				continue
			}
			report.Changed++
		}
		afterID = batch[len(batch)-1].ID

		if len(batch) < complianceRefreshBatch {
			break
		}
	}

	s.metrics.AddComplianceChanged(report.Changed)
	s.logger.Info("Статусы соответствия пересчитаны",
		zap.Int("scanned", report.Scanned),
		zap.Int("changed", report.Changed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}
