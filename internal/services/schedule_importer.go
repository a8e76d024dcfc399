package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/repositories"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/utils"
)

type ScheduleImportServiceInterface interface {
	ImportSchedules(ctx context.Context, file io.Reader) (*dto.ScheduleImportResultDTO, error)
}

// ScheduleImportService обновляет графики оборудования из .xlsx.
// Колонки ищутся по заголовку, порядок в файле не важен.
type ScheduleImportService struct {
	txManager     repositories.TxManagerInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	logger        *zap.Logger
	now           func() time.Time
}

func NewScheduleImportService(
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	logger *zap.Logger,
) ScheduleImportServiceInterface {
	return &ScheduleImportService{
		txManager:     txManager,
		equipmentRepo: equipmentRepo,
		logger:        logger,
		now:           time.Now,
	}
}

type scheduleColumns struct {
	serial, last, next, expiration int
}

type scheduleRow struct {
	last, next, expiration *time.Time
}

// Дату в ячейке принимаем в любом из этих видов, плюс числовой формат Excel.
var importDateLayouts = []string{utils.DateLayout, "02.01.2006", "02/01/2006"}

func (s *ScheduleImportService) ImportSchedules(ctx context.Context, file io.Reader) (*dto.ScheduleImportResultDTO, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, apperrors.NewValidationError("file", "не удалось открыть файл xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, headerRow, cols, err := findScheduleHeader(f)
	if err != nil {
		return nil, err
	}

	today := utils.DateOnly(s.now())
	result := &dto.ScheduleImportResultDTO{Errors: []dto.ScheduleImportRowError{}}

	for i := headerRow + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		row := rows[i]
		lineNum := i + 1
		serial := safeGet(row, cols.serial)
		if isTrashRow(serial) {
			continue
		}
		result.Processed++

		parsed, err := parseScheduleRow(row, cols)
		if err == nil {
			err = s.applyRow(ctx, serial, parsed, today)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, dto.ScheduleImportRowError{
				Row:          lineNum,
				SerialNumber: serial,
				Reason:       err.Error(),
			})
			continue
		}
		result.Updated++
	}

	s.logger.Info("Импорт графиков завершён",
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// applyRow: пустая ячейка оставляет дату как есть. Каждая строка - своя транзакция.
func (s *ScheduleImportService) applyRow(ctx context.Context, serial string, parsed scheduleRow, today time.Time) error {
	return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.equipmentRepo.FindBySerialForUpdateInTx(ctx, tx, serial)
		if err != nil {
			return fmt.Errorf("оборудование не найдено: %w", err)
		}

		if parsed.last != nil {
			equipment.LastMaintenanceDate = parsed.last
		}
		if parsed.next != nil {
			equipment.NextMaintenanceDate = parsed.next
		}
		if parsed.expiration != nil {
			equipment.ExpirationDate = parsed.expiration
		}

		if equipment.LastMaintenanceDate != nil && equipment.NextMaintenanceDate != nil &&
			equipment.NextMaintenanceDate.Before(*equipment.LastMaintenanceDate) {
			return apperrors.NewValidationError("next_maintenance_date", "следующее обслуживание раньше последнего")
		}

		equipment.ComplianceStatus = EquipmentComplianceStatus(equipment, today)
		return s.equipmentRepo.UpdateScheduleInTx(ctx, tx, equipment)
	})
}

func findScheduleHeader(f *excelize.File) ([][]string, int, scheduleColumns, error) {
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		for rIdx, row := range rows {
			cols := scheduleColumns{serial: -1, last: -1, next: -1, expiration: -1}
			for cIdx, name := range row {
				c := strings.ToLower(strings.TrimSpace(name))
				switch {
				case strings.Contains(c, "serial") || strings.Contains(c, "серийн"):
					cols.serial = cIdx
				case strings.Contains(c, "last") || strings.Contains(c, "последн"):
					cols.last = cIdx
				case strings.Contains(c, "next") || strings.Contains(c, "следующ"):
					cols.next = cIdx
				case strings.Contains(c, "expir") || strings.Contains(c, "срок"):
					cols.expiration = cIdx
				}
			}
			if cols.serial != -1 && (cols.last != -1 || cols.next != -1 || cols.expiration != -1) {
				return rows, rIdx, cols, nil
			}
		}
	}
	return nil, 0, scheduleColumns{}, apperrors.NewValidationError("file",
		"не найдена шапка таблицы: нужна колонка серийного номера и хотя бы одна колонка даты")
}

func parseScheduleRow(row []string, cols scheduleColumns) (scheduleRow, error) {
	var parsed scheduleRow
	var err error
	if parsed.last, err = parseCellDate(safeGet(row, cols.last)); err != nil {
		return parsed, fmt.Errorf("последнее обслуживание: %w", err)
	}
	if parsed.next, err = parseCellDate(safeGet(row, cols.next)); err != nil {
		return parsed, fmt.Errorf("следующее обслуживание: %w", err)
	}
	if parsed.expiration, err = parseCellDate(safeGet(row, cols.expiration)); err != nil {
		return parsed, fmt.Errorf("срок эксплуатации: %w", err)
	}
	return parsed, nil
}

func parseCellDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &t, nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, err
		}
		d := utils.DateOnly(t)
		return &d, nil
	}
	return nil, fmt.Errorf("не удалось разобрать дату '%s'", value)
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isTrashRow(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	return v == "" || strings.Contains(v, "итого") || strings.Contains(v, "всего")
}
