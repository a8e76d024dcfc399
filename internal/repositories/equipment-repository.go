package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
)

const equipmentTable = "equipment"

var equipmentSelectColumns = []string{
	"e.id", "e.serial_number", "e.vendor_id", "e.equipment_type_id",
	"e.last_maintenance_date", "e.next_maintenance_date", "e.expiration_date",
	"e.compliance_status", "e.created_at", "e.updated_at",
	"et.id", "et.name", "et.maintenance_interval_days",
}

// Колонка даты, по которой ищутся кандидаты для каждого типа напоминания.
var reminderDateColumn = map[constants.ReminderKind]string{
	constants.ReminderMaintenanceDue: "e.next_maintenance_date",
	constants.ReminderExpiration:     "e.expiration_date",
}

type EquipmentRepositoryInterface interface {
	FindEquipment(ctx context.Context, id uint64) (*entities.Equipment, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	FindBySerialForUpdateInTx(ctx context.Context, tx pgx.Tx, serial string) (*entities.Equipment, error)
	UpdateScheduleInTx(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment) error
	UpdateComplianceStatusIfUnchanged(ctx context.Context, snapshot *entities.Equipment, status constants.ComplianceStatus) (bool, error)
	ListSchedules(ctx context.Context, afterID uint64, limit uint64) ([]entities.Equipment, error)
	FindReminderCandidates(ctx context.Context, kind constants.ReminderKind, from, to time.Time) ([]entities.ReminderCandidate, error)
}

type EquipmentRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage DBPool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &EquipmentRepository{storage: storage, logger: logger}
}

// -----------------------------------------------------------
// SCAN
// -----------------------------------------------------------

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	var et entities.EquipmentType
	var status string

	err := row.Scan(
		&e.ID, &e.SerialNumber, &e.VendorID, &e.EquipmentTypeID,
		&e.LastMaintenanceDate, &e.NextMaintenanceDate, &e.ExpirationDate,
		&status, &e.CreatedAt, &e.UpdatedAt,
		&et.ID, &et.Name, &et.MaintenanceIntervalDays,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования equipment: %w", err)
	}

	e.ComplianceStatus = constants.ComplianceStatus(status)
	e.EquipmentType = &et
	return &e, nil
}

func (r *EquipmentRepository) baseSelect() sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	return psql.Select(equipmentSelectColumns...).
		From(equipmentTable + " AS e").
		Join("equipment_types et ON et.id = e.equipment_type_id")
}

func (r *EquipmentRepository) findOne(ctx context.Context, querier Querier, where sq.Eq, forUpdate bool) (*entities.Equipment, error) {
	builder := r.baseSelect().Where(where)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE OF e")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return scanEquipment(querier.QueryRow(ctx, query, args...))
}

// -----------------------------------------------------------
// FIND
// -----------------------------------------------------------

func (r *EquipmentRepository) FindEquipment(ctx context.Context, id uint64) (*entities.Equipment, error) {
	return r.findOne(ctx, r.storage, sq.Eq{"e.id": id}, false)
}

// FindForUpdateInTx блокирует строку оборудования до конца транзакции.
func (r *EquipmentRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"e.id": id}, true)
}

func (r *EquipmentRepository) FindBySerialForUpdateInTx(ctx context.Context, tx pgx.Tx, serial string) (*entities.Equipment, error) {
	return r.findOne(ctx, pick(r.storage, tx), sq.Eq{"e.serial_number": serial}, true)
}

// ListSchedules отдаёт оборудование пачками по возрастанию id (keyset-пагинация).
func (r *EquipmentRepository) ListSchedules(ctx context.Context, afterID uint64, limit uint64) ([]entities.Equipment, error) {
	query, args, err := r.baseSelect().
		Where(sq.Gt{"e.id": afterID}).
		OrderBy("e.id ASC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]entities.Equipment, 0, limit)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// FindReminderCandidates ищет оборудование, чья дата (по типу напоминания)
// попадает в окно [from, to] включительно, вместе с поставщиком-получателем.
func (r *EquipmentRepository) FindReminderCandidates(ctx context.Context, kind constants.ReminderKind, from, to time.Time) ([]entities.ReminderCandidate, error) {
	dateColumn, ok := reminderDateColumn[kind]
	if !ok {
		return nil, fmt.Errorf("неизвестный тип напоминания: %s", kind)
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(
		"e.id", "e.serial_number", "et.name", dateColumn,
		"v.id", "v.name", "v.email", "v.user_id", "v.telegram_chat_id", "v.is_active",
	).
		From(equipmentTable + " AS e").
		Join("equipment_types et ON et.id = e.equipment_type_id").
		Join("vendors v ON v.id = e.vendor_id").
		Where(sq.And{
			sq.GtOrEq{dateColumn: from},
			sq.LtOrEq{dateColumn: to},
			sq.Eq{"v.is_active": true},
		}).
		OrderBy("e.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []entities.ReminderCandidate
	for rows.Next() {
		var c entities.ReminderCandidate
		if err := rows.Scan(
			&c.EquipmentID, &c.SerialNumber, &c.EquipmentTypeName, &c.DueDate,
			&c.Vendor.ID, &c.Vendor.Name, &c.Vendor.Email, &c.Vendor.UserID, &c.Vendor.TelegramChatID, &c.Vendor.IsActive,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования кандидата на напоминание: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// -----------------------------------------------------------
// UPDATE
// -----------------------------------------------------------

// UpdateScheduleInTx записывает даты и пересчитанный статус одним UPDATE.
func (r *EquipmentRepository) UpdateScheduleInTx(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(equipmentTable).
		Set("last_maintenance_date", equipment.LastMaintenanceDate).
		Set("next_maintenance_date", equipment.NextMaintenanceDate).
		Set("expiration_date", equipment.ExpirationDate).
		Set("compliance_status", string(equipment.ComplianceStatus)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": equipment.ID}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateComplianceStatusIfUnchanged пишет кешированный статус, только если даты
// в строке всё ещё те, по которым он посчитан (snapshot). false - даты успели
// измениться (или строки больше нет), и статус уже записан тем, кто их менял.
// updated_at не трогаем: это не изменение данных пользователем.
func (r *EquipmentRepository) UpdateComplianceStatusIfUnchanged(ctx context.Context, snapshot *entities.Equipment, status constants.ComplianceStatus) (bool, error) {
	query := `
		UPDATE equipment SET compliance_status = $1
		WHERE id = $2
		  AND next_maintenance_date IS NOT DISTINCT FROM $3
		  AND expiration_date IS NOT DISTINCT FROM $4
	`
	result, err := r.storage.Exec(ctx, query,
		string(status), snapshot.ID, snapshot.NextMaintenanceDate, snapshot.ExpirationDate)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
