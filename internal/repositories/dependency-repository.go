package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
)

// DependencyRepositoryInterface - источник счётчиков зависимых записей для DeletionGuard.
// Все методы принимают tx, который может быть nil (тогда запрос идёт через пул).
type DependencyRepositoryInterface interface {
	CountDependents(ctx context.Context, tx pgx.Tx, entityType string, id uint64) (map[string]uint64, error)
	Exists(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error
	LockForDeleteInTx(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error
	DeleteInTx(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error
}

type DependencyRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewDependencyRepository(storage DBPool, logger *zap.Logger) DependencyRepositoryInterface {
	return &DependencyRepository{storage: storage, logger: logger}
}

var entityTables = map[string]string{
	constants.EntityVendor: "vendors",
	constants.EntityClient: "clients",
}

const vendorDependentsQuery = `
	SELECT
		(SELECT COUNT(*) FROM clients c WHERE c.vendor_id = $1 AND c.is_active),
		(SELECT COUNT(*) FROM equipment e WHERE e.vendor_id = $1),
		(SELECT COUNT(*) FROM client_equipment_assignments a
			JOIN equipment e ON e.id = a.equipment_id
			WHERE e.vendor_id = $1 AND a.is_active),
		(SELECT COUNT(*) FROM tickets t WHERE t.vendor_id = $1 AND t.status <> 'closed')
`

const clientDependentsQuery = `
	SELECT
		(SELECT COUNT(*) FROM client_equipment_assignments a WHERE a.client_id = $1 AND a.is_active),
		(SELECT COUNT(*) FROM tickets t WHERE t.client_id = $1 AND t.status <> 'closed')
`

const (
	clientAssignmentsLockQuery = `SELECT id FROM client_equipment_assignments WHERE client_id = $1 FOR UPDATE`
	vendorAssignmentsLockQuery = `
		SELECT id FROM client_equipment_assignments
		WHERE client_id IN (SELECT id FROM clients WHERE vendor_id = $1)
		FOR UPDATE`
)

func tableFor(entityType string) (string, error) {
	table, ok := entityTables[entityType]
	if !ok {
		return "", apperrors.NewValidationError("entityType", "неизвестный тип сущности '%s'", entityType)
	}
	return table, nil
}

func (r *DependencyRepository) CountDependents(ctx context.Context, tx pgx.Tx, entityType string, id uint64) (map[string]uint64, error) {
	querier := pick(r.storage, tx)

	switch entityType {
	case constants.EntityVendor:
		var clients, equipment, assignments, tickets uint64
		if err := querier.QueryRow(ctx, vendorDependentsQuery, id).Scan(&clients, &equipment, &assignments, &tickets); err != nil {
			return nil, fmt.Errorf("подсчёт зависимостей поставщика: %w", err)
		}
		return map[string]uint64{
			dto.CountClients:       clients,
			dto.CountEquipment:     equipment,
			dto.CountAssignments:   assignments,
			dto.CountActiveTickets: tickets,
		}, nil
	case constants.EntityClient:
		var equipment, tickets uint64
		if err := querier.QueryRow(ctx, clientDependentsQuery, id).Scan(&equipment, &tickets); err != nil {
			return nil, fmt.Errorf("подсчёт зависимостей клиента: %w", err)
		}
		return map[string]uint64{
			dto.CountEquipment:     equipment,
			dto.CountActiveTickets: tickets,
		}, nil
	}
	_, err := tableFor(entityType)
	return nil, err
}

func (r *DependencyRepository) Exists(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}
	var found uint64
	err = pick(r.storage, tx).QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s WHERE id = $1", table), id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return err
}

// LockForDeleteInTx берёт FOR UPDATE на строку сущности. Любая вставка
// зависимой записи с внешним ключом на эту строку (FOR KEY SHARE) будет ждать
// конца транзакции. Для поставщика дополнительно блокируются его клиенты.
// Привязки оборудования (клиента или всех клиентов поставщика) тоже берутся
// FOR UPDATE: неактивную привязку нельзя реактивировать между пересчётом и
// каскадным удалением.
func (r *DependencyRepository) LockForDeleteInTx(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	var locked uint64
	err = tx.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", table), id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("блокировка %s %d: %w", entityType, id, err)
	}

	switch entityType {
	case constants.EntityVendor:
		if _, err := tx.Exec(ctx, `SELECT id FROM clients WHERE vendor_id = $1 FOR UPDATE`, id); err != nil {
			return fmt.Errorf("блокировка клиентов поставщика %d: %w", id, err)
		}
		if _, err := tx.Exec(ctx, vendorAssignmentsLockQuery, id); err != nil {
			return fmt.Errorf("блокировка привязок поставщика %d: %w", id, err)
		}
	case constants.EntityClient:
		if _, err := tx.Exec(ctx, clientAssignmentsLockQuery, id); err != nil {
			return fmt.Errorf("блокировка привязок клиента %d: %w", id, err)
		}
	}
	return nil
}

func (r *DependencyRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}
	result, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
