package repositories

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
	"equipment-compliance/pkg/constants"
)

const reminderTable = "reminder_records"

type ReminderRepositoryInterface interface {
	// TryInsert пытается занять (entity, kind, period). false без ошибки -
	// запись уже есть, уведомление отправлять нельзя.
	TryInsert(ctx context.Context, record entities.ReminderRecord) (bool, error)
	// Release удаляет запись, чтобы следующий запуск повторил отправку.
	Release(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, entityType string, entityID uint64, kind constants.ReminderKind) (int, error)
}

type ReminderRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewReminderRepository(storage DBPool, logger *zap.Logger) ReminderRepositoryInterface {
	return &ReminderRepository{storage: storage, logger: logger}
}

// TryInsert полагается на уникальный индекс reminder_records_once_per_period:
// при конфликте INSERT ничего не возвращает, что и есть сигнал "уже обработано".
func (r *ReminderRepository) TryInsert(ctx context.Context, record entities.ReminderRecord) (bool, error) {
	dispatchedAt := record.DispatchedAt
	if dispatchedAt.IsZero() {
		dispatchedAt = time.Now().UTC()
	}

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(reminderTable).
		Columns("id", "entity_type", "entity_id", "kind", "period_key", "dispatched_at").
		Values(record.ID.String(), record.EntityType, record.EntityID, string(record.Kind), record.PeriodKey, dispatchedAt).
		Suffix("ON CONFLICT (entity_type, entity_id, kind, period_key) DO NOTHING RETURNING entity_id").
		ToSql()
	if err != nil {
		return false, err
	}

	var insertedID uint64
	err = r.storage.QueryRow(ctx, query, args...).Scan(&insertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ReminderRepository) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.storage.Exec(ctx, `DELETE FROM reminder_records WHERE id = $1`, id.String())
	return err
}

func (r *ReminderRepository) Count(ctx context.Context, entityType string, entityID uint64, kind constants.ReminderKind) (int, error) {
	var count int
	err := r.storage.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminder_records WHERE entity_type = $1 AND entity_id = $2 AND kind = $3`,
		entityType, entityID, string(kind),
	).Scan(&count)
	return count, err
}
