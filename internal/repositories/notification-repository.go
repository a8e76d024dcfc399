package repositories

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
)

type NotificationRepositoryInterface interface {
	CreateNotification(ctx context.Context, n entities.Notification) (uint64, error)
}

type NotificationRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewNotificationRepository(storage DBPool, logger *zap.Logger) NotificationRepositoryInterface {
	return &NotificationRepository{storage: storage, logger: logger}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n entities.Notification) (uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert("notifications").
		Columns("user_id", "category", "message", "link").
		Values(n.UserID, n.Category, n.Message, n.Link).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	var id uint64
	err = r.storage.QueryRow(ctx, query, args...).Scan(&id)
	return id, err
}
