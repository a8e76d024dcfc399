package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"equipment-compliance/internal/entities"
	apperrors "equipment-compliance/pkg/errors"
)

// PartyRepositoryInterface - чтение поставщиков и клиентов, нужных для
// адресации уведомлений.
type PartyRepositoryInterface interface {
	FindVendor(ctx context.Context, id uint64) (*entities.Vendor, error)
	FindClient(ctx context.Context, id uint64) (*entities.Client, error)
}

type PartyRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewPartyRepository(storage DBPool, logger *zap.Logger) PartyRepositoryInterface {
	return &PartyRepository{storage: storage, logger: logger}
}

func (r *PartyRepository) FindVendor(ctx context.Context, id uint64) (*entities.Vendor, error) {
	var v entities.Vendor
	err := r.storage.QueryRow(ctx, `
		SELECT id, name, email, user_id, telegram_chat_id, is_active, created_at, updated_at
		FROM vendors WHERE id = $1
	`, id).Scan(&v.ID, &v.Name, &v.Email, &v.UserID, &v.TelegramChatID, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования vendor: %w", err)
	}
	return &v, nil
}

func (r *PartyRepository) FindClient(ctx context.Context, id uint64) (*entities.Client, error) {
	var c entities.Client
	err := r.storage.QueryRow(ctx, `
		SELECT id, vendor_id, name, email, user_id, is_active, created_at, updated_at
		FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.VendorID, &c.Name, &c.Email, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования client: %w", err)
	}
	return &c, nil
}
