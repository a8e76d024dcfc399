package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/repositories"
	apperrors "equipment-compliance/pkg/errors"
)

type DeletionServiceInterface interface {
	CheckDeletion(ctx context.Context, entityType string, id uint64) (*dto.DeletionConstraintReport, error)
	Delete(ctx context.Context, entityType string, id uint64) error
}

type DeletionService struct {
	txManager      repositories.TxManagerInterface
	dependencyRepo repositories.DependencyRepositoryInterface
	logger         *zap.Logger
}

func NewDeletionService(
	txManager repositories.TxManagerInterface,
	dependencyRepo repositories.DependencyRepositoryInterface,
	logger *zap.Logger,
) DeletionServiceInterface {
	return &DeletionService{
		txManager:      txManager,
		dependencyRepo: dependencyRepo,
		logger:         logger,
	}
}

func buildReport(entityType string, id uint64, counts map[string]uint64) *dto.DeletionConstraintReport {
	canDelete := true
	for _, n := range counts {
		if n > 0 {
			canDelete = false
			break
		}
	}
	return &dto.DeletionConstraintReport{
		EntityType: entityType,
		EntityID:   id,
		CanDelete:  canDelete,
		Counts:     counts,
	}
}

func (s *DeletionService) collect(ctx context.Context, tx pgx.Tx, entityType string, id uint64) (*dto.DeletionConstraintReport, error) {
	counts, err := s.dependencyRepo.CountDependents(ctx, tx, entityType, id)
	if err != nil {
		return nil, err
	}
	return buildReport(entityType, id, counts), nil
}

// CheckDeletion только читает. Отчёт нужен для предупреждения перед удалением
// и ничего не гарантирует: Delete проверяет заново.
func (s *DeletionService) CheckDeletion(ctx context.Context, entityType string, id uint64) (*dto.DeletionConstraintReport, error) {
	if err := s.dependencyRepo.Exists(ctx, nil, entityType, id); err != nil {
		return nil, err
	}
	return s.collect(ctx, nil, entityType, id)
}

// Delete блокирует строку сущности, пересчитывает зависимости в той же
// транзакции и удаляет только при нулевых счётчиках.
func (s *DeletionService) Delete(ctx context.Context, entityType string, id uint64) error {
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.dependencyRepo.LockForDeleteInTx(ctx, tx, entityType, id); err != nil {
			return err
		}

		report, err := s.collect(ctx, tx, entityType, id)
		if err != nil {
			return err
		}
		if !report.CanDelete {
			return apperrors.NewConstraintViolation(entityType, id, report)
		}

		return s.dependencyRepo.DeleteInTx(ctx, tx, entityType, id)
	})
	if err != nil {
		switch {
		case apperrors.IsConstraintViolation(err):
			s.logger.Info("Удаление заблокировано зависимыми записями",
				zap.String("entityType", entityType), zap.Uint64("id", id))
		case apperrors.IsValidation(err), errors.Is(err, apperrors.ErrNotFound):
		default:
			s.logger.Error("Ошибка при удалении",
				zap.String("entityType", entityType), zap.Uint64("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("Сущность удалена", zap.String("entityType", entityType), zap.Uint64("id", id))
	return nil
}
