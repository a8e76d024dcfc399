package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"equipment-compliance/internal/repositories"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/utils"
)

// RunLockerInterface не даёт запустить две рассылки одного типа за один день.
// release снимает блокировку, только если она всё ещё наша.
type RunLockerInterface interface {
	Acquire(ctx context.Context, kind constants.ReminderKind, day time.Time, runID string) (release func(), err error)
}

type RedisRunLocker struct {
	cache  repositories.CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisRunLocker(cache repositories.CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) RunLockerInterface {
	return &RedisRunLocker{cache: cache, ttl: ttl, logger: logger}
}

func runLockKey(kind constants.ReminderKind, day time.Time) string {
	return fmt.Sprintf(constants.CacheKeyReminderRunLock, kind, utils.FormatDate(day))
}

func (l *RedisRunLocker) Acquire(ctx context.Context, kind constants.ReminderKind, day time.Time, runID string) (func(), error) {
	key := runLockKey(kind, day)

	acquired, err := l.cache.SetNX(ctx, key, runID, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("блокировка рассылки %s: %w", kind, err)
	}
	if !acquired {
		return nil, apperrors.ErrRunInProgress
	}

	release := func() {
		// Снимаем блокировку даже если контекст запуска уже отменён.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		deleted, err := l.cache.DelIfValue(releaseCtx, key, runID)
		if err != nil {
			l.logger.Error("Не удалось снять блокировку рассылки", zap.String("key", key), zap.Error(err))
			return
		}
		if !deleted {
			l.logger.Warn("Блокировка рассылки истекла или принадлежит другому запуску", zap.String("key", key))
		}
	}
	return release, nil
}
