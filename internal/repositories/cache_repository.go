package repositories

import (
	"context"
	"time"
)

// CacheRepositoryInterface - то, что нужно от Redis для блокировок рассылок.
type CacheRepositoryInterface interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	// DelIfValue удаляет ключ, только если в нём всё ещё value. true - ключ удалён.
	DelIfValue(ctx context.Context, key string, value string) (bool, error)
}
