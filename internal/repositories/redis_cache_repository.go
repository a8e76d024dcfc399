package repositories

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Сравнение и удаление одной командой, иначе между GET и DEL ключ может
// истечь и достаться другому владельцу.
var delIfValueScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCacheRepository struct {
	client *redis.Client
}

func NewRedisCacheRepository(client *redis.Client) CacheRepositoryInterface {
	return &RedisCacheRepository{client: client}
}

func (r *RedisCacheRepository) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, expiration).Result()
}

func (r *RedisCacheRepository) DelIfValue(ctx context.Context, key string, value string) (bool, error) {
	deleted, err := delIfValueScript.Run(ctx, r.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}
