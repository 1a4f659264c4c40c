package hold

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisHolder places short-lived holds on slots with SET NX PX.
type RedisHolder struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisHolder(rdb redis.Cmdable, ttl time.Duration, prefix string, logger *zap.Logger) *RedisHolder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "trainer-scheduler"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisHolder{rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (h *RedisHolder) Hold(ctx context.Context, key string) (func(context.Context), bool, error) {
	full := h.prefix + ":" + key
	token := uuid.NewString()
	ok, err := h.rdb.SetNX(ctx, full, token, h.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, h.rdb, []string{full}, token).Err(); err != nil {
			h.logger.Warn("failed to release slot hold", zap.String("key", full), zap.Error(err))
		}
	}
	return release, true, nil
}
