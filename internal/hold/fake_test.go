package hold

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// memRedis covers the commands the holder issues; anything else panics
// through the nil embedded interface.
type memRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	vals map[string]string
	ttls map[string]time.Duration
}

func newMemRedis() *memRedis {
	return &memRedis{vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.vals[key] = value.(string)
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

// EvalSha runs the compare-and-delete release script.
func (m *memRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vals[keys[0]]; ok && v == args[0] {
		delete(m.vals, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (m *memRedis) set(key, val string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = val
}

func (m *memRedis) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok
}
