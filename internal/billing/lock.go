package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards an order against concurrent settlement.  Acquire returns
// ErrPaymentInFlight when the key is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// lockSet holds a process-local lock and, when Redis is available, a
// token-owned Redis key so gateways sharing a Redis also exclude each other.
type lockSet struct {
	mu     sync.Mutex
	held   map[string]struct{}
	rdb    *redis.Client
	prefix string
}

// NewLocker builds a Locker.  A nil rdb gives a process-local lock only.
func NewLocker(rdb *redis.Client) Locker {
	return &lockSet{held: make(map[string]struct{}), rdb: rdb, prefix: "posgw:paylock:"}
}

func (l *lockSet) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	releaseLocal := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	if l.rdb == nil {
		return releaseLocal, nil
	}

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		// Redis unreachable: the local lock still covers this process.
		return releaseLocal, nil
	}
	if !ok {
		releaseLocal()
		return nil, ErrPaymentInFlight
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, l.rdb, []string{l.prefix + key}, token).Err()
		releaseLocal()
	}, nil
}
