package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AlphaKit/pkg/cache"
	"AlphaKit/pkg/logger"
)

// Lease combines the in-process lock with an expiring lease in a shared
// cache service so several processes writing one cache directory also serialize.
type Lease struct {
	local      *Local
	store      cache.Service
	ttl        time.Duration
	retryEvery time.Duration
	log        *logger.Logger
}

type LeaseOption func(*Lease)

// WithTTL bounds how long a crashed holder can block others.
func WithTTL(d time.Duration) LeaseOption {
	return func(l *Lease) { l.ttl = d }
}

// WithRetryEvery sets the polling interval while the lease is held elsewhere.
func WithRetryEvery(d time.Duration) LeaseOption {
	return func(l *Lease) { l.retryEvery = d }
}

func NewLease(store cache.Service, log *logger.Logger, opts ...LeaseOption) *Lease {
	l := &Lease{
		local:      NewLocal(),
		store:      store,
		ttl:        2 * time.Minute,
		retryEvery: 200 * time.Millisecond,
		log:        log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock takes the local lock first, then polls the shared lease until acquired or ctx is done.
func (l *Lease) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	leaseKey := "lock:" + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.store.TryLock(ctx, leaseKey, token, l.ttl)
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("acquire lease %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release on a fresh context so a cancelled run still frees the lease.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.store.Unlock(rctx, leaseKey, token); err != nil {
			l.log.Warn("release lease", logger.String("key", key), logger.Error(err))
		}
		unlockLocal()
	}, nil
}
