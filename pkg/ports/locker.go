package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker guards the compare-and-save of a definition key, so two
// writers sharing a store never recompile and save the same graph at once.
type DistributedLocker interface {
	// Lock waits for key until ctx is done. Backends that can lose a holder
	// expire the lock after ttl; callers always release it with the UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
