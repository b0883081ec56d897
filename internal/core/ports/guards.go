package ports

import (
	"context"
	"time"
)

// SubmitGuard allows one submission in flight per user across processes.
type SubmitGuard interface {
	// TryAcquire returns a release func when the lock for uid was free.
	TryAcquire(ctx context.Context, uid string) (release func(), ok bool, err error)
}

// TokenRevocations records signed-out tokens until they would have expired.
type TokenRevocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
