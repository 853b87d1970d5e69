package funding

import (
	"context"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
)

// Journal persists confirmed asset locks. It is the record that makes a
// Platform registration failure recoverable: the locked funds are not
// returned to the wallet, so the confirmed lock must survive until a retry
// consumes it. It also enforces single use: MarkConsumed succeeds at most
// once per lock.
//
// Error contract: Find returns ErrNotFound for unknown locks; MarkConsumed
// returns ErrNotFound or ErrAlreadyConsumed (wrapped sentinels); Append
// returns ErrConflict on duplicate IDs.
type Journal interface {
	Append(ctx context.Context, lock *domain.AssetLock) error
	Find(ctx context.Context, lockID string) (*domain.AssetLock, error)
	MarkConsumed(ctx context.Context, lockID string, identityID id.IdentityID) error

	// ListUnconsumed returns confirmed locks not yet spent on a
	// registration or top-up, oldest first. This is the recovery surface.
	ListUnconsumed(ctx context.Context) ([]*domain.AssetLock, error)
}
