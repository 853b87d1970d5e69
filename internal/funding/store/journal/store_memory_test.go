package journal

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
	"creditbridge/pkg/platform/sentinel"
)

func newLock(t *testing.T) *domain.AssetLock {
	t.Helper()
	return &domain.AssetLock{
		ID:       ulid.Make().String(),
		WalletID: id.NewWalletID(),
		TxID:     id.TxID("aa11"),
		Amount:   10_000_000,
		Fee:      1_000,
		Target:   domain.TargetNewIdentity,
		Proof: &domain.ConfirmationProof{
			TxID:       id.TxID("aa11"),
			Signature:  []byte{0x01},
			ReceivedAt: time.Now(),
		},
		CreatedAt: time.Now(),
	}
}

func TestInMemoryStore_AppendAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	lock := newLock(t)

	require.NoError(t, store.Append(ctx, lock))

	found, err := store.Find(ctx, lock.ID)
	require.NoError(t, err)
	assert.Equal(t, lock.Amount, found.Amount)
	assert.False(t, found.Consumed)

	// Returned copies must not alias the stored record.
	found.Consumed = true
	again, err := store.Find(ctx, lock.ID)
	require.NoError(t, err)
	assert.False(t, again.Consumed)
}

func TestInMemoryStore_AppendDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	lock := newLock(t)

	require.NoError(t, store.Append(ctx, lock))
	err := store.Append(ctx, lock)
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_FindUnknown(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Find(context.Background(), ulid.Make().String())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_MarkConsumedIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	lock := newLock(t)
	require.NoError(t, store.Append(ctx, lock))

	identityID := id.NewIdentityID()
	require.NoError(t, store.MarkConsumed(ctx, lock.ID, identityID))

	err := store.MarkConsumed(ctx, lock.ID, id.NewIdentityID())
	require.ErrorIs(t, err, sentinel.ErrAlreadyConsumed)

	found, err := store.Find(ctx, lock.ID)
	require.NoError(t, err)
	assert.True(t, found.Consumed)
	assert.Equal(t, identityID, found.IdentityID, "first consumer wins")
}

func TestInMemoryStore_MarkConsumedUnknown(t *testing.T) {
	store := NewInMemoryStore()
	err := store.MarkConsumed(context.Background(), ulid.Make().String(), id.NewIdentityID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_ListUnconsumedOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	at := func(sec int64) string {
		return ulid.MustNew(ulid.Timestamp(time.Unix(sec, 0)), ulid.DefaultEntropy()).String()
	}
	first := newLock(t)
	first.ID = at(100)
	second := newLock(t)
	second.ID = at(200)
	third := newLock(t)
	third.ID = at(300)
	for _, l := range []*domain.AssetLock{second, third, first} {
		require.NoError(t, store.Append(ctx, l))
	}
	require.NoError(t, store.MarkConsumed(ctx, second.ID, id.NewIdentityID()))

	unconsumed, err := store.ListUnconsumed(ctx)
	require.NoError(t, err)
	require.Len(t, unconsumed, 2)
	assert.Equal(t, first.ID, unconsumed[0].ID, "oldest first")
	assert.Equal(t, third.ID, unconsumed[1].ID)
}
