// Package spend serializes input selection per wallet. The wallet's
// spendable input set is the one shared resource two funding operations must
// never race on: overlapping selections would double-spend. The coordinator
// is held for transaction construction and broadcast only, never for the
// confirmation wait, so unrelated work is not blocked behind slow proofs.
package spend

import (
	"context"
	"sync"

	id "creditbridge/pkg/domain"
)

// Coordinator hands out one slot per wallet.
type Coordinator struct {
	mu      sync.Mutex
	wallets map[id.WalletID]chan struct{}
}

// New constructs an empty coordinator.
func New() *Coordinator {
	return &Coordinator{wallets: make(map[id.WalletID]chan struct{})}
}

func (c *Coordinator) slot(walletID id.WalletID) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.wallets[walletID]
	if !ok {
		s = make(chan struct{}, 1)
		c.wallets[walletID] = s
	}
	return s
}

// Acquire blocks until the wallet's slot is free or ctx is done. The returned
// release function must be called exactly once; it is safe to call from a
// different goroutine than the acquirer.
func (c *Coordinator) Acquire(ctx context.Context, walletID id.WalletID) (func(), error) {
	s := c.slot(walletID)
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire takes the slot without blocking. The second return is false when
// another operation holds it.
func (c *Coordinator) TryAcquire(walletID id.WalletID) (func(), bool) {
	s := c.slot(walletID)
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s }) }, true
	default:
		return nil, false
	}
}
