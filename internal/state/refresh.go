package state

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
)

// RefreshReport records the outcome of one best-effort refresh cycle.
// Partial success is the normal case, not an error state.
type RefreshReport struct {
	Completed int
	Failures  map[string]error
}

func (r *RefreshReport) Failed(task string) bool {
	_, ok := r.Failures[task]
	return ok
}

// RefreshAll fans out the independent refresh subtasks and waits for all of
// them. A failure or panic in one subtask is caught, logged, and counted; it
// never cancels or fails the siblings.
func (m *Manager) RefreshAll(ctx context.Context) *RefreshReport {
	report := &RefreshReport{Failures: make(map[string]error)}
	var mu sync.Mutex

	record := func(task string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures[task] = err
			m.metrics.IncrementRefreshFailure(task)
			if m.logger != nil {
				m.logger.WarnContext(ctx, "refresh subtask failed", "task", task, "error", err)
			}
			return
		}
		report.Completed++
	}

	// Plain WithContext would cancel siblings on the first error, so every
	// subtask reports through record and returns nil.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		record("balances", runTask(func() error { return m.refreshBalances(gctx) }))
		return nil
	})
	g.Go(func() error {
		record("price", runTask(func() error { return m.refreshPrice(gctx) }))
		return nil
	})
	g.Go(func() error {
		record("history", runTask(func() error { return m.refreshHistory(gctx) }))
		return nil
	})
	g.Go(func() error {
		record("snapshot", runTask(func() error { return m.persistSnapshot(gctx) }))
		return nil
	})
	_ = g.Wait()

	return report
}

// runTask converts a panic into an error so one broken subtask cannot take
// down the refresh cycle.
func runTask(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh subtask panicked: %v", r)
		}
	}()
	return fn()
}

// refreshBalances pulls canonical balances and applies the corrections,
// clearing stale flags for every source that answered.
func (m *Manager) refreshBalances(ctx context.Context) error {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}

	identities := make([]*domain.Identity, 0, len(snap.Identities))
	for identityID := range snap.Identities {
		identity := snap.Identities[identityID]
		identities = append(identities, &identity)
	}

	for walletID := range snap.Wallets {
		wallet := snap.Wallets[walletID]
		result, err := m.bridge.SynchronizeBalances(ctx, &wallet, identities)
		if err != nil {
			return err
		}
		// Identities are global, not per wallet; apply them on the first
		// pass and skip on later wallets.
		identities = identities[:0]

		if err := m.do(ctx, func(s *Snapshot) {
			if result.WalletErr == nil {
				if w, ok := s.Wallets[result.WalletID]; ok {
					w.Balance = result.WalletBalance
					s.Wallets[result.WalletID] = w
					delete(s.StaleWallets, result.WalletID)
				}
			}
			for identityID, canonical := range result.Identities {
				if i, ok := s.Identities[identityID]; ok {
					i.Balance = canonical.Balance
					i.Revision = canonical.Revision
					s.Identities[identityID] = i
				}
			}
			s.LastSyncAt = result.CheckedAt
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) refreshPrice(ctx context.Context) error {
	if m.price == nil {
		return nil
	}
	snapshot, err := m.price.Snapshot(ctx)
	if err != nil {
		return err
	}
	return m.do(ctx, func(s *Snapshot) {
		s.Price = snapshot
	})
}

func (m *Manager) refreshHistory(ctx context.Context) error {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	var records []domain.TxRecord
	var firstErr error
	for walletID := range snap.Wallets {
		recent, err := m.core.RecentTransactions(ctx, walletID, m.historyLimit)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("wallet %s history: %w", walletID, err)
			}
			continue
		}
		records = append(records, recent...)
	}
	if err := m.do(ctx, func(s *Snapshot) {
		if records != nil {
			s.setHistory(records, m.historyLimit)
		}
	}); err != nil {
		return err
	}
	return firstErr
}

func (m *Manager) persistSnapshot(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := m.snapshots.Save(ctx, snap); err != nil {
		return err
	}
	m.metrics.IncrementSnapshotsPersisted()
	return nil
}

// MarkWalletStale flags a cached wallet for the next reconciliation.
func (m *Manager) MarkWalletStale(ctx context.Context, walletID id.WalletID) error {
	err := m.do(ctx, func(s *Snapshot) {
		s.markWalletStale(walletID)
	})
	if err == nil {
		m.metrics.IncrementStaleMarks()
	}
	return err
}
