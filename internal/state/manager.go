// Package state owns the single published view of balances and identities.
// All mutation happens inside one run loop consuming a command channel and
// the Core event stream, so concurrent event delivery and operation
// completion can never race on the same balance field. Events apply in
// delivery order; operation results apply in completion order.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"creditbridge/internal/crosslayer/models"
	"creditbridge/internal/domain"
	"creditbridge/internal/funding"
	"creditbridge/internal/ports"
	"creditbridge/internal/state/metrics"
	id "creditbridge/pkg/domain"
	dErrors "creditbridge/pkg/domain-errors"
	"creditbridge/pkg/platform/sentinel"
)

// Funder is the asset-lock bridge surface the manager drives.
type Funder interface {
	FundIdentityStaged(ctx context.Context, wallet *domain.Wallet, amount int64, maxAttempts int, notify funding.StageFunc) (*domain.AssetLock, error)
	Consume(ctx context.Context, lockID string, identityID id.IdentityID) error
	FeeEstimate() int64
}

// Reconciler is the cross-layer surface used by the refresh cycle.
type Reconciler interface {
	SynchronizeBalances(ctx context.Context, wallet *domain.Wallet, identities []*domain.Identity) (*models.BalanceSyncResult, error)
}

// CrossLayer is the full cross-layer bridge surface the manager drives.
// Transfers and withdrawals go through the manager so their confirmed
// effects reach the published view instead of going stale silently.
type CrossLayer interface {
	Reconciler
	TransferBetweenIdentities(ctx context.Context, from, to *domain.Identity, amount int64, backup *models.BackupFundingConfig) (*models.TransferResult, error)
	WithdrawCreditsToCore(ctx context.Context, identity *domain.Identity, address id.CoreAddress, amount int64) (*models.WithdrawResult, error)
}

// SnapshotStore persists the last published snapshot so a restart resumes
// from known state instead of an empty cache.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Load returns sentinel.ErrNotFound when no snapshot has been saved.
	Load(ctx context.Context) (*Snapshot, error)
}

const (
	DefaultFundingAttempts = 3
	DefaultHistoryLimit    = 100
	defaultCommandBuffer   = 64
)

// Manager is the unified state actor.
type Manager struct {
	funder   Funder
	bridge   CrossLayer
	platform ports.PlatformClient
	core     ports.CoreClient

	price     ports.PriceFeed
	snapshots SnapshotStore

	fundingAttempts int
	historyLimit    int

	commands chan command
	// Closed when Run exits so queued callers never wait on a dead loop.
	stopped chan struct{}

	// Owned by the run loop. Never touched from outside it.
	snap    *Snapshot
	subs    map[int]chan Event
	nextSub int

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type command struct {
	fn   func(s *Snapshot)
	done chan struct{}
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

func WithPriceFeed(p ports.PriceFeed) Option {
	return func(m *Manager) { m.price = p }
}

func WithSnapshotStore(s SnapshotStore) Option {
	return func(m *Manager) { m.snapshots = s }
}

// WithFundingAttempts bounds the retrying funding flow inside
// CreateFundedIdentity.
func WithFundingAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.fundingAttempts = n
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historyLimit = n
		}
	}
}

func New(funder Funder, bridge CrossLayer, platform ports.PlatformClient, core ports.CoreClient, opts ...Option) (*Manager, error) {
	if funder == nil {
		return nil, fmt.Errorf("funder is required")
	}
	if bridge == nil {
		return nil, fmt.Errorf("cross-layer bridge is required")
	}
	if platform == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	if core == nil {
		return nil, fmt.Errorf("core client is required")
	}

	m := &Manager{
		funder:          funder,
		bridge:          bridge,
		platform:        platform,
		core:            core,
		fundingAttempts: DefaultFundingAttempts,
		historyLimit:    DefaultHistoryLimit,
		commands:        make(chan command, defaultCommandBuffer),
		stopped:         make(chan struct{}),
		snap:            newSnapshot(),
		subs:            make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Restore loads the last persisted snapshot, if any. Call before Run; the
// restored cache is marked stale wholesale since its age is unknown.
func (m *Manager) Restore(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}
	snap, err := m.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load snapshot: %w", err)
	}
	for walletID := range snap.Wallets {
		snap.StaleWallets[walletID] = true
	}
	snap.Connected = false
	m.snap = snap
	return nil
}

// Run is the single writer. It owns m.snap until ctx is done, at which point
// all subscriber channels are closed.
func (m *Manager) Run(ctx context.Context) error {
	events := m.core.Events()
	for {
		select {
		case <-ctx.Done():
			m.closeSubscribers()
			m.drainCommands()
			close(m.stopped)
			return ctx.Err()
		case cmd := <-m.commands:
			cmd.fn(m.snap)
			m.snap.UpdatedAt = time.Now()
			if cmd.done != nil {
				close(cmd.done)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.applyEvent(ev)
			m.snap.UpdatedAt = time.Now()
		}
	}
}

// applyEvent runs inside the loop. Events are the only channel through which
// the cached Core balance is corrected outside explicit synchronization.
func (m *Manager) applyEvent(ev ports.CoreEvent) {
	switch ev.Type {
	case ports.EventConnectionChanged:
		m.snap.Connected = ev.Connected
		if !ev.Connected {
			// Effects during the outage are unknown.
			for walletID := range m.snap.Wallets {
				m.snap.markWalletStale(walletID)
			}
			m.metrics.IncrementStaleMarks()
		}
	case ports.EventBlockAdded:
		m.snap.Height = ev.Height
	case ports.EventBalanceUpdated:
		// Last-write-wins on the cached balance.
		if w, ok := m.snap.Wallets[ev.WalletID]; ok {
			w.Balance = ev.Balance
			m.snap.Wallets[ev.WalletID] = w
			delete(m.snap.StaleWallets, ev.WalletID)
		}
	case ports.EventTxReceived:
		m.snap.setHistory(append(m.snap.History, domain.TxRecord{
			TxID:      ev.TxID,
			Timestamp: ev.Timestamp,
		}), m.historyLimit)
	case ports.EventTxConfirmed:
		for i := range m.snap.History {
			if m.snap.History[i].TxID == ev.TxID {
				m.snap.History[i].Confirmed = true
			}
		}
	case ports.EventTxDropped:
		kept := m.snap.History[:0]
		for _, rec := range m.snap.History {
			if rec.TxID != ev.TxID {
				kept = append(kept, rec)
			}
		}
		m.snap.History = kept
		// A mempool drop invalidates any provisional deduction tied to it.
		m.snap.markWalletStale(ev.WalletID)
		m.metrics.IncrementStaleMarks()
	default:
		if m.logger != nil {
			m.logger.Warn("unknown core event type", "type", ev.Type)
		}
		return
	}
	m.metrics.IncrementEventApplied(string(ev.Type))
}

// drainCommands runs what was enqueued before shutdown against the final
// snapshot so no blocked caller is left waiting.
func (m *Manager) drainCommands() {
	for {
		select {
		case cmd := <-m.commands:
			cmd.fn(m.snap)
			if cmd.done != nil {
				close(cmd.done)
			}
		default:
			return
		}
	}
}

// do runs fn inside the loop and waits for it to complete. A command that
// races the shutdown drain returns an error without fn having run.
func (m *Manager) do(ctx context.Context, fn func(s *Snapshot)) error {
	done := make(chan struct{})
	select {
	case m.commands <- command{fn: fn, done: done}:
	case <-m.stopped:
		return dErrors.New(dErrors.CodeUnavailable, "state manager stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-m.stopped:
		select {
		case <-done:
			return nil
		default:
			return dErrors.New(dErrors.CodeUnavailable, "state manager stopped")
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish hands an event to the loop for fan-out. Fire-and-forget: a
// saturated loop drops the notification rather than stalling a funding step.
func (m *Manager) publish(ev Event) {
	ev.At = time.Now()
	select {
	case m.commands <- command{fn: func(*Snapshot) { m.fanout(ev) }}:
	default:
		m.metrics.IncrementSubscriberDrops()
	}
}

// fanout runs inside the loop. Slow subscribers lose events instead of
// blocking the single writer.
func (m *Manager) fanout(ev Event) {
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.metrics.IncrementSubscriberDrops()
		}
	}
}

func (m *Manager) closeSubscribers() {
	for key, ch := range m.subs {
		close(ch)
		delete(m.subs, key)
	}
}

// Subscribe registers a lifecycle event channel. The returned cancel detaches
// it; the channel is closed when the manager stops.
func (m *Manager) Subscribe(ctx context.Context, buffer int) (<-chan Event, func(), error) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	var key int
	err := m.do(ctx, func(*Snapshot) {
		key = m.nextSub
		m.nextSub++
		m.subs[key] = ch
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		select {
		case m.commands <- command{fn: func(*Snapshot) {
			if _, ok := m.subs[key]; ok {
				close(m.subs[key])
				delete(m.subs, key)
			}
		}}:
		default:
			// Loop stopped or saturated; Run's shutdown closes the channel.
		}
	}
	return ch, cancel, nil
}

// RegisterWallet seeds the cached view of a Core wallet.
func (m *Manager) RegisterWallet(ctx context.Context, wallet domain.Wallet) error {
	if wallet.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "wallet id is required")
	}
	return m.do(ctx, func(s *Snapshot) {
		s.Wallets[wallet.ID] = wallet
	})
}

// Wallet returns the cached wallet copy.
func (m *Manager) Wallet(ctx context.Context, walletID id.WalletID) (domain.Wallet, error) {
	var (
		wallet domain.Wallet
		found  bool
	)
	if err := m.do(ctx, func(s *Snapshot) {
		wallet, found = s.Wallets[walletID]
	}); err != nil {
		return domain.Wallet{}, err
	}
	if !found {
		return domain.Wallet{}, dErrors.Newf(dErrors.CodeNotFound, "wallet %s is not registered", walletID)
	}
	return wallet, nil
}

// Identity returns the cached identity copy.
func (m *Manager) Identity(ctx context.Context, identityID id.IdentityID) (domain.Identity, error) {
	var (
		identity domain.Identity
		found    bool
	)
	if err := m.do(ctx, func(s *Snapshot) {
		identity, found = s.Identities[identityID]
	}); err != nil {
		return domain.Identity{}, err
	}
	if !found {
		return domain.Identity{}, dErrors.Newf(dErrors.CodeNotFound, "identity %s is not cached", identityID)
	}
	return identity, nil
}

// Snapshot returns a deep copy of the full published state.
func (m *Manager) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	if err := m.do(ctx, func(s *Snapshot) {
		snap = s.Clone()
	}); err != nil {
		return nil, err
	}
	return snap, nil
}

// UnifiedBalance returns the derived aggregate of both ledgers.
func (m *Manager) UnifiedBalance(ctx context.Context) (domain.UnifiedBalance, error) {
	var balance domain.UnifiedBalance
	if err := m.do(ctx, func(s *Snapshot) {
		balance = s.Unified()
	}); err != nil {
		return domain.UnifiedBalance{}, err
	}
	return balance, nil
}

// CreateFundedIdentity runs the full funding state machine for a registered
// wallet, publishing each stage to subscribers. On success the wallet cache
// takes a provisional deduction (amount plus fee) and is flagged stale
// pending the next reconciliation. Cancellation stops the caller's wait
// only; a broadcast transaction is never retroactively undone.
func (m *Manager) CreateFundedIdentity(ctx context.Context, walletID id.WalletID, amount int64) (*domain.Identity, error) {
	wallet, err := m.Wallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	last := StageValidatingFunds
	notify := funding.StageFunc(func(stage funding.Stage) {
		last = Stage(stage)
		m.publish(Event{Stage: Stage(stage), WalletID: walletID})
	})

	lock, err := m.funder.FundIdentityStaged(ctx, &wallet, amount, m.fundingAttempts, notify)
	if err != nil {
		failedAt := last
		if dErrors.HasCode(err, dErrors.CodeInsufficientFunds) {
			failedAt = StageValidatingFunds
		}
		m.publish(Event{Stage: StageFailed, FailedAt: failedAt, WalletID: walletID, Reason: err.Error()})
		m.metrics.IncrementOperation("failed")
		return nil, err
	}

	m.publish(Event{Stage: StageCreatingIdentity, WalletID: walletID, LockID: lock.ID})
	identity, err := m.platform.CreateIdentity(ctx, lock)
	if err != nil {
		// Funds are locked on Core and the journal record is intact; the
		// wallet cache no longer reflects spendable reality, so flag it
		// rather than silently dropping the locked amount from view.
		regErr := dErrors.Wrap(err, dErrors.CodeRegistrationFailed,
			fmt.Sprintf("identity registration failed; lock %s remains recoverable", lock.ID))
		applyCtx := context.WithoutCancel(ctx)
		if derr := m.do(applyCtx, func(s *Snapshot) {
			s.markWalletStale(walletID)
		}); derr == nil {
			m.metrics.IncrementStaleMarks()
		}
		m.publish(Event{Stage: StageFailed, FailedAt: StageCreatingIdentity, WalletID: walletID, LockID: lock.ID, Reason: regErr.Error()})
		m.metrics.IncrementOperation("registration_failed")
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "registration failed after funds locked",
				"wallet_id", walletID,
				"lock_id", lock.ID,
				"txid", lock.TxID,
				"error", err,
			)
		}
		return nil, regErr
	}

	if err := m.funder.Consume(ctx, lock.ID, identity.ID); err != nil && m.logger != nil {
		m.logger.WarnContext(ctx, "failed to mark lock consumed", "lock_id", lock.ID, "error", err)
	}

	// Apply even if the caller cancelled mid-registration: the chain state
	// changed, so the published view must change with it.
	applyCtx := context.WithoutCancel(ctx)
	if err := m.do(applyCtx, func(s *Snapshot) {
		if w, ok := s.Wallets[walletID]; ok {
			w.Balance -= amount + lock.Fee
			s.Wallets[walletID] = w
			// Provisional: the exact fee is known but input change is not
			// final until the next balance event or sync.
			s.StaleWallets[walletID] = true
		}
		s.Identities[identity.ID] = *identity
	}); err != nil {
		return nil, err
	}

	m.publish(Event{Stage: StageCompleted, WalletID: walletID, IdentityID: identity.ID, LockID: lock.ID})
	m.metrics.IncrementOperation("completed")
	return identity, nil
}

// TransferCredits moves credits between two cached identities and applies
// the confirmed effect to the published view: the source takes the Platform
// revision from the result, the destination takes the amount. When backup
// funding ran, the funding wallet gets the provisional deduction and stale
// flag regardless of whether the transfer itself then succeeded.
func (m *Manager) TransferCredits(ctx context.Context, fromID, toID id.IdentityID, amount int64, backup *models.BackupFundingConfig) (*models.TransferResult, error) {
	from, err := m.Identity(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := m.Identity(ctx, toID)
	if err != nil {
		return nil, err
	}

	result, err := m.bridge.TransferBetweenIdentities(ctx, &from, &to, amount, backup)
	if err != nil {
		if result != nil && result.BackupLock != nil {
			// The top-up confirmed before the transfer failed: the funded
			// amount sits in the source identity and the wallet paid for it.
			applyCtx := context.WithoutCancel(ctx)
			if derr := m.do(applyCtx, func(s *Snapshot) {
				m.applyBackupLock(s, result.BackupLock)
				if src, ok := s.Identities[fromID]; ok {
					src.Balance += result.BackupLock.Amount
					s.Identities[fromID] = src
				}
			}); derr != nil && m.logger != nil {
				m.logger.ErrorContext(ctx, "failed to apply backup funding after transfer failure",
					"from", fromID, "lock_id", result.BackupLock.ID, "error", derr)
			}
		}
		m.metrics.IncrementOperation("transfer_failed")
		return result, err
	}

	// Apply even if the caller cancelled mid-transfer: credits moved on
	// Platform, so the published view must move with them.
	applyCtx := context.WithoutCancel(ctx)
	if derr := m.do(applyCtx, func(s *Snapshot) {
		m.applyBackupLock(s, result.BackupLock)
		if src, ok := s.Identities[fromID]; ok {
			if result.BackupLock != nil {
				src.Balance += result.BackupLock.Amount
			}
			src.Balance -= amount
			src.Revision = result.FromRevision
			s.Identities[fromID] = src
		}
		if dst, ok := s.Identities[toID]; ok {
			dst.Balance += amount
			// The destination's Platform revision is unknown here; the
			// next synchronization corrects it.
			s.Identities[toID] = dst
		}
	}); derr != nil {
		return nil, derr
	}
	m.metrics.IncrementOperation("transfer_confirmed")
	return result, nil
}

// applyBackupLock runs inside the loop. Backup funding spent amount plus fee
// from the wallet; the deduction is provisional so the wallet is flagged.
func (m *Manager) applyBackupLock(s *Snapshot, lock *domain.AssetLock) {
	if lock == nil {
		return
	}
	if w, ok := s.Wallets[lock.WalletID]; ok {
		w.Balance -= lock.Amount + lock.Fee
		s.Wallets[lock.WalletID] = w
		s.StaleWallets[lock.WalletID] = true
	}
}

// WithdrawCredits sends credits from a cached identity back to a Core
// address. The cached balance is decremented only on a confirmed status; a
// pending withdrawal leaves the cache untouched until polled or
// synchronized.
func (m *Manager) WithdrawCredits(ctx context.Context, identityID id.IdentityID, address id.CoreAddress, amount int64) (*models.WithdrawResult, error) {
	identity, err := m.Identity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	result, err := m.bridge.WithdrawCreditsToCore(ctx, &identity, address, amount)
	if err != nil {
		m.metrics.IncrementOperation("withdraw_failed")
		return nil, err
	}

	if result.Status == domain.StatusConfirmed {
		applyCtx := context.WithoutCancel(ctx)
		if derr := m.do(applyCtx, func(s *Snapshot) {
			if src, ok := s.Identities[identityID]; ok {
				src.Balance -= amount
				s.Identities[identityID] = src
			}
		}); derr != nil {
			return nil, derr
		}
	}
	m.metrics.IncrementOperation("withdraw_" + string(result.Status))
	return result, nil
}
