// Package crosslayer implements the higher-level operations that span both
// ledgers: withdrawing credits back to Core, transferring credits between
// identities with optional automatic backup funding, batch funding, and
// balance reconciliation. None of these are atomic across ledgers; each is a
// compensating sequence whose partial-failure states are recoverable and
// reported distinctly.
package crosslayer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"creditbridge/internal/audit"
	"creditbridge/internal/crosslayer/metrics"
	"creditbridge/internal/crosslayer/models"
	"creditbridge/internal/domain"
	"creditbridge/internal/ports"
	id "creditbridge/pkg/domain"
	dErrors "creditbridge/pkg/domain-errors"
	"creditbridge/pkg/platform/sentinel"
	"creditbridge/pkg/retry"
)

// Funder is the asset-lock bridge surface this package composes.
type Funder interface {
	FundIdentity(ctx context.Context, wallet *domain.Wallet, amount int64) (*domain.AssetLock, error)
	TopUpIdentity(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64) (*domain.AssetLock, error)
	FundIdentityWithRetry(ctx context.Context, wallet *domain.Wallet, amount int64, maxAttempts int) (*domain.AssetLock, error)
	TopUpIdentityWithRetry(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64, maxAttempts int) (*domain.AssetLock, error)
	Consume(ctx context.Context, lockID string, identityID id.IdentityID) error
	FindLock(ctx context.Context, lockID string) (*domain.AssetLock, error)
	UnconsumedLocks(ctx context.Context) ([]*domain.AssetLock, error)
	FeeEstimate() int64
}

// AuditPublisher emits audit events for cross-layer operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	// DefaultBatchConcurrency processes batch items one at a time; the
	// spend coordinator serializes input selection anyway, so higher
	// values only overlap the confirmation waits.
	DefaultBatchConcurrency = 1

	// backupFundingAttempts bounds the retrying funding used to cover a
	// transfer shortfall.
	backupFundingAttempts = 3
)

// Bridge composes the asset-lock bridge with the Platform identity client.
type Bridge struct {
	funder   Funder
	platform ports.PlatformClient
	core     ports.CoreClient

	batchConcurrency int
	pollBackoff      retry.BackoffStrategy

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher
}

type Option func(*Bridge)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(b *Bridge) { b.auditor = p }
}

// WithBatchConcurrency bounds how many batch items run at once.
func WithBatchConcurrency(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.batchConcurrency = n
		}
	}
}

// WithPollBackoff sets the delay strategy for withdrawal status polling.
func WithPollBackoff(s retry.BackoffStrategy) Option {
	return func(b *Bridge) { b.pollBackoff = s }
}

func New(funder Funder, platform ports.PlatformClient, core ports.CoreClient, opts ...Option) (*Bridge, error) {
	if funder == nil {
		return nil, fmt.Errorf("funder is required")
	}
	if platform == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	if core == nil {
		return nil, fmt.Errorf("core client is required")
	}

	b := &Bridge{
		funder:           funder,
		platform:         platform,
		core:             core,
		batchConcurrency: DefaultBatchConcurrency,
		pollBackoff:      retry.DefaultExponential(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// WithdrawCreditsToCore debits the identity on Platform and credits the Core
// address. Pessimistic balance policy: only a confirmed status licenses the
// caller to decrement the cached identity balance; pending means the cache
// must be treated as stale until polled or synchronized.
func (b *Bridge) WithdrawCreditsToCore(ctx context.Context, identity *domain.Identity, address id.CoreAddress, amount int64) (*models.WithdrawResult, error) {
	if identity == nil || identity.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "withdrawal identity is required")
	}
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "core address is required")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "amount must be positive")
	}
	if identity.Balance < amount {
		return nil, dErrors.Newf(dErrors.CodeInsufficientFunds,
			"identity %s holds %d credits, need %d", identity.ID, identity.Balance, amount)
	}

	status, err := b.platform.WithdrawToAddress(ctx, identity.ID, address, amount)
	if err != nil {
		b.metrics.IncrementWithdrawal(string(domain.StatusFailed))
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "platform rejected withdrawal")
	}

	b.metrics.IncrementWithdrawal(string(status))
	if status == domain.StatusConfirmed {
		b.emit(ctx, audit.Event{
			Action:     string(audit.EventWithdrawalConfirmed),
			IdentityID: identity.ID,
			Amount:     amount,
		})
	}
	return &models.WithdrawResult{
		IdentityID: identity.ID,
		Address:    address,
		Amount:     amount,
		Status:     status,
	}, nil
}

// AwaitWithdrawal polls a pending withdrawal until it confirms, fails, or
// ctx is done. It is the companion to a pending WithdrawCreditsToCore
// result.
func (b *Bridge) AwaitWithdrawal(ctx context.Context, identityID id.IdentityID, address id.CoreAddress) (domain.OperationStatus, error) {
	status := domain.StatusPending
	for attempt := 1; status == domain.StatusPending; attempt++ {
		var err error
		status, err = b.platform.WithdrawalStatus(ctx, identityID, address)
		if err != nil {
			return domain.StatusPending, dErrors.Wrap(err, dErrors.CodeUnavailable, "withdrawal status poll failed")
		}
		if status != domain.StatusPending {
			break
		}
		timer := time.NewTimer(b.pollBackoff.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.StatusPending, ctx.Err()
		case <-timer.C:
		}
	}
	if status == domain.StatusConfirmed {
		b.emit(ctx, audit.Event{
			Action:     string(audit.EventWithdrawalConfirmed),
			IdentityID: identityID,
		})
	}
	b.metrics.IncrementWithdrawal(string(status))
	return status, nil
}

// TransferBetweenIdentities moves credits from one identity to another. When
// the source balance cannot cover the amount and backup funding is
// configured, the shortfall plus fee buffer is first locked on Core and
// topped up into the source identity; only then is the transfer attempted,
// once. A funding failure fails the transfer with no credits moved. A
// transfer failure after successful funding leaves the funded amount in the
// source identity, recoverable, and is reported as such.
func (b *Bridge) TransferBetweenIdentities(ctx context.Context, from, to *domain.Identity, amount int64, backup *models.BackupFundingConfig) (*models.TransferResult, error) {
	if from == nil || from.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "source identity is required")
	}
	if to == nil || to.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "target identity is required")
	}
	if from.ID == to.ID {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "source and target must differ")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidTransfer, "amount must be positive")
	}

	result := &models.TransferResult{From: from.ID, To: to.ID, Amount: amount, Status: domain.StatusFailed}

	available := from.Balance
	if available < amount {
		if backup == nil || backup.SourceWallet == nil {
			b.metrics.IncrementTransfer("failed")
			return nil, dErrors.Newf(dErrors.CodeInsufficientFunds,
				"identity %s holds %d credits, need %d and no backup funding configured",
				from.ID, available, amount)
		}

		feeBuffer := backup.FeeBuffer
		if feeBuffer <= 0 {
			feeBuffer = b.funder.FeeEstimate()
		}
		shortfall := amount + feeBuffer - available

		lock, err := b.fundShortfall(ctx, backup.SourceWallet, from.ID, shortfall)
		if err != nil {
			b.metrics.IncrementTransfer("failed")
			return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "backup funding failed, no credits moved")
		}
		result.BackupLock = lock
	}

	revision, err := b.platform.TransferCredits(ctx, from.ID, to.ID, amount)
	if err != nil {
		if result.BackupLock != nil {
			// The shortfall already landed in the source identity. The
			// credits are not lost; the next transfer or sync sees them.
			b.metrics.IncrementTransfer("failed_after_funding")
			if b.logger != nil {
				b.logger.ErrorContext(ctx, "transfer failed after backup funding landed",
					"from", from.ID,
					"to", to.ID,
					"lock_id", result.BackupLock.ID,
					"funded", result.BackupLock.Amount,
					"error", err,
				)
			}
			return result, dErrors.Wrap(err, dErrors.CodeUnavailable,
				"transfer failed after backup funding; funded amount remains in source identity")
		}
		b.metrics.IncrementTransfer("failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "platform rejected transfer")
	}

	result.Status = domain.StatusConfirmed
	result.FromRevision = revision
	b.metrics.IncrementTransfer("confirmed")
	b.emit(ctx, audit.Event{
		Action:     string(audit.EventTransferCompleted),
		IdentityID: from.ID,
		Amount:     amount,
	})
	return result, nil
}

// fundShortfall locks the shortfall on Core and mints it into the identity,
// waiting for the top-up to land before the caller retries the transfer.
func (b *Bridge) fundShortfall(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, shortfall int64) (*domain.AssetLock, error) {
	lock, err := b.funder.TopUpIdentityWithRetry(ctx, wallet, identityID, shortfall, backupFundingAttempts)
	if err != nil {
		return nil, err
	}
	if _, err := b.platform.TopUpIdentity(ctx, identityID, lock); err != nil {
		// Funds are locked but not minted: the canonical reconciliation
		// hazard. The journal keeps the lock recoverable.
		b.emit(ctx, audit.Event{
			Action:     string(audit.EventRegistrationFailedFundsLocked),
			IdentityID: identityID,
			WalletID:   wallet.ID,
			TxID:       lock.TxID,
			LockID:     lock.ID,
			Amount:     lock.Amount,
			Reason:     err.Error(),
		})
		return nil, dErrors.Wrap(err, dErrors.CodeRegistrationFailed,
			fmt.Sprintf("shortfall locked (lock %s) but top-up registration failed", lock.ID))
	}
	if err := b.funder.Consume(ctx, lock.ID, identityID); err != nil {
		// Registration succeeded; a consume failure only weakens journal
		// bookkeeping. Log and continue.
		if b.logger != nil {
			b.logger.WarnContext(ctx, "failed to mark backup funding lock consumed",
				"lock_id", lock.ID, "error", err)
		}
	}
	return lock, nil
}

// BatchFundIdentities processes the operations against one wallet with
// bounded concurrency. Every operation yields exactly one result, in input
// order; a failure never aborts the batch. The local remaining-balance
// account reserves amount plus fee up front so concurrent items cannot
// collectively overcommit the wallet.
func (b *Bridge) BatchFundIdentities(ctx context.Context, wallet *domain.Wallet, operations []models.BatchFundingOperation) ([]models.FundingResult, error) {
	if wallet == nil || wallet.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "wallet is required")
	}

	results := make([]models.FundingResult, len(operations))
	fee := b.funder.FeeEstimate()

	var mu sync.Mutex
	remaining := wallet.Balance

	reserve := func(amount int64) (int64, bool) {
		mu.Lock()
		defer mu.Unlock()
		if remaining < amount+fee {
			return remaining, false
		}
		remaining -= amount + fee
		return remaining + amount + fee, true
	}
	refund := func(amount int64) {
		mu.Lock()
		remaining += amount + fee
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.batchConcurrency)

	for i, op := range operations {
		i, op := i, op
		g.Go(func() error {
			results[i] = b.fundOne(gctx, wallet, op, reserve, refund)
			if results[i].Err != nil {
				b.metrics.IncrementBatchItem("failed")
			} else {
				b.metrics.IncrementBatchItem("success")
			}
			// Failures are isolated per item; never fail the group.
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (b *Bridge) fundOne(ctx context.Context, wallet *domain.Wallet, op models.BatchFundingOperation, reserve func(int64) (int64, bool), refund func(int64)) models.FundingResult {
	result := models.FundingResult{Op: op}

	if op.Amount <= 0 {
		result.Err = dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
		return result
	}
	before, ok := reserve(op.Amount)
	if !ok {
		result.Err = dErrors.Newf(dErrors.CodeInsufficientFunds,
			"wallet %s has %d remaining in batch, need %d plus fee", wallet.ID, before, op.Amount)
		return result
	}

	// The funder re-checks against the balance visible at reservation time.
	w := *wallet
	w.Balance = before

	var (
		lock     *domain.AssetLock
		identity *domain.Identity
		err      error
	)
	if op.IdentityID.IsNil() {
		lock, err = b.funder.FundIdentity(ctx, &w, op.Amount)
		if err == nil {
			identity, err = b.platform.CreateIdentity(ctx, lock)
		}
	} else {
		lock, err = b.funder.TopUpIdentity(ctx, &w, op.IdentityID, op.Amount)
		if err == nil {
			identity, err = b.platform.TopUpIdentity(ctx, op.IdentityID, lock)
		}
	}
	if err != nil {
		if lock != nil {
			// Locked but unregistered: the funds left the wallet, so the
			// reservation stands. Keep the lock in the result so the caller
			// can recover, and report the hazard.
			result.Lock = lock
			b.emit(ctx, audit.Event{
				Action:   string(audit.EventRegistrationFailedFundsLocked),
				WalletID: wallet.ID,
				TxID:     lock.TxID,
				LockID:   lock.ID,
				Amount:   lock.Amount,
				Reason:   err.Error(),
			})
			result.Err = dErrors.Wrap(err, dErrors.CodeRegistrationFailed, "funds locked but registration failed")
			return result
		}
		// No transaction was broadcast; the reservation can be released.
		refund(op.Amount)
		result.Err = err
		return result
	}

	if err := b.funder.Consume(ctx, lock.ID, identity.ID); err != nil && b.logger != nil {
		b.logger.WarnContext(ctx, "failed to mark batch lock consumed", "lock_id", lock.ID, "error", err)
	}

	result.Lock = lock
	result.Identity = identity
	return result
}

// SynchronizeBalances queries canonical balances for the wallet and each
// identity. Read-only: it returns the corrected values and leaves applying
// them to the caller. Safe to call at any time, including concurrently with
// in-flight funding; it reflects a snapshot, not a lock.
func (b *Bridge) SynchronizeBalances(ctx context.Context, wallet *domain.Wallet, identities []*domain.Identity) (*models.BalanceSyncResult, error) {
	if wallet == nil || wallet.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "wallet is required")
	}

	result := &models.BalanceSyncResult{
		WalletID:     wallet.ID,
		Identities:   make(map[id.IdentityID]models.IdentityBalance, len(identities)),
		IdentityErrs: make(map[id.IdentityID]error),
		CheckedAt:    time.Now(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() error {
		balance, err := b.core.Balance(gctx, wallet.ID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.WalletErr = dErrors.Wrap(err, dErrors.CodeSyncFailed, "core balance query failed")
			return nil
		}
		result.WalletBalance = balance
		return nil
	})

	for _, identity := range identities {
		if identity == nil || identity.ID.IsNil() {
			continue
		}
		identityID := identity.ID
		g.Go(func() error {
			balance, revision, err := b.platform.IdentityBalance(gctx, identityID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.IdentityErrs[identityID] = dErrors.Wrap(err, dErrors.CodeSyncFailed, "identity balance query failed")
				return nil
			}
			result.Identities[identityID] = models.IdentityBalance{Balance: balance, Revision: revision}
			return nil
		})
	}
	_ = g.Wait()

	if n := result.SyncErrors(); n > 0 {
		b.metrics.AddSyncErrors(n)
		if b.logger != nil {
			b.logger.WarnContext(ctx, "balance synchronization completed with errors",
				"wallet_id", wallet.ID, "errors", n)
		}
	}
	return result, nil
}

// RecoverRegistration retries identity registration against an existing,
// already-confirmed asset lock. This is the recovery path after a Platform
// registration failure: funds stay locked, so the fix is to finish the
// registration, never to lock funds again.
func (b *Bridge) RecoverRegistration(ctx context.Context, lockID string) (*domain.Identity, error) {
	lock, err := b.funder.FindLock(ctx, lockID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "asset lock not found")
	}
	if lock.Consumed {
		return nil, dErrors.Wrap(sentinel.ErrAlreadyConsumed, dErrors.CodeInvalidInput,
			fmt.Sprintf("asset lock %s already funded identity %s", lock.ID, lock.IdentityID))
	}
	if !lock.Confirmed() {
		return nil, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidInput,
			"asset lock has no confirmation proof")
	}

	var identity *domain.Identity
	switch lock.Target {
	case domain.TargetTopUp:
		identity, err = b.platform.TopUpIdentity(ctx, lock.IdentityID, lock)
	default:
		identity, err = b.platform.CreateIdentity(ctx, lock)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRegistrationFailed, "registration retry failed")
	}

	if err := b.funder.Consume(ctx, lock.ID, identity.ID); err != nil && b.logger != nil {
		b.logger.WarnContext(ctx, "failed to mark recovered lock consumed", "lock_id", lock.ID, "error", err)
	}
	b.emit(ctx, audit.Event{
		Action:     string(audit.EventRegistrationRecovered),
		IdentityID: identity.ID,
		LockID:     lock.ID,
		Amount:     lock.Amount,
	})
	return identity, nil
}

func (b *Bridge) emit(ctx context.Context, event audit.Event) {
	if b.auditor == nil {
		return
	}
	if err := b.auditor.Emit(ctx, event); err != nil && b.logger != nil {
		b.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
