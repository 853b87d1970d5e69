// Package funding implements the asset-lock bridge: building and
// broadcasting value-locking transactions on Core, waiting for instant-lock
// proofs, and retrying the transient failure classes without ever producing
// two competing lock transactions for one logical request.
package funding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"creditbridge/internal/audit"
	"creditbridge/internal/domain"
	"creditbridge/internal/funding/metrics"
	"creditbridge/internal/funding/spend"
	"creditbridge/internal/ports"
	id "creditbridge/pkg/domain"
	dErrors "creditbridge/pkg/domain-errors"
	"creditbridge/pkg/retry"
)

// AuditPublisher emits audit events for funding lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Defaults applied when options are not supplied.
const (
	DefaultFeeEstimate         = 1_000
	DefaultConfirmationTimeout = 30 * time.Second
)

// Stage tags the coarse phases of one funding flow, in order.
type Stage string

const (
	StageValidatingFunds         Stage = "validating_funds"
	StageCreatingTransaction     Stage = "creating_transaction"
	StageBroadcastingTransaction Stage = "broadcasting_transaction"
	StageWaitingForConfirmation  Stage = "waiting_for_confirmation"
)

// StageFunc receives stage transitions for a single funding flow. Called
// synchronously before the corresponding step; must not block.
type StageFunc func(Stage)

func (f StageFunc) signal(s Stage) {
	if f != nil {
		f(s)
	}
}

// Bridge builds, broadcasts, and confirms asset-lock transactions. It owns
// the per-wallet spend coordinator: two concurrent funding calls against one
// wallet never select overlapping inputs.
type Bridge struct {
	core    ports.CoreClient
	journal Journal
	spend   *spend.Coordinator

	feeEstimate    int64
	confirmTimeout time.Duration
	backoff        retry.BackoffStrategy

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

// WithFeeEstimate sets the fee assumed by the local balance check performed
// before any network call.
func WithFeeEstimate(fee int64) Option {
	return func(b *Bridge) { b.feeEstimate = fee }
}

func WithConfirmationTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.confirmTimeout = d }
}

func WithBackoff(s retry.BackoffStrategy) Option {
	return func(b *Bridge) { b.backoff = s }
}

func New(core ports.CoreClient, journal Journal, opts ...Option) (*Bridge, error) {
	if core == nil {
		return nil, fmt.Errorf("core client is required")
	}
	if journal == nil {
		return nil, fmt.Errorf("asset lock journal is required")
	}

	b := &Bridge{
		core:           core,
		journal:        journal,
		spend:          spend.New(),
		feeEstimate:    DefaultFeeEstimate,
		confirmTimeout: DefaultConfirmationTimeout,
		backoff:        retry.DefaultExponential(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// FeeEstimate is the fee assumed by the pre-broadcast balance check. Callers
// sizing backup funding use it as the default fee buffer.
func (b *Bridge) FeeEstimate() int64 {
	return b.feeEstimate
}

// FundIdentity locks amount on Core for a new identity. Single attempt: a
// transient failure propagates to the caller.
func (b *Bridge) FundIdentity(ctx context.Context, wallet *domain.Wallet, amount int64) (*domain.AssetLock, error) {
	return b.fund(ctx, wallet, amount, domain.TargetNewIdentity, id.IdentityID{}, 1, nil)
}

// FundIdentityStaged is FundIdentityWithRetry with stage notifications, used
// by callers that republish funding lifecycle progress.
func (b *Bridge) FundIdentityStaged(ctx context.Context, wallet *domain.Wallet, amount int64, maxAttempts int, notify StageFunc) (*domain.AssetLock, error) {
	if maxAttempts < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "maxAttempts must be at least 1")
	}
	return b.fund(ctx, wallet, amount, domain.TargetNewIdentity, id.IdentityID{}, maxAttempts, notify)
}

// TopUpIdentity locks amount on Core to top up an existing identity.
func (b *Bridge) TopUpIdentity(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64) (*domain.AssetLock, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "top-up identity is required")
	}
	return b.fund(ctx, wallet, amount, domain.TargetTopUp, identityID, 1, nil)
}

// FundIdentityWithRetry retries the transient failure classes up to
// maxAttempts times with backoff. InsufficientFunds is detected once, before
// any attempt, and never retried.
func (b *Bridge) FundIdentityWithRetry(ctx context.Context, wallet *domain.Wallet, amount int64, maxAttempts int) (*domain.AssetLock, error) {
	if maxAttempts < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "maxAttempts must be at least 1")
	}
	return b.fund(ctx, wallet, amount, domain.TargetNewIdentity, id.IdentityID{}, maxAttempts, nil)
}

// TopUpIdentityWithRetry is the retrying variant of TopUpIdentity.
func (b *Bridge) TopUpIdentityWithRetry(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64, maxAttempts int) (*domain.AssetLock, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "top-up identity is required")
	}
	if maxAttempts < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "maxAttempts must be at least 1")
	}
	return b.fund(ctx, wallet, amount, domain.TargetTopUp, identityID, maxAttempts, nil)
}

// attempt carries the in-doubt state across retries. Once a transaction is
// broadcast, txid stays set: a confirmation timeout re-polls the proof for
// the original transaction instead of constructing a second one spending the
// same logical request, so a retry can never double-spend.
type attempt struct {
	tx          *ports.Transaction
	txid        id.TxID
	broadcastAt time.Time
	proof       *domain.ConfirmationProof
}

func (b *Bridge) fund(ctx context.Context, wallet *domain.Wallet, amount int64, target domain.LockTarget, identityID id.IdentityID, maxAttempts int, notify StageFunc) (*domain.AssetLock, error) {
	if wallet == nil || wallet.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "wallet is required")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	notify.signal(StageValidatingFunds)
	// Commitment-time check, before any network call.
	if wallet.Balance < amount+b.feeEstimate {
		b.countResult(string(dErrors.CodeInsufficientFunds))
		return nil, dErrors.Newf(dErrors.CodeInsufficientFunds,
			"wallet %s holds %d, need %d plus %d fee", wallet.ID, wallet.Balance, amount, b.feeEstimate)
	}

	st := &attempt{}
	var lastErr error
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     b.backoff,
		Retryable:   dErrors.Retryable,
	}
	err := policy.Do(ctx, func(ctx context.Context) error {
		if lastErr != nil {
			class := string(dErrors.CodeOf(lastErr))
			b.metrics.IncrementRetry(class)
			if b.logger != nil {
				b.logger.InfoContext(ctx, "retrying funding attempt",
					"wallet_id", wallet.ID,
					"in_doubt_txid", st.txid,
					"class", class,
				)
			}
		}
		lastErr = b.attemptOnce(ctx, st, wallet.ID, amount, notify)
		return lastErr
	})
	if err != nil {
		b.countResult(string(dErrors.CodeOf(err)))
		b.emit(ctx, audit.Event{
			Action:   string(audit.EventFundingFailed),
			WalletID: wallet.ID,
			TxID:     st.txid,
			Amount:   amount,
			Reason:   err.Error(),
		})
		return nil, err
	}

	lock := &domain.AssetLock{
		ID:         ulid.Make().String(),
		WalletID:   wallet.ID,
		TxID:       st.txid,
		Amount:     amount,
		Fee:        st.tx.Fee,
		Proof:      st.proof,
		Target:     target,
		IdentityID: identityID,
		CreatedAt:  time.Now(),
	}
	if err := b.journal.Append(ctx, lock); err != nil {
		// The lock is confirmed on chain regardless; losing the journal
		// record only degrades recovery, so report and carry on.
		if b.logger != nil {
			b.logger.ErrorContext(ctx, "journal append failed for confirmed lock",
				"lock_id", lock.ID,
				"txid", lock.TxID,
				"error", err,
			)
		}
	}

	b.countResult("success")
	b.metrics.ObserveConfirmation(st.proof.ReceivedAt.Sub(st.broadcastAt))
	b.emit(ctx, audit.Event{
		Action:   string(audit.EventLockConfirmed),
		WalletID: wallet.ID,
		TxID:     lock.TxID,
		LockID:   lock.ID,
		Amount:   amount,
	})
	return lock, nil
}

// attemptOnce performs one funding attempt, reusing st's broadcast
// transaction when one is in doubt.
func (b *Bridge) attemptOnce(ctx context.Context, st *attempt, walletID id.WalletID, amount int64, notify StageFunc) error {
	if st.txid.IsNil() {
		// The spend slot covers construction and broadcast only; holding
		// it through the confirmation wait would stall unrelated work.
		release, err := b.spend.Acquire(ctx, walletID)
		if err != nil {
			return err
		}
		notify.signal(StageCreatingTransaction)
		tx, err := b.core.CreateAssetLockTransaction(ctx, walletID, amount)
		if err != nil {
			release()
			return dErrors.Wrap(err, dErrors.CodeBroadcastFailed, "build lock transaction")
		}
		notify.signal(StageBroadcastingTransaction)
		txid, err := b.core.BroadcastTransaction(ctx, tx)
		release()
		if err != nil {
			// Rejected broadcasts never consumed inputs; a rebuild is safe.
			return dErrors.Wrap(err, dErrors.CodeBroadcastFailed, "broadcast lock transaction")
		}
		st.tx = tx
		st.txid = txid
		st.broadcastAt = time.Now()
	}

	notify.signal(StageWaitingForConfirmation)
	proof, err := b.core.WaitForConfirmationProof(ctx, st.txid, b.confirmTimeout)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation stops the wait; the broadcast transaction
			// remains on chain and st keeps its in-doubt txid.
			return ctx.Err()
		}
		return dErrors.Wrap(err, dErrors.CodeConfirmationTimeout, "confirmation proof not received")
	}
	st.proof = proof
	return nil
}

// Consume marks a confirmed lock as spent on a registration or top-up. The
// journal enforces single use; a second consumer gets ErrAlreadyConsumed.
func (b *Bridge) Consume(ctx context.Context, lockID string, identityID id.IdentityID) error {
	if err := b.journal.MarkConsumed(ctx, lockID, identityID); err != nil {
		return err
	}
	b.metrics.IncrementLocksConsumed()
	b.emit(ctx, audit.Event{
		Action:     string(audit.EventLockConsumed),
		IdentityID: identityID,
		LockID:     lockID,
	})
	return nil
}

// FindLock returns a journaled lock by ID.
func (b *Bridge) FindLock(ctx context.Context, lockID string) (*domain.AssetLock, error) {
	return b.journal.Find(ctx, lockID)
}

// UnconsumedLocks lists confirmed locks awaiting registration. This is the
// recovery surface after a Platform registration failure.
func (b *Bridge) UnconsumedLocks(ctx context.Context) ([]*domain.AssetLock, error) {
	return b.journal.ListUnconsumed(ctx)
}

func (b *Bridge) countResult(result string) {
	b.metrics.IncrementAttempt(result)
}

func (b *Bridge) emit(ctx context.Context, event audit.Event) {
	if b.auditor == nil {
		return
	}
	if err := b.auditor.Emit(ctx, event); err != nil && b.logger != nil {
		b.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
