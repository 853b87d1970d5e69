// Package ports defines the interfaces to the two external ledgers and the
// supporting feeds. Interfaces live here because they are consumed by
// multiple services; implementations are owned by the respective protocol
// clients, which this engine treats as black boxes.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
)

// Transaction is an asset-lock transaction built but not yet broadcast. The
// Core client selects and reserves the wallet inputs it spends.
type Transaction struct {
	WalletID id.WalletID
	Amount   int64
	Fee      int64
	// Inputs are the outpoints this transaction consumes, in "txid:vout"
	// form. Two in-flight transactions from one wallet must never overlap.
	Inputs []string
}

// CoreEventType enumerates the Core client's event stream.
type CoreEventType string

const (
	EventConnectionChanged CoreEventType = "connection_changed"
	EventBlockAdded        CoreEventType = "block_added"
	EventBalanceUpdated    CoreEventType = "balance_updated"
	EventTxReceived        CoreEventType = "tx_received"
	EventTxConfirmed       CoreEventType = "tx_confirmed"
	EventTxDropped         CoreEventType = "tx_dropped"
)

// CoreEvent is one entry of the ordered event stream published by the Core
// client. Fields are populated per Type; unused fields are zero.
type CoreEvent struct {
	Type      CoreEventType
	WalletID  id.WalletID
	TxID      id.TxID
	Balance   int64 // EventBalanceUpdated: new canonical balance
	Height    uint64
	Connected bool
	Timestamp time.Time
}

// CoreClient is the Core-chain wallet client. All methods hit the network
// except Events, which returns the client's ordered event stream.
type CoreClient interface {
	// CreateAssetLockTransaction builds a lock transaction spending inputs
	// of the given wallet. The returned transaction's inputs are reserved
	// until broadcast succeeds or the transaction is abandoned.
	CreateAssetLockTransaction(ctx context.Context, walletID id.WalletID, amount int64) (*Transaction, error)

	// BroadcastTransaction submits the transaction and returns its txid.
	BroadcastTransaction(ctx context.Context, tx *Transaction) (id.TxID, error)

	// WaitForConfirmationProof blocks until the instant-lock proof for txid
	// arrives or the timeout elapses.
	WaitForConfirmationProof(ctx context.Context, txid id.TxID, timeout time.Duration) (*domain.ConfirmationProof, error)

	// Balance returns the wallet's canonical spendable balance.
	Balance(ctx context.Context, walletID id.WalletID) (int64, error)

	// RecentTransactions returns up to limit history entries, newest first.
	RecentTransactions(ctx context.Context, walletID id.WalletID, limit int) ([]domain.TxRecord, error)

	// Events returns the client's ordered event stream. The channel is
	// closed when the client shuts down.
	Events() <-chan CoreEvent
}

// PlatformClient is the Platform identity client. CreateIdentity and
// TopUpIdentity must be idempotent per asset lock: registering twice with
// the same proof must not mint credits twice.
type PlatformClient interface {
	CreateIdentity(ctx context.Context, lock *domain.AssetLock) (*domain.Identity, error)
	TopUpIdentity(ctx context.Context, identityID id.IdentityID, lock *domain.AssetLock) (*domain.Identity, error)

	// TransferCredits moves credits between identities and returns the
	// source identity's new revision.
	TransferCredits(ctx context.Context, from, to id.IdentityID, amount int64) (uint64, error)

	// WithdrawToAddress debits the identity and credits the Core address.
	// The Platform may accept asynchronously, in which case the returned
	// status is pending and the caller must poll WithdrawalStatus.
	WithdrawToAddress(ctx context.Context, identityID id.IdentityID, address id.CoreAddress, amount int64) (domain.OperationStatus, error)

	// WithdrawalStatus reports the current state of a pending withdrawal.
	WithdrawalStatus(ctx context.Context, identityID id.IdentityID, address id.CoreAddress) (domain.OperationStatus, error)

	// IdentityBalance returns the canonical credit balance and revision.
	IdentityBalance(ctx context.Context, identityID id.IdentityID) (int64, uint64, error)
}

// PriceFeed supplies the fiat quote shown alongside the unified balance.
type PriceFeed interface {
	Snapshot(ctx context.Context) (domain.PriceSnapshot, error)
}
