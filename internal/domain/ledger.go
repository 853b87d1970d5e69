// Package domain holds the shared model structs for the two ledgers the
// bridge spans: Core wallets holding spendable UTXO value, Platform
// identities holding credit, and the asset locks that move value between
// them. Cached copies of these live in the state manager; canonical values
// are owned by the external clients.
package domain

import (
	"time"

	id "creditbridge/pkg/domain"
)

// Wallet is the bridge's cached view of a Core wallet. The canonical record
// is owned by the Core client; this copy is mutated only by confirmed
// Core-side events, except for the provisional deduction applied immediately
// after a funding operation pending reconciliation.
type Wallet struct {
	ID      id.WalletID
	Balance int64 // smallest Core unit
	Address id.CoreAddress
}

// Identity is the bridge's cached view of a Platform identity. Revision
// increases monotonically on each Platform-confirmed mutation.
type Identity struct {
	ID       id.IdentityID
	Balance  int64 // credits
	Revision uint64
}

// LockTarget says what a confirmed asset lock funds.
type LockTarget string

const (
	TargetNewIdentity LockTarget = "new_identity"
	TargetTopUp       LockTarget = "top_up"
)

// ConfirmationProof is the fast pre-block proof that a broadcast transaction
// will not be reversed.
type ConfirmationProof struct {
	TxID       id.TxID
	Signature  []byte
	ReceivedAt time.Time
}

// AssetLock records one value-locking transaction on Core. A confirmed lock
// is single-use: it funds exactly one identity creation or one top-up.
// Consumed flips exactly once, when the Platform accepts the registration.
type AssetLock struct {
	ID         string // ULID, sortable journal identifier
	WalletID   id.WalletID
	TxID       id.TxID
	Amount     int64
	Fee        int64
	Proof      *ConfirmationProof
	Target     LockTarget
	IdentityID id.IdentityID // top-up target, or the identity minted from this lock
	Consumed   bool
	CreatedAt  time.Time
}

// Confirmed reports whether the lock transaction has its instant-lock proof.
func (l *AssetLock) Confirmed() bool {
	return l != nil && l.Proof != nil
}

// OperationStatus is the outcome state shared by withdraw, transfer, and
// sync results.
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusConfirmed OperationStatus = "confirmed"
	StatusFailed    OperationStatus = "failed"
)

// TxRecord is one entry of a wallet's transaction history as reported by the
// Core client. View data only.
type TxRecord struct {
	TxID      id.TxID
	Amount    int64
	Confirmed bool
	Timestamp time.Time
}
