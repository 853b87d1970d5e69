// Package models holds the request/result types of the cross-layer bridge.
package models

import (
	"time"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
)

// WithdrawResult reports a credits-to-Core withdrawal. Status pending means
// the Platform accepted the request asynchronously; the cached identity
// balance may be decremented only once the status is confirmed.
type WithdrawResult struct {
	IdentityID id.IdentityID
	Address    id.CoreAddress
	Amount     int64
	Status     domain.OperationStatus
}

// BackupFundingConfig describes the wallet used to cover a transfer
// shortfall. FeeBuffer pads the funded amount; zero means the bridge's fee
// estimate is used.
type BackupFundingConfig struct {
	SourceWallet *domain.Wallet
	FeeBuffer    int64
}

// TransferResult reports an identity-to-identity credit transfer.
// BackupLock is set when automatic backup funding ran first; if the transfer
// then failed, the funded amount remains in the source identity and the
// result says so via Status failed plus the populated lock.
type TransferResult struct {
	From         id.IdentityID
	To           id.IdentityID
	Amount       int64
	Status       domain.OperationStatus
	FromRevision uint64
	BackupLock   *domain.AssetLock
}

// BatchFundingOperation is one requested funding: a top-up when IdentityID
// is set, a new-identity request when it is nil.
type BatchFundingOperation struct {
	IdentityID id.IdentityID
	Amount     int64
}

// FundingResult is the outcome of one batch operation. Exactly one result
// exists per operation, in input order; failed operations carry Err and
// contribute zero to any caller-side aggregation.
type FundingResult struct {
	Op       BatchFundingOperation
	Lock     *domain.AssetLock
	Identity *domain.Identity
	Err      error
}

// Succeeded reports whether the operation confirmed and registered.
func (r FundingResult) Succeeded() bool {
	return r.Err == nil && r.Lock != nil
}

// TotalFunded sums the amounts of successful results only.
func TotalFunded(results []FundingResult) int64 {
	var total int64
	for _, r := range results {
		if r.Succeeded() {
			total += r.Lock.Amount
		}
	}
	return total
}

// IdentityBalance is one identity's canonical balance snapshot.
type IdentityBalance struct {
	Balance  int64
	Revision uint64
}

// BalanceSyncResult is a read-only snapshot of canonical balances. It never
// mutates cached state itself; applying corrections is the caller's job.
type BalanceSyncResult struct {
	WalletID      id.WalletID
	WalletBalance int64
	WalletErr     error
	Identities    map[id.IdentityID]IdentityBalance
	IdentityErrs  map[id.IdentityID]error
	CheckedAt     time.Time
}

// SyncErrors counts the per-source failures in the snapshot.
func (r *BalanceSyncResult) SyncErrors() int {
	n := len(r.IdentityErrs)
	if r.WalletErr != nil {
		n++
	}
	return n
}
