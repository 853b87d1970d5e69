package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is a point-in-time fiat quote for the Core unit. View data
// only; never feeds back into ledger arithmetic.
type PriceSnapshot struct {
	Currency string
	Price    decimal.Decimal
	AsOf     time.Time
}

// UnifiedBalance aggregates both ledgers into the single published view.
// Purely derived: recomputed from Wallet/Identity/token data, never
// independently authoritative.
type UnifiedBalance struct {
	CoreBalance   int64
	CreditBalance int64
	TokenBalances map[string]int64
	Price         PriceSnapshot
	// Stale marks the snapshot as pending reconciliation: some operation
	// mutated a canonical balance in a way the cache could not apply
	// deterministically.
	Stale     bool
	UpdatedAt time.Time
}

// Clone returns a deep copy so published snapshots never alias the
// manager-owned maps.
func (b UnifiedBalance) Clone() UnifiedBalance {
	out := b
	if b.TokenBalances != nil {
		out.TokenBalances = make(map[string]int64, len(b.TokenBalances))
		for k, v := range b.TokenBalances {
			out.TokenBalances[k] = v
		}
	}
	return out
}
