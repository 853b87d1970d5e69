package state

import (
	"sort"
	"time"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
)

// Snapshot is the published view of both ledgers. The manager's run loop is
// its single writer; everything handed out is a deep copy.
type Snapshot struct {
	Wallets       map[id.WalletID]domain.Wallet
	Identities    map[id.IdentityID]domain.Identity
	StaleWallets  map[id.WalletID]bool
	TokenBalances map[string]int64
	Price         domain.PriceSnapshot
	History       []domain.TxRecord
	Connected     bool
	Height        uint64
	LastSyncAt    time.Time
	UpdatedAt     time.Time
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Wallets:       make(map[id.WalletID]domain.Wallet),
		Identities:    make(map[id.IdentityID]domain.Identity),
		StaleWallets:  make(map[id.WalletID]bool),
		TokenBalances: make(map[string]int64),
	}
}

// Unified derives the aggregate balance view. Never authoritative: a stale
// wallet or a dropped Core connection marks the whole aggregate stale.
func (s *Snapshot) Unified() domain.UnifiedBalance {
	var core, credit int64
	for _, w := range s.Wallets {
		core += w.Balance
	}
	for _, i := range s.Identities {
		credit += i.Balance
	}
	stale := !s.Connected
	for _, flagged := range s.StaleWallets {
		if flagged {
			stale = true
		}
	}
	tokens := make(map[string]int64, len(s.TokenBalances))
	for k, v := range s.TokenBalances {
		tokens[k] = v
	}
	return domain.UnifiedBalance{
		CoreBalance:   core,
		CreditBalance: credit,
		TokenBalances: tokens,
		Price:         s.Price,
		Stale:         stale,
		UpdatedAt:     s.UpdatedAt,
	}
}

// Clone returns a deep copy safe to hand outside the run loop.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Wallets:       make(map[id.WalletID]domain.Wallet, len(s.Wallets)),
		Identities:    make(map[id.IdentityID]domain.Identity, len(s.Identities)),
		StaleWallets:  make(map[id.WalletID]bool, len(s.StaleWallets)),
		TokenBalances: make(map[string]int64, len(s.TokenBalances)),
		Price:         s.Price,
		History:       append([]domain.TxRecord(nil), s.History...),
		Connected:     s.Connected,
		Height:        s.Height,
		LastSyncAt:    s.LastSyncAt,
		UpdatedAt:     s.UpdatedAt,
	}
	for k, v := range s.Wallets {
		out.Wallets[k] = v
	}
	for k, v := range s.Identities {
		out.Identities[k] = v
	}
	for k, v := range s.StaleWallets {
		out.StaleWallets[k] = v
	}
	for k, v := range s.TokenBalances {
		out.TokenBalances[k] = v
	}
	return out
}

func (s *Snapshot) markWalletStale(walletID id.WalletID) {
	if _, ok := s.Wallets[walletID]; ok {
		s.StaleWallets[walletID] = true
	}
}

// setHistory replaces the history with the newest-first records, capped.
func (s *Snapshot) setHistory(records []domain.TxRecord, limit int) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	s.History = records
}
