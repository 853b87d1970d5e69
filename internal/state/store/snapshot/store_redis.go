package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"creditbridge/internal/domain"
	"creditbridge/internal/state"
	id "creditbridge/pkg/domain"
	"creditbridge/pkg/platform/sentinel"
)

const defaultKey = "creditbridge:state:snapshot"

// RedisStore persists the last published snapshot so a restart resumes from
// known (if stale) state instead of an empty cache.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithKey(key string) RedisOption {
	return func(s *RedisStore) { s.key = key }
}

// WithTTL expires stored snapshots; zero keeps them indefinitely.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	s := &RedisStore{client: client, key: defaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *state.Snapshot) error {
	payload, err := json.Marshal(toStored(snap))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*state.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var stored storedSnapshot
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return stored.toSnapshot()
}

// storedSnapshot is the wire form. Map keys become strings because the typed
// ID map keys do not round-trip through encoding/json.
type storedSnapshot struct {
	Wallets       []storedWallet   `json:"wallets"`
	Identities    []storedIdentity `json:"identities"`
	TokenBalances map[string]int64 `json:"token_balances,omitempty"`
	PriceCurrency string           `json:"price_currency,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	PriceAsOf     time.Time        `json:"price_as_of"`
	History       []storedTx       `json:"history,omitempty"`
	Connected     bool             `json:"connected"`
	Height        uint64           `json:"height"`
	LastSyncAt    time.Time        `json:"last_sync_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type storedWallet struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
	Address string `json:"address"`
	Stale   bool   `json:"stale"`
}

type storedIdentity struct {
	ID       string `json:"id"`
	Balance  int64  `json:"balance"`
	Revision uint64 `json:"revision"`
}

type storedTx struct {
	TxID      string    `json:"txid"`
	Amount    int64     `json:"amount"`
	Confirmed bool      `json:"confirmed"`
	Timestamp time.Time `json:"timestamp"`
}

func toStored(snap *state.Snapshot) storedSnapshot {
	out := storedSnapshot{
		TokenBalances: snap.TokenBalances,
		PriceCurrency: snap.Price.Currency,
		Price:         snap.Price.Price,
		PriceAsOf:     snap.Price.AsOf,
		Connected:     snap.Connected,
		Height:        snap.Height,
		LastSyncAt:    snap.LastSyncAt,
		UpdatedAt:     snap.UpdatedAt,
	}
	for walletID, w := range snap.Wallets {
		out.Wallets = append(out.Wallets, storedWallet{
			ID:      walletID.String(),
			Balance: w.Balance,
			Address: w.Address.String(),
			Stale:   snap.StaleWallets[walletID],
		})
	}
	for identityID, i := range snap.Identities {
		out.Identities = append(out.Identities, storedIdentity{
			ID:       identityID.String(),
			Balance:  i.Balance,
			Revision: i.Revision,
		})
	}
	for _, rec := range snap.History {
		out.History = append(out.History, storedTx{
			TxID:      rec.TxID.String(),
			Amount:    rec.Amount,
			Confirmed: rec.Confirmed,
			Timestamp: rec.Timestamp,
		})
	}
	return out
}

func (s storedSnapshot) toSnapshot() (*state.Snapshot, error) {
	snap := &state.Snapshot{
		Wallets:       make(map[id.WalletID]domain.Wallet, len(s.Wallets)),
		Identities:    make(map[id.IdentityID]domain.Identity, len(s.Identities)),
		StaleWallets:  make(map[id.WalletID]bool),
		TokenBalances: s.TokenBalances,
		Price: domain.PriceSnapshot{
			Currency: s.PriceCurrency,
			Price:    s.Price,
			AsOf:     s.PriceAsOf,
		},
		Connected:  s.Connected,
		Height:     s.Height,
		LastSyncAt: s.LastSyncAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if snap.TokenBalances == nil {
		snap.TokenBalances = make(map[string]int64)
	}
	for _, w := range s.Wallets {
		walletID, err := id.ParseWalletID(w.ID)
		if err != nil {
			return nil, fmt.Errorf("stored wallet: %w", err)
		}
		snap.Wallets[walletID] = domain.Wallet{
			ID:      walletID,
			Balance: w.Balance,
			Address: id.CoreAddress(w.Address),
		}
		if w.Stale {
			snap.StaleWallets[walletID] = true
		}
	}
	for _, i := range s.Identities {
		identityID, err := id.ParseIdentityID(i.ID)
		if err != nil {
			return nil, fmt.Errorf("stored identity: %w", err)
		}
		snap.Identities[identityID] = domain.Identity{
			ID:       identityID,
			Balance:  i.Balance,
			Revision: i.Revision,
		}
	}
	for _, rec := range s.History {
		snap.History = append(snap.History, domain.TxRecord{
			TxID:      id.TxID(rec.TxID),
			Amount:    rec.Amount,
			Confirmed: rec.Confirmed,
			Timestamp: rec.Timestamp,
		})
	}
	return snap, nil
}
