// Package sim provides in-process implementations of the Core and Platform
// client ports with deterministic behavior and configurable latency. They
// honor the same contracts as the real protocol clients (ordered events,
// instant-lock proofs, idempotent registration per asset lock) and back the
// daemon in development mode.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"creditbridge/internal/domain"
	"creditbridge/internal/ports"
	id "creditbridge/pkg/domain"
	"creditbridge/pkg/platform/sentinel"
)

const simFee = 1_000

// Core simulates the Core-chain wallet client.
type Core struct {
	mu      sync.Mutex
	wallets map[id.WalletID]*simWallet
	txs     map[id.TxID]*simTx
	events  chan ports.CoreEvent

	Latency time.Duration
}

type simWallet struct {
	balance int64
	address id.CoreAddress
	history []domain.TxRecord
	nextIn  int
}

type simTx struct {
	walletID id.WalletID
	amount   int64
	fee      int64
	txid     id.TxID
}

func NewCore() *Core {
	c := &Core{
		wallets: make(map[id.WalletID]*simWallet),
		txs:     make(map[id.TxID]*simTx),
		events:  make(chan ports.CoreEvent, 128),
	}
	c.emit(ports.CoreEvent{Type: ports.EventConnectionChanged, Connected: true, Timestamp: time.Now()})
	return c
}

// Seed registers a wallet with a starting balance.
func (c *Core) Seed(walletID id.WalletID, balance int64, address id.CoreAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallets[walletID] = &simWallet{balance: balance, address: address}
}

func (c *Core) CreateAssetLockTransaction(_ context.Context, walletID id.WalletID, amount int64) (*ports.Transaction, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.wallets[walletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if w.balance < amount+simFee {
		return nil, fmt.Errorf("wallet %s cannot fund %d plus fee", walletID, amount)
	}
	w.nextIn++
	return &ports.Transaction{
		WalletID: walletID,
		Amount:   amount,
		Fee:      simFee,
		Inputs:   []string{fmt.Sprintf("sim:%d", w.nextIn)},
	}, nil
}

func (c *Core) BroadcastTransaction(_ context.Context, tx *ports.Transaction) (id.TxID, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.wallets[tx.WalletID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	txid := id.TxID(uuid.NewString())
	w.balance -= tx.Amount + tx.Fee
	w.history = append([]domain.TxRecord{{
		TxID:      txid,
		Amount:    -(tx.Amount + tx.Fee),
		Timestamp: time.Now(),
	}}, w.history...)
	c.txs[txid] = &simTx{walletID: tx.WalletID, amount: tx.Amount, fee: tx.Fee, txid: txid}

	c.emit(ports.CoreEvent{Type: ports.EventTxReceived, WalletID: tx.WalletID, TxID: txid, Timestamp: time.Now()})
	c.emit(ports.CoreEvent{Type: ports.EventBalanceUpdated, WalletID: tx.WalletID, Balance: w.balance, Timestamp: time.Now()})
	return txid, nil
}

func (c *Core) WaitForConfirmationProof(ctx context.Context, txid id.TxID, timeout time.Duration) (*domain.ConfirmationProof, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.Latency):
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.txs[txid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	_ = timeout // the simulator confirms instantly

	if w, ok := c.wallets[tx.walletID]; ok {
		for i := range w.history {
			if w.history[i].TxID == txid {
				w.history[i].Confirmed = true
			}
		}
	}
	c.emit(ports.CoreEvent{Type: ports.EventTxConfirmed, WalletID: tx.walletID, TxID: txid, Timestamp: time.Now()})
	return &domain.ConfirmationProof{
		TxID:       txid,
		Signature:  []byte(uuid.NewString()),
		ReceivedAt: time.Now(),
	}, nil
}

func (c *Core) Balance(_ context.Context, walletID id.WalletID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.wallets[walletID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return w.balance, nil
}

func (c *Core) RecentTransactions(_ context.Context, walletID id.WalletID, limit int) ([]domain.TxRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.wallets[walletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	records := append([]domain.TxRecord(nil), w.history...)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (c *Core) Events() <-chan ports.CoreEvent {
	return c.events
}

// emit drops events when the buffer is full rather than blocking a caller
// holding the lock.
func (c *Core) emit(ev ports.CoreEvent) {
	select {
	case c.events <- ev:
	default:
	}
}

// Platform simulates the Platform identity client. Registration is
// idempotent per asset lock.
type Platform struct {
	mu         sync.Mutex
	identities map[id.IdentityID]*domain.Identity
	byLock     map[string]id.IdentityID

	Latency time.Duration
}

func NewPlatform() *Platform {
	return &Platform{
		identities: make(map[id.IdentityID]*domain.Identity),
		byLock:     make(map[string]id.IdentityID),
	}
}

func (p *Platform) CreateIdentity(_ context.Context, lock *domain.AssetLock) (*domain.Identity, error) {
	time.Sleep(p.Latency)
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byLock[lock.ID]; ok {
		identity := *p.identities[existing]
		return &identity, nil
	}
	identity := &domain.Identity{ID: id.NewIdentityID(), Balance: lock.Amount, Revision: 1}
	p.identities[identity.ID] = identity
	p.byLock[lock.ID] = identity.ID
	out := *identity
	return &out, nil
}

func (p *Platform) TopUpIdentity(_ context.Context, identityID id.IdentityID, lock *domain.AssetLock) (*domain.Identity, error) {
	time.Sleep(p.Latency)
	p.mu.Lock()
	defer p.mu.Unlock()

	identity, ok := p.identities[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if _, seen := p.byLock[lock.ID]; !seen {
		identity.Balance += lock.Amount
		identity.Revision++
		p.byLock[lock.ID] = identityID
	}
	out := *identity
	return &out, nil
}

func (p *Platform) TransferCredits(_ context.Context, from, to id.IdentityID, amount int64) (uint64, error) {
	time.Sleep(p.Latency)
	p.mu.Lock()
	defer p.mu.Unlock()

	src, ok := p.identities[from]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	dst, ok := p.identities[to]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if src.Balance < amount {
		return 0, fmt.Errorf("identity %s holds %d credits, need %d", from, src.Balance, amount)
	}
	src.Balance -= amount
	src.Revision++
	dst.Balance += amount
	dst.Revision++
	return src.Revision, nil
}

func (p *Platform) WithdrawToAddress(_ context.Context, identityID id.IdentityID, _ id.CoreAddress, amount int64) (domain.OperationStatus, error) {
	time.Sleep(p.Latency)
	p.mu.Lock()
	defer p.mu.Unlock()

	identity, ok := p.identities[identityID]
	if !ok {
		return domain.StatusFailed, sentinel.ErrNotFound
	}
	if identity.Balance < amount {
		return domain.StatusFailed, fmt.Errorf("identity %s holds %d credits, need %d", identityID, identity.Balance, amount)
	}
	identity.Balance -= amount
	identity.Revision++
	return domain.StatusConfirmed, nil
}

func (p *Platform) WithdrawalStatus(_ context.Context, identityID id.IdentityID, _ id.CoreAddress) (domain.OperationStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.identities[identityID]; !ok {
		return domain.StatusFailed, sentinel.ErrNotFound
	}
	// The simulator settles withdrawals synchronously.
	return domain.StatusConfirmed, nil
}

func (p *Platform) IdentityBalance(_ context.Context, identityID id.IdentityID) (int64, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	identity, ok := p.identities[identityID]
	if !ok {
		return 0, 0, sentinel.ErrNotFound
	}
	return identity.Balance, identity.Revision, nil
}
