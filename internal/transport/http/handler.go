// Package httptransport is the operational HTTP surface of the bridge
// daemon: balance snapshots, refresh triggers, funded-identity creation, and
// the recovery listing for locks whose registration failed.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"creditbridge/internal/crosslayer/models"
	"creditbridge/internal/domain"
	"creditbridge/internal/state"
	id "creditbridge/pkg/domain"
	dErrors "creditbridge/pkg/domain-errors"
)

// StateManager is the published-state surface the handlers read and drive.
type StateManager interface {
	RegisterWallet(ctx context.Context, wallet domain.Wallet) error
	Wallet(ctx context.Context, walletID id.WalletID) (domain.Wallet, error)
	UnifiedBalance(ctx context.Context) (domain.UnifiedBalance, error)
	Snapshot(ctx context.Context) (*state.Snapshot, error)
	CreateFundedIdentity(ctx context.Context, walletID id.WalletID, amount int64) (*domain.Identity, error)
	TransferCredits(ctx context.Context, fromID, toID id.IdentityID, amount int64, backup *models.BackupFundingConfig) (*models.TransferResult, error)
	WithdrawCredits(ctx context.Context, identityID id.IdentityID, address id.CoreAddress, amount int64) (*models.WithdrawResult, error)
	RefreshAll(ctx context.Context) *state.RefreshReport
}

// CrossLayer is the cross-layer surface the handlers expose directly. Only
// recovery lives here; transfers and withdrawals dispatch through the state
// manager so the published view tracks their effects.
type CrossLayer interface {
	RecoverRegistration(ctx context.Context, lockID string) (*domain.Identity, error)
}

// LockJournal is the recovery listing over the asset-lock journal.
type LockJournal interface {
	UnconsumedLocks(ctx context.Context) ([]*domain.AssetLock, error)
}

// Handler is the thin HTTP layer. It delegates to the state manager and the
// cross-layer bridge without embedding business logic.
type Handler struct {
	logger  *slog.Logger
	manager StateManager
	bridge  CrossLayer
	locks   LockJournal
}

func NewHandler(manager StateManager, bridge CrossLayer, locks LockJournal, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		manager: manager,
		bridge:  bridge,
		locks:   locks,
	}
}

func (h *Handler) handleUnifiedBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.manager.UnifiedBalance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponseFrom(snap))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report := h.manager.RefreshAll(r.Context())
	failures := make(map[string]string, len(report.Failures))
	for task, err := range report.Failures {
		failures[task] = err.Error()
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Completed: report.Completed,
		Failures:  failures,
	})
}

type registerWalletRequest struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
	Address  string `json:"address"`
}

func (h *Handler) handleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	var req registerWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	walletID, err := id.ParseWalletID(req.WalletID)
	if err != nil {
		writeError(w, err)
		return
	}
	wallet := domain.Wallet{ID: walletID, Balance: req.Balance, Address: id.CoreAddress(req.Address)}
	if err := h.manager.RegisterWallet(r.Context(), wallet); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, walletResponseFrom(wallet))
}

func (h *Handler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	walletID, err := id.ParseWalletID(chi.URLParam(r, "walletID"))
	if err != nil {
		writeError(w, err)
		return
	}
	wallet, err := h.manager.Wallet(r.Context(), walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponseFrom(wallet))
}

type createIdentityRequest struct {
	WalletID string `json:"wallet_id"`
	Amount   int64  `json:"amount"`
}

func (h *Handler) handleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req createIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	walletID, err := id.ParseWalletID(req.WalletID)
	if err != nil {
		writeError(w, err)
		return
	}
	identity, err := h.manager.CreateFundedIdentity(r.Context(), walletID, req.Amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "funded identity creation failed",
			"wallet_id", walletID,
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, identityResponseFrom(identity))
}

func (h *Handler) handleUnconsumedLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := h.locks.UnconsumedLocks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]lockResponse, 0, len(locks))
	for _, lock := range locks {
		out = append(out, lockResponseFrom(lock))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRecoverLock(w http.ResponseWriter, r *http.Request) {
	lockID := chi.URLParam(r, "lockID")
	identity, err := h.bridge.RecoverRegistration(r.Context(), lockID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "registration recovered", "lock_id", lockID, "identity_id", identity.ID)
	writeJSON(w, http.StatusOK, identityResponseFrom(identity))
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	fromID, err := id.ParseIdentityID(req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	toID, err := id.ParseIdentityID(req.To)
	if err != nil {
		writeError(w, err)
		return
	}

	// The ops surface never configures backup funding; a shortfall fails.
	result, err := h.manager.TransferCredits(r.Context(), fromID, toID, req.Amount, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{
		From:         result.From.String(),
		To:           result.To.String(),
		Amount:       result.Amount,
		Status:       string(result.Status),
		FromRevision: result.FromRevision,
	})
}

type transferResponse struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	FromRevision uint64 `json:"from_revision"`
}

type withdrawRequest struct {
	IdentityID string `json:"identity_id"`
	Address    string `json:"address"`
	Amount     int64  `json:"amount"`
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	identityID, err := id.ParseIdentityID(req.IdentityID)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.manager.WithdrawCredits(r.Context(), identityID, id.CoreAddress(req.Address), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{
		IdentityID: result.IdentityID.String(),
		Address:    result.Address.String(),
		Amount:     result.Amount,
		Status:     string(result.Status),
	})
}

type withdrawResponse struct {
	IdentityID string `json:"identity_id"`
	Address    string `json:"address"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type refreshResponse struct {
	Completed int               `json:"completed"`
	Failures  map[string]string `json:"failures,omitempty"`
}

type walletResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
	Address  string `json:"address,omitempty"`
}

func walletResponseFrom(w domain.Wallet) walletResponse {
	return walletResponse{
		WalletID: w.ID.String(),
		Balance:  w.Balance,
		Address:  w.Address.String(),
	}
}

type identityResponse struct {
	IdentityID string `json:"identity_id"`
	Balance    int64  `json:"balance"`
	Revision   uint64 `json:"revision"`
}

func identityResponseFrom(i *domain.Identity) identityResponse {
	return identityResponse{
		IdentityID: i.ID.String(),
		Balance:    i.Balance,
		Revision:   i.Revision,
	}
}

type lockResponse struct {
	LockID    string    `json:"lock_id"`
	WalletID  string    `json:"wallet_id"`
	TxID      string    `json:"txid"`
	Amount    int64     `json:"amount"`
	Fee       int64     `json:"fee"`
	Target    string    `json:"target"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

func lockResponseFrom(l *domain.AssetLock) lockResponse {
	return lockResponse{
		LockID:    l.ID,
		WalletID:  l.WalletID.String(),
		TxID:      l.TxID.String(),
		Amount:    l.Amount,
		Fee:       l.Fee,
		Target:    string(l.Target),
		Confirmed: l.Confirmed(),
		CreatedAt: l.CreatedAt,
	}
}

type snapshotResponse struct {
	Wallets    []walletResponse   `json:"wallets"`
	Identities []identityResponse `json:"identities"`
	Connected  bool               `json:"connected"`
	Height     uint64             `json:"height"`
	LastSyncAt time.Time          `json:"last_sync_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func snapshotResponseFrom(snap *state.Snapshot) snapshotResponse {
	out := snapshotResponse{
		Connected:  snap.Connected,
		Height:     snap.Height,
		LastSyncAt: snap.LastSyncAt,
		UpdatedAt:  snap.UpdatedAt,
	}
	for _, w := range snap.Wallets {
		out.Wallets = append(out.Wallets, walletResponseFrom(w))
	}
	for idKey := range snap.Identities {
		identity := snap.Identities[idKey]
		out.Identities = append(out.Identities, identityResponseFrom(&identity))
	}
	return out
}
