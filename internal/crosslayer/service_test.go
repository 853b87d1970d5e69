package crosslayer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"creditbridge/internal/crosslayer/models"
	"creditbridge/internal/domain"
	"creditbridge/internal/ports/mocks"
	id "creditbridge/pkg/domain"
	dErrors "creditbridge/pkg/domain-errors"
	"creditbridge/pkg/retry"
)

// fakeFunder implements Funder with function fields so each test wires only
// what it exercises.
type fakeFunder struct {
	fundFn    func(ctx context.Context, wallet *domain.Wallet, amount int64) (*domain.AssetLock, error)
	topUpFn   func(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64) (*domain.AssetLock, error)
	consumeFn func(ctx context.Context, lockID string, identityID id.IdentityID) error
	findFn    func(ctx context.Context, lockID string) (*domain.AssetLock, error)
	fee       int64

	consumed        atomic.Int64
	topUpCalls      atomic.Int64
	lastTopUpAmount atomic.Int64
}

func (f *fakeFunder) FundIdentity(ctx context.Context, wallet *domain.Wallet, amount int64) (*domain.AssetLock, error) {
	return f.fundFn(ctx, wallet, amount)
}

func (f *fakeFunder) TopUpIdentity(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64) (*domain.AssetLock, error) {
	f.topUpCalls.Add(1)
	f.lastTopUpAmount.Store(amount)
	return f.topUpFn(ctx, wallet, identityID, amount)
}

func (f *fakeFunder) FundIdentityWithRetry(ctx context.Context, wallet *domain.Wallet, amount int64, _ int) (*domain.AssetLock, error) {
	return f.FundIdentity(ctx, wallet, amount)
}

func (f *fakeFunder) TopUpIdentityWithRetry(ctx context.Context, wallet *domain.Wallet, identityID id.IdentityID, amount int64, _ int) (*domain.AssetLock, error) {
	return f.TopUpIdentity(ctx, wallet, identityID, amount)
}

func (f *fakeFunder) Consume(ctx context.Context, lockID string, identityID id.IdentityID) error {
	f.consumed.Add(1)
	if f.consumeFn != nil {
		return f.consumeFn(ctx, lockID, identityID)
	}
	return nil
}

func (f *fakeFunder) FindLock(ctx context.Context, lockID string) (*domain.AssetLock, error) {
	return f.findFn(ctx, lockID)
}

func (f *fakeFunder) UnconsumedLocks(context.Context) ([]*domain.AssetLock, error) {
	return nil, nil
}

func (f *fakeFunder) FeeEstimate() int64 {
	if f.fee > 0 {
		return f.fee
	}
	return 1_000
}

func confirmedLock(walletID id.WalletID, amount int64) *domain.AssetLock {
	txid := id.TxID("beef")
	return &domain.AssetLock{
		ID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		WalletID: walletID,
		TxID:     txid,
		Amount:   amount,
		Fee:      1_000,
		Proof:    &domain.ConfirmationProof{TxID: txid, Signature: []byte{0xab}},
		Target:   domain.TargetTopUp,
	}
}

func newTestBridge(t *testing.T, funder Funder, ctrl *gomock.Controller) (*Bridge, *mocks.MockPlatformClient, *mocks.MockCoreClient) {
	t.Helper()
	platform := mocks.NewMockPlatformClient(ctrl)
	core := mocks.NewMockCoreClient(ctrl)
	b, err := New(funder, platform, core, WithPollBackoff(retry.Constant(0)))
	require.NoError(t, err)
	return b, platform, core
}

func testIdentity(balance int64) *domain.Identity {
	return &domain.Identity{ID: id.NewIdentityID(), Balance: balance, Revision: 1}
}

func TestWithdrawCreditsToCore_Confirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, platform, _ := newTestBridge(t, &fakeFunder{}, ctrl)

	identity := testIdentity(5_000)
	address := id.CoreAddress("yWithdrawAddr")

	platform.EXPECT().
		WithdrawToAddress(gomock.Any(), identity.ID, address, int64(2_000)).
		Return(domain.StatusConfirmed, nil)

	result, err := b.WithdrawCreditsToCore(context.Background(), identity, address, 2_000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, result.Status)
	assert.Equal(t, int64(2_000), result.Amount)
}

func TestWithdrawCreditsToCore_InsufficientCredits(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, _, _ := newTestBridge(t, &fakeFunder{}, ctrl)

	identity := testIdentity(1_000)

	_, err := b.WithdrawCreditsToCore(context.Background(), identity, id.CoreAddress("yAddr"), 2_000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestAwaitWithdrawal_PollsUntilConfirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, platform, _ := newTestBridge(t, &fakeFunder{}, ctrl)

	identityID := id.NewIdentityID()
	address := id.CoreAddress("yAddr")

	gomock.InOrder(
		platform.EXPECT().WithdrawalStatus(gomock.Any(), identityID, address).Return(domain.StatusPending, nil),
		platform.EXPECT().WithdrawalStatus(gomock.Any(), identityID, address).Return(domain.StatusPending, nil),
		platform.EXPECT().WithdrawalStatus(gomock.Any(), identityID, address).Return(domain.StatusConfirmed, nil),
	)

	status, err := b.AwaitWithdrawal(context.Background(), identityID, address)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, status)
}

func TestAwaitWithdrawal_CancelStopsPolling(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, platform, _ := newTestBridge(t, &fakeFunder{}, ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	identityID := id.NewIdentityID()
	address := id.CoreAddress("yAddr")

	platform.EXPECT().
		WithdrawalStatus(gomock.Any(), identityID, address).
		DoAndReturn(func(context.Context, id.IdentityID, id.CoreAddress) (domain.OperationStatus, error) {
			cancel()
			return domain.StatusPending, nil
		})

	_, err := b.AwaitWithdrawal(ctx, identityID, address)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTransfer_SufficientBalanceSkipsFunding(t *testing.T) {
	ctrl := gomock.NewController(t)
	funder := &fakeFunder{}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	from := testIdentity(10_000)
	to := testIdentity(0)

	platform.EXPECT().
		TransferCredits(gomock.Any(), from.ID, to.ID, int64(4_000)).
		Return(uint64(2), nil)

	result, err := b.TransferBetweenIdentities(context.Background(), from, to, 4_000, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, result.Status)
	assert.Equal(t, uint64(2), result.FromRevision)
	assert.Nil(t, result.BackupLock)
	assert.Zero(t, funder.topUpCalls.Load())
}

func TestTransfer_BackupFundingCoversShortfall(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 100_000}

	funder := &fakeFunder{
		topUpFn: func(_ context.Context, _ *domain.Wallet, _ id.IdentityID, amount int64) (*domain.AssetLock, error) {
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	from := testIdentity(3_000)
	to := testIdentity(0)

	// shortfall = amount + feeBuffer - balance = 10_000 + 500 - 3_000
	platform.EXPECT().
		TopUpIdentity(gomock.Any(), from.ID, gomock.Any()).
		Return(&domain.Identity{ID: from.ID, Balance: 10_500, Revision: 2}, nil)
	platform.EXPECT().
		TransferCredits(gomock.Any(), from.ID, to.ID, int64(10_000)).
		Return(uint64(3), nil)

	backup := &models.BackupFundingConfig{SourceWallet: wallet, FeeBuffer: 500}
	result, err := b.TransferBetweenIdentities(context.Background(), from, to, 10_000, backup)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, result.Status)
	assert.Equal(t, int64(7_500), funder.lastTopUpAmount.Load())
	require.NotNil(t, result.BackupLock)
	assert.Equal(t, int64(1), funder.consumed.Load())
}

func TestTransfer_NoBackupConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, _, _ := newTestBridge(t, &fakeFunder{}, ctrl)

	from := testIdentity(100)
	to := testIdentity(0)

	_, err := b.TransferBetweenIdentities(context.Background(), from, to, 10_000, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestTransfer_FundingFailureMovesNoCredits(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 100}

	funder := &fakeFunder{
		topUpFn: func(context.Context, *domain.Wallet, id.IdentityID, int64) (*domain.AssetLock, error) {
			return nil, dErrors.New(dErrors.CodeInsufficientFunds, "wallet cannot cover shortfall")
		},
	}
	b, _, _ := newTestBridge(t, funder, ctrl)

	from := testIdentity(3_000)
	to := testIdentity(0)

	backup := &models.BackupFundingConfig{SourceWallet: wallet}
	_, err := b.TransferBetweenIdentities(context.Background(), from, to, 10_000, backup)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestTransfer_FailureAfterFundingReportsLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 100_000}

	funder := &fakeFunder{
		topUpFn: func(_ context.Context, _ *domain.Wallet, _ id.IdentityID, amount int64) (*domain.AssetLock, error) {
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	from := testIdentity(3_000)
	to := testIdentity(0)

	platform.EXPECT().
		TopUpIdentity(gomock.Any(), from.ID, gomock.Any()).
		Return(&domain.Identity{ID: from.ID, Balance: 10_500, Revision: 2}, nil)
	platform.EXPECT().
		TransferCredits(gomock.Any(), from.ID, to.ID, int64(10_000)).
		Return(uint64(0), errors.New("platform busy"))

	backup := &models.BackupFundingConfig{SourceWallet: wallet, FeeBuffer: 500}
	result, err := b.TransferBetweenIdentities(context.Background(), from, to, 10_000, backup)
	require.Error(t, err)

	// Funded but untransferred credits stay in the source identity; the
	// result carries the lock so the caller can see what landed.
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusFailed, result.Status)
	require.NotNil(t, result.BackupLock)
	assert.Equal(t, int64(7_500), result.BackupLock.Amount)
}

func TestTransfer_RejectsSelfTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, _, _ := newTestBridge(t, &fakeFunder{}, ctrl)

	identity := testIdentity(5_000)
	_, err := b.TransferBetweenIdentities(context.Background(), identity, identity, 100, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransfer))
}

func TestBatchFund_OneResultPerOperationInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 1_000_000}

	funder := &fakeFunder{
		fundFn: func(_ context.Context, _ *domain.Wallet, amount int64) (*domain.AssetLock, error) {
			if amount == 666 {
				return nil, dErrors.New(dErrors.CodeBroadcastFailed, "relay rejected")
			}
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	platform.EXPECT().
		CreateIdentity(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, lock *domain.AssetLock) (*domain.Identity, error) {
			return &domain.Identity{ID: id.NewIdentityID(), Balance: lock.Amount, Revision: 1}, nil
		}).
		Times(2)

	ops := []models.BatchFundingOperation{
		{Amount: 1_000},
		{Amount: 666},
		{Amount: 2_000},
	}
	results, err := b.BatchFundIdentities(context.Background(), wallet, ops)
	require.NoError(t, err)
	require.Len(t, results, len(ops))

	assert.True(t, results[0].Succeeded())
	assert.False(t, results[1].Succeeded())
	assert.True(t, results[2].Succeeded())
	assert.Equal(t, int64(666), results[1].Op.Amount)
	assert.Equal(t, int64(3_000), models.TotalFunded(results))
}

func TestBatchFund_ReservationPreventsOvercommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	// Balance covers one op plus fee but not two.
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 6_000}

	funder := &fakeFunder{
		fundFn: func(_ context.Context, _ *domain.Wallet, amount int64) (*domain.AssetLock, error) {
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	platform.EXPECT().
		CreateIdentity(gomock.Any(), gomock.Any()).
		Return(&domain.Identity{ID: id.NewIdentityID(), Balance: 5_000, Revision: 1}, nil)

	ops := []models.BatchFundingOperation{
		{Amount: 4_000},
		{Amount: 4_000},
	}
	results, err := b.BatchFundIdentities(context.Background(), wallet, ops)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var succeeded, insufficient int
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		} else if dErrors.HasCode(r.Err, dErrors.CodeInsufficientFunds) {
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
}

func TestBatchFund_FailedReservationRefunded(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 6_000}

	calls := 0
	funder := &fakeFunder{
		fundFn: func(_ context.Context, _ *domain.Wallet, amount int64) (*domain.AssetLock, error) {
			calls++
			if calls == 1 {
				return nil, dErrors.New(dErrors.CodeBroadcastFailed, "relay rejected")
			}
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	platform.EXPECT().
		CreateIdentity(gomock.Any(), gomock.Any()).
		Return(&domain.Identity{ID: id.NewIdentityID(), Balance: 4_000, Revision: 1}, nil)

	// Sequential by default, so the second op sees the first's refund.
	ops := []models.BatchFundingOperation{
		{Amount: 4_000},
		{Amount: 4_000},
	}
	results, err := b.BatchFundIdentities(context.Background(), wallet, ops)
	require.NoError(t, err)
	assert.False(t, results[0].Succeeded())
	assert.True(t, results[1].Succeeded())
}

func TestBatchFund_RegistrationFailureCarriesLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 100_000}

	funder := &fakeFunder{
		fundFn: func(_ context.Context, _ *domain.Wallet, amount int64) (*domain.AssetLock, error) {
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	platform.EXPECT().
		CreateIdentity(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("platform down"))

	results, err := b.BatchFundIdentities(context.Background(), wallet, []models.BatchFundingOperation{{Amount: 5_000}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].Succeeded())
	assert.True(t, dErrors.HasCode(results[0].Err, dErrors.CodeRegistrationFailed))
	require.NotNil(t, results[0].Lock)
	assert.Equal(t, int64(5_000), results[0].Lock.Amount)
}

func TestBatchFund_RegistrationFailureKeepsReservation(t *testing.T) {
	ctrl := gomock.NewController(t)
	// Covers op1 plus fee; after op1's funds are locked only 5,000 remains,
	// not enough for op2.
	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 11_000}

	var fundAmounts []int64
	funder := &fakeFunder{
		fundFn: func(_ context.Context, _ *domain.Wallet, amount int64) (*domain.AssetLock, error) {
			fundAmounts = append(fundAmounts, amount)
			return confirmedLock(wallet.ID, amount), nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	// op1 locks on Core, then registration fails. The locked funds left the
	// wallet for good, so op2 must fail the reservation check, not fund.
	platform.EXPECT().
		CreateIdentity(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("platform down"))

	ops := []models.BatchFundingOperation{
		{Amount: 5_000},
		{Amount: 9_000},
	}
	results, err := b.BatchFundIdentities(context.Background(), wallet, ops)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, dErrors.HasCode(results[0].Err, dErrors.CodeRegistrationFailed))
	assert.True(t, dErrors.HasCode(results[1].Err, dErrors.CodeInsufficientFunds))
	assert.Equal(t, []int64{5_000}, fundAmounts)
}

func TestSynchronizeBalances_ReportsCanonicalValues(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, platform, core := newTestBridge(t, &fakeFunder{}, ctrl)

	wallet := &domain.Wallet{ID: id.NewWalletID(), Balance: 1} // stale cache
	alice := testIdentity(0)
	bob := testIdentity(0)

	core.EXPECT().Balance(gomock.Any(), wallet.ID).Return(int64(42_000), nil)
	platform.EXPECT().IdentityBalance(gomock.Any(), alice.ID).Return(int64(7), uint64(3), nil)
	platform.EXPECT().IdentityBalance(gomock.Any(), bob.ID).Return(int64(0), uint64(0), errors.New("platform timeout"))

	result, err := b.SynchronizeBalances(context.Background(), wallet, []*domain.Identity{alice, bob})
	require.NoError(t, err)

	assert.Equal(t, int64(42_000), result.WalletBalance)
	assert.NoError(t, result.WalletErr)
	assert.Equal(t, models.IdentityBalance{Balance: 7, Revision: 3}, result.Identities[alice.ID])
	require.Contains(t, result.IdentityErrs, bob.ID)
	assert.Equal(t, 1, result.SyncErrors())
}

func TestSynchronizeBalances_AllFailuresNonFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, platform, core := newTestBridge(t, &fakeFunder{}, ctrl)

	wallet := &domain.Wallet{ID: id.NewWalletID()}
	identity := testIdentity(0)

	core.EXPECT().Balance(gomock.Any(), wallet.ID).Return(int64(0), errors.New("core unreachable"))
	platform.EXPECT().IdentityBalance(gomock.Any(), identity.ID).Return(int64(0), uint64(0), errors.New("platform unreachable"))

	result, err := b.SynchronizeBalances(context.Background(), wallet, []*domain.Identity{identity})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SyncErrors())
	assert.True(t, dErrors.HasCode(result.WalletErr, dErrors.CodeSyncFailed))
}

func TestRecoverRegistration_FinishesWithoutRelocking(t *testing.T) {
	ctrl := gomock.NewController(t)
	walletID := id.NewWalletID()
	lock := confirmedLock(walletID, 9_000)
	lock.Target = domain.TargetNewIdentity

	funder := &fakeFunder{
		findFn: func(_ context.Context, lockID string) (*domain.AssetLock, error) {
			require.Equal(t, lock.ID, lockID)
			return lock, nil
		},
	}
	b, platform, _ := newTestBridge(t, funder, ctrl)

	platform.EXPECT().
		CreateIdentity(gomock.Any(), lock).
		Return(&domain.Identity{ID: id.NewIdentityID(), Balance: 9_000, Revision: 1}, nil)

	identity, err := b.RecoverRegistration(context.Background(), lock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), identity.Balance)
	assert.Equal(t, int64(1), funder.consumed.Load())
}

func TestRecoverRegistration_RejectsConsumedLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	lock := confirmedLock(id.NewWalletID(), 9_000)
	lock.Consumed = true
	lock.IdentityID = id.NewIdentityID()

	funder := &fakeFunder{
		findFn: func(context.Context, string) (*domain.AssetLock, error) { return lock, nil },
	}
	b, _, _ := newTestBridge(t, funder, ctrl)

	_, err := b.RecoverRegistration(context.Background(), lock.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
