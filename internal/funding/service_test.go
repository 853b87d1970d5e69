package funding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"creditbridge/internal/domain"
	"creditbridge/internal/funding/store/journal"
	"creditbridge/internal/ports"
	"creditbridge/internal/ports/mocks"
	id "creditbridge/pkg/domain"
	dErrors "creditbridge/pkg/domain-errors"
	"creditbridge/pkg/retry"
)

func newBridge(t *testing.T, core ports.CoreClient) (*Bridge, *journal.InMemoryStore) {
	t.Helper()
	store := journal.NewInMemoryStore()
	b, err := New(core, store,
		WithBackoff(retry.Constant(0)),
		WithConfirmationTimeout(time.Second),
	)
	require.NoError(t, err)
	return b, store
}

func testWallet(balance int64) *domain.Wallet {
	return &domain.Wallet{
		ID:      id.NewWalletID(),
		Balance: balance,
		Address: id.CoreAddress("yXcoreAddr"),
	}
}

func proofFor(txid id.TxID) *domain.ConfirmationProof {
	return &domain.ConfirmationProof{TxID: txid, Signature: []byte{0xab}, ReceivedAt: time.Now()}
}

func TestFundIdentity_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, store := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000, Inputs: []string{"aa:0"}}
	txid := id.TxID("f00d")

	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, int64(10_000_000)).Return(tx, nil)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(txid, nil)
	core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(proofFor(txid), nil)

	lock, err := b.FundIdentity(context.Background(), wallet, 10_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), lock.Amount)
	assert.Equal(t, int64(1_000), lock.Fee)
	assert.Equal(t, txid, lock.TxID)
	assert.Equal(t, domain.TargetNewIdentity, lock.Target)
	assert.True(t, lock.Confirmed())
	assert.False(t, lock.Consumed)

	// Confirmed locks are journaled for recovery.
	journaled, err := store.Find(context.Background(), lock.ID)
	require.NoError(t, err)
	assert.Equal(t, lock.TxID, journaled.TxID)
}

func TestFundIdentity_InsufficientFundsIsLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	// No EXPECT calls: any network call would fail the test.
	wallet := testWallet(5_000)
	_, err := b.FundIdentity(context.Background(), wallet, 10_000_000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestFundIdentity_FeeCountsAgainstBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	// Balance covers the amount but not amount + fee estimate.
	wallet := testWallet(10_000_000)
	_, err := b.FundIdentity(context.Background(), wallet, 10_000_000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestFundIdentity_BroadcastFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000}

	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, int64(10_000_000)).Return(tx, nil)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(id.TxID(""), errors.New("mempool rejected"))

	_, err := b.FundIdentity(context.Background(), wallet, 10_000_000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBroadcastFailed))
}

func TestFundIdentity_ConfirmationTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000}
	txid := id.TxID("beef")

	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, gomock.Any()).Return(tx, nil)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(txid, nil)
	core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(nil, errors.New("timed out"))

	_, err := b.FundIdentity(context.Background(), wallet, 10_000_000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfirmationTimeout))
}

func TestFundIdentityWithRetry_RebuildsAfterBroadcastFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx1 := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000, Inputs: []string{"aa:0"}}
	tx2 := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000, Inputs: []string{"aa:0"}}
	txid := id.TxID("cafe")

	gomock.InOrder(
		core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, int64(10_000_000)).Return(tx1, nil),
		core.EXPECT().BroadcastTransaction(gomock.Any(), tx1).Return(id.TxID(""), errors.New("mempool full")),
		// A rejected broadcast never consumed inputs, so a rebuild is safe.
		core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, int64(10_000_000)).Return(tx2, nil),
		core.EXPECT().BroadcastTransaction(gomock.Any(), tx2).Return(txid, nil),
		core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(proofFor(txid), nil),
	)

	lock, err := b.FundIdentityWithRetry(context.Background(), wallet, 10_000_000, 3)
	require.NoError(t, err)
	assert.Equal(t, txid, lock.TxID)
}

func TestFundIdentityWithRetry_RepollsInDoubtTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000, Inputs: []string{"aa:0"}}
	txid := id.TxID("dead")

	// Construction and broadcast happen exactly once: the timed-out
	// transaction is in doubt and retries re-poll its proof rather than
	// spending the wallet again.
	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, int64(10_000_000)).Return(tx, nil).Times(1)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(txid, nil).Times(1)
	gomock.InOrder(
		core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(nil, errors.New("timed out")),
		core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(nil, errors.New("timed out")),
		core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(proofFor(txid), nil),
	)

	lock, err := b.FundIdentityWithRetry(context.Background(), wallet, 10_000_000, 3)
	require.NoError(t, err)
	assert.Equal(t, txid, lock.TxID)
	assert.Equal(t, int64(10_000_000), lock.Amount, "no more than amount is ever committed")
}

func TestFundIdentityWithRetry_InsufficientFundsNeverRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(1_000)
	_, err := b.FundIdentityWithRetry(context.Background(), wallet, 10_000_000, 5)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func TestFundIdentityWithRetry_ExhaustsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000}
	txid := id.TxID("0ddb")

	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, gomock.Any()).Return(tx, nil).Times(1)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(txid, nil).Times(1)
	core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).
		Return(nil, errors.New("timed out")).Times(3)

	_, err := b.FundIdentityWithRetry(context.Background(), wallet, 10_000_000, 3)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfirmationTimeout))
}

func TestFundIdentity_CancellationStopsWaitOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000}
	txid := id.TxID("abad")

	ctx, cancel := context.WithCancel(context.Background())

	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, gomock.Any()).Return(tx, nil)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(txid, nil)
	core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).
		DoAndReturn(func(ctx context.Context, _ id.TxID, _ time.Duration) (*domain.ConfirmationProof, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err := b.FundIdentityWithRetry(ctx, wallet, 10_000_000, 5)
	require.ErrorIs(t, err, context.Canceled, "cancellation must not trigger a rebuild or another wait")
}

func TestTopUpIdentity_RequiresIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	_, err := b.TopUpIdentity(context.Background(), testWallet(100_000_000), id.IdentityID{}, 1_000)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestFund_RejectsBadAmounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	for _, amount := range []int64{0, -5} {
		_, err := b.FundIdentity(context.Background(), testWallet(100_000_000), amount)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestConsume_SingleUse(t *testing.T) {
	ctrl := gomock.NewController(t)
	core := mocks.NewMockCoreClient(ctrl)
	b, _ := newBridge(t, core)

	wallet := testWallet(100_000_000)
	tx := &ports.Transaction{WalletID: wallet.ID, Amount: 10_000_000, Fee: 1_000}
	txid := id.TxID("feed")
	core.EXPECT().CreateAssetLockTransaction(gomock.Any(), wallet.ID, gomock.Any()).Return(tx, nil)
	core.EXPECT().BroadcastTransaction(gomock.Any(), tx).Return(txid, nil)
	core.EXPECT().WaitForConfirmationProof(gomock.Any(), txid, time.Second).Return(proofFor(txid), nil)

	lock, err := b.FundIdentity(context.Background(), wallet, 10_000_000)
	require.NoError(t, err)

	identityID := id.NewIdentityID()
	require.NoError(t, b.Consume(context.Background(), lock.ID, identityID))

	err = b.Consume(context.Background(), lock.ID, id.NewIdentityID())
	require.Error(t, err, "a lock funds exactly one creation or top-up")

	remaining, err := b.UnconsumedLocks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
