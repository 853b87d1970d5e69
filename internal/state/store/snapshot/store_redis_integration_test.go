//go:build integration

package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"creditbridge/internal/domain"
	"creditbridge/internal/state"
	"creditbridge/internal/state/store/snapshot"
	id "creditbridge/pkg/domain"
	"creditbridge/pkg/platform/sentinel"
	"creditbridge/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *snapshot.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	store, err := snapshot.NewRedisStore(s.redis.Client)
	s.Require().NoError(err)
	s.store = store
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(context.Background())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSaveLoadRoundTrip() {
	ctx := context.Background()

	walletID := id.NewWalletID()
	identityID := id.NewIdentityID()

	snap := &state.Snapshot{
		Wallets: map[id.WalletID]domain.Wallet{
			walletID: {ID: walletID, Balance: 42_000, Address: id.CoreAddress("yAddr")},
		},
		Identities: map[id.IdentityID]domain.Identity{
			identityID: {ID: identityID, Balance: 7, Revision: 3},
		},
		StaleWallets:  map[id.WalletID]bool{walletID: true},
		TokenBalances: map[string]int64{"gov": 12},
		Price: domain.PriceSnapshot{
			Currency: "USD",
			Price:    decimal.RequireFromString("31.41"),
			AsOf:     time.Now().UTC().Truncate(time.Second),
		},
		History: []domain.TxRecord{
			{TxID: id.TxID("f00d"), Amount: -42, Confirmed: true, Timestamp: time.Now().UTC().Truncate(time.Second)},
		},
		Connected:  true,
		Height:     1_000_001,
		LastSyncAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	s.Require().NoError(s.store.Save(ctx, snap))

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)

	s.Equal(snap.Wallets[walletID], loaded.Wallets[walletID])
	s.Equal(snap.Identities[identityID], loaded.Identities[identityID])
	s.True(loaded.StaleWallets[walletID])
	s.Equal(int64(12), loaded.TokenBalances["gov"])
	s.Equal("USD", loaded.Price.Currency)
	s.True(snap.Price.Price.Equal(loaded.Price.Price))
	s.Equal(snap.History, loaded.History)
	s.Equal(snap.Height, loaded.Height)
}

func (s *RedisStoreSuite) TestSaveOverwrites() {
	ctx := context.Background()

	first := &state.Snapshot{Height: 1}
	second := &state.Snapshot{Height: 2}
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), loaded.Height)
}
