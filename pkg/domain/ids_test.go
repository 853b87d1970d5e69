package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "creditbridge/pkg/domain-errors"
)

func TestParseWalletID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseWalletID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseWalletID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseWalletID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseWalletID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, WalletID(valid), id)
	})
}

func TestParseIdentityID_RoundTrip(t *testing.T) {
	id := NewIdentityID()
	parsed, err := ParseIdentityID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestTypeDistinction(t *testing.T) {
	walletID := NewWalletID()
	identityID := NewIdentityID()

	// These would fail to compile if types were interchangeable:
	// var _ WalletID = identityID   // compile error
	// var _ IdentityID = walletID   // compile error

	assert.NotEqual(t, uuid.UUID(walletID), uuid.UUID(identityID))
}

func TestIsNil(t *testing.T) {
	assert.True(t, WalletID(uuid.Nil).IsNil())
	assert.True(t, TxID("").IsNil())
	assert.True(t, CoreAddress("").IsNil())
	assert.False(t, NewWalletID().IsNil())
	assert.False(t, TxID("f00d").IsNil())
}
