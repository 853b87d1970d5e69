// Package domain holds typed primitives shared across the bridge. IDs are
// distinct types so a wallet identifier can never be passed where an identity
// identifier is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "creditbridge/pkg/domain-errors"
)

// WalletID identifies a Core-side wallet.
type WalletID uuid.UUID

// IdentityID identifies a Platform-side identity.
type IdentityID uuid.UUID

// TxID identifies a Core-chain transaction. Produced by the Core client on
// broadcast; opaque to this engine.
type TxID string

// CoreAddress is a Core-chain receiving address.
type CoreAddress string

func (w WalletID) String() string    { return uuid.UUID(w).String() }
func (i IdentityID) String() string  { return uuid.UUID(i).String() }
func (t TxID) String() string        { return string(t) }
func (a CoreAddress) String() string { return string(a) }

func (w WalletID) IsNil() bool    { return uuid.UUID(w) == uuid.Nil }
func (i IdentityID) IsNil() bool  { return uuid.UUID(i) == uuid.Nil }
func (t TxID) IsNil() bool        { return t == "" }
func (a CoreAddress) IsNil() bool { return a == "" }

// The UUID-backed IDs marshal as their canonical string form.
func (w WalletID) MarshalText() ([]byte, error)   { return []byte(w.String()), nil }
func (i IdentityID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (w *WalletID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text), "wallet_id")
	if err != nil {
		return err
	}
	*w = WalletID(u)
	return nil
}

func (i *IdentityID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text), "identity_id")
	if err != nil {
		return err
	}
	*i = IdentityID(u)
	return nil
}

// NewWalletID returns a fresh random wallet ID.
func NewWalletID() WalletID { return WalletID(uuid.New()) }

// NewIdentityID returns a fresh random identity ID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// ParseWalletID validates and returns a WalletID. Empty, malformed, and nil
// UUIDs are rejected.
func ParseWalletID(s string) (WalletID, error) {
	u, err := parseUUID(s, "wallet_id")
	if err != nil {
		return WalletID(uuid.Nil), err
	}
	return WalletID(u), nil
}

// ParseIdentityID validates and returns an IdentityID.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s, "identity_id")
	if err != nil {
		return IdentityID(uuid.Nil), err
	}
	return IdentityID(u), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", field)
	}
	return u, nil
}
