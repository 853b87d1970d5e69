package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"creditbridge/internal/domain"
	id "creditbridge/pkg/domain"
	"creditbridge/pkg/platform/sentinel"
)

// PostgresStore is the durable asset-lock journal. Single-use enforcement
// rides on a conditional UPDATE so two concurrent consumers cannot both
// spend one lock.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the journal table DDL, applied by the operator or migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS asset_locks (
	id                TEXT PRIMARY KEY,
	wallet_id         UUID NOT NULL,
	txid              TEXT NOT NULL,
	amount            BIGINT NOT NULL,
	fee               BIGINT NOT NULL,
	target            TEXT NOT NULL,
	identity_id       UUID,
	proof_signature   BYTEA,
	proof_received_at TIMESTAMPTZ,
	consumed          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS asset_locks_unconsumed_idx ON asset_locks (id) WHERE NOT consumed;
`

func (s *PostgresStore) Append(ctx context.Context, lock *domain.AssetLock) error {
	var identityID any
	if !lock.IdentityID.IsNil() {
		identityID = uuid.UUID(lock.IdentityID)
	}
	var proofSig []byte
	var proofAt any
	if lock.Proof != nil {
		proofSig = lock.Proof.Signature
		proofAt = lock.Proof.ReceivedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asset_locks
			(id, wallet_id, txid, amount, fee, target, identity_id, proof_signature, proof_received_at, consumed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lock.ID, uuid.UUID(lock.WalletID), string(lock.TxID), lock.Amount, lock.Fee,
		string(lock.Target), identityID, proofSig, proofAt, lock.Consumed, lock.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("asset lock %s already journaled: %w", lock.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("append asset lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, lockID string) (*domain.AssetLock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, wallet_id, txid, amount, fee, target, identity_id, proof_signature, proof_received_at, consumed, created_at
		FROM asset_locks WHERE id = $1`, lockID)
	lock, err := scanLock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset lock %s: %w", lockID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find asset lock: %w", err)
	}
	return lock, nil
}

func (s *PostgresStore) MarkConsumed(ctx context.Context, lockID string, identityID id.IdentityID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE asset_locks SET consumed = TRUE, identity_id = $2
		WHERE id = $1 AND NOT consumed`, lockID, uuid.UUID(identityID))
	if err != nil {
		return fmt.Errorf("mark asset lock consumed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark asset lock consumed: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish missing from already-consumed.
	var consumed bool
	err = s.db.QueryRowContext(ctx, `SELECT consumed FROM asset_locks WHERE id = $1`, lockID).Scan(&consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("asset lock %s: %w", lockID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("mark asset lock consumed: %w", err)
	}
	return fmt.Errorf("asset lock %s: %w", lockID, sentinel.ErrAlreadyConsumed)
}

func (s *PostgresStore) ListUnconsumed(ctx context.Context) ([]*domain.AssetLock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_id, txid, amount, fee, target, identity_id, proof_signature, proof_received_at, consumed, created_at
		FROM asset_locks WHERE NOT consumed ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list unconsumed asset locks: %w", err)
	}
	defer rows.Close()

	var out []*domain.AssetLock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("list unconsumed asset locks: %w", err)
		}
		out = append(out, lock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unconsumed asset locks: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row rowScanner) (*domain.AssetLock, error) {
	var (
		lock       domain.AssetLock
		walletID   uuid.UUID
		txid       string
		target     string
		identityID uuid.NullUUID
		proofSig   []byte
		proofAt    sql.NullTime
	)
	if err := row.Scan(&lock.ID, &walletID, &txid, &lock.Amount, &lock.Fee, &target,
		&identityID, &proofSig, &proofAt, &lock.Consumed, &lock.CreatedAt); err != nil {
		return nil, err
	}
	lock.WalletID = id.WalletID(walletID)
	lock.TxID = id.TxID(txid)
	lock.Target = domain.LockTarget(target)
	if identityID.Valid {
		lock.IdentityID = id.IdentityID(identityID.UUID)
	}
	if proofSig != nil || proofAt.Valid {
		lock.Proof = &domain.ConfirmationProof{
			TxID:       lock.TxID,
			Signature:  proofSig,
			ReceivedAt: proofAt.Time,
		}
	}
	return &lock, nil
}

// isUniqueViolation matches the postgres unique_violation SQLSTATE without
// depending on driver error types at call sites.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
