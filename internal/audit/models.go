// Package audit captures the funding lifecycle events that matter after the
// fact: confirmed locks, consumed locks, and above all registration failures
// that leave funds locked on Core. Those are reconciliation hazards and are
// reported distinctly from clean failures.
package audit

import (
	"time"

	id "creditbridge/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryReconciliation covers events describing value that needs
	// follow-up: locked-but-unregistered funds, detected balance drift.
	CategoryReconciliation EventCategory = "reconciliation"

	// CategoryOperations covers routine lifecycle events useful for
	// debugging and operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Action     string
	WalletID   id.WalletID
	IdentityID id.IdentityID
	TxID       id.TxID
	LockID     string
	Amount     int64
	Reason     string
}

// AuditEvent names the closed set of actions.
type AuditEvent string

const (
	// Funding events
	EventLockConfirmed AuditEvent = "asset_lock_confirmed"
	EventLockConsumed  AuditEvent = "asset_lock_consumed"
	EventFundingFailed AuditEvent = "funding_failed"

	// Reconciliation hazards
	EventRegistrationFailedFundsLocked AuditEvent = "registration_failed_funds_locked"
	EventRegistrationRecovered         AuditEvent = "registration_recovered"
	EventBalanceDriftCorrected         AuditEvent = "balance_drift_corrected"

	// Cross-layer operations
	EventTransferCompleted   AuditEvent = "transfer_completed"
	EventWithdrawalConfirmed AuditEvent = "withdrawal_confirmed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLockConfirmed:                 CategoryOperations,
	EventLockConsumed:                  CategoryOperations,
	EventFundingFailed:                 CategoryOperations,
	EventRegistrationFailedFundsLocked: CategoryReconciliation,
	EventRegistrationRecovered:         CategoryReconciliation,
	EventBalanceDriftCorrected:         CategoryReconciliation,
	EventTransferCompleted:             CategoryOperations,
	EventWithdrawalConfirmed:           CategoryOperations,
}

// Category returns the category an action belongs to, defaulting to
// operations for unknown actions.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
