package state

import (
	"time"

	id "creditbridge/pkg/domain"
)

// Stage tags the lifecycle of a funded-identity creation. The set is closed;
// subscribers switch on it rather than receiving ad hoc callbacks.
type Stage string

const (
	StageValidatingFunds         Stage = "validating_funds"
	StageCreatingTransaction     Stage = "creating_transaction"
	StageBroadcastingTransaction Stage = "broadcasting_transaction"
	StageWaitingForConfirmation  Stage = "waiting_for_confirmation"
	StageCreatingIdentity        Stage = "creating_identity"
	StageCompleted               Stage = "completed"
	StageFailed                  Stage = "failed"
)

// Event is one lifecycle notification published to subscribers. FailedAt is
// set only when Stage is StageFailed and names the stage that broke.
type Event struct {
	Stage      Stage
	FailedAt   Stage
	WalletID   id.WalletID
	IdentityID id.IdentityID
	LockID     string
	Reason     string
	At         time.Time
}
