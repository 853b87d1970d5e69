// Package derrors provides coded domain errors. Services wrap infrastructure
// failures with a code so callers can branch on the class of failure without
// string matching, and so retry policies can classify transience.
package derrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of a domain error.
type Code string

const (
	// CodeInvalidInput marks local validation failures (bad amount, nil ID).
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks lookups for entities that do not exist.
	CodeNotFound Code = "not_found"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
	// CodeUnavailable marks a dependency that is temporarily unreachable.
	CodeUnavailable Code = "unavailable"
	// CodeUnauthorized marks a rejected credential on the ops surface.
	CodeUnauthorized Code = "unauthorized"

	// CodeInsufficientFunds marks a funding amount exceeding the payer's
	// spendable balance. Detected locally, never retried.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeBroadcastFailed marks a lock transaction rejected by the network.
	// Transient: the inputs were never consumed, a rebuild is safe.
	CodeBroadcastFailed Code = "broadcast_failed"
	// CodeConfirmationTimeout marks a broadcast transaction whose
	// confirmation proof did not arrive in time. The transaction is in
	// doubt: retries must re-check it, not rebuild it.
	CodeConfirmationTimeout Code = "confirmation_timeout"
	// CodeRegistrationFailed marks a Platform registration failure after
	// funds are already locked on Core. Fatal, and reported distinctly:
	// the lock is confirmed, single-use, and recoverable by retrying
	// registration against it.
	CodeRegistrationFailed Code = "registration_failed"
	// CodeSyncFailed marks a non-fatal balance synchronization failure.
	CodeSyncFailed Code = "sync_failed"
	// CodeInvalidTransfer marks an invalid source/target/amount on a
	// credit transfer. Fatal, local validation.
	CodeInvalidTransfer Code = "invalid_transfer"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the error class is transient. Only broadcast
// rejections and confirmation timeouts qualify; everything else, including
// insufficient funds, is fatal.
func Retryable(err error) bool {
	return HasCode(err, CodeBroadcastFailed) || HasCode(err, CodeConfirmationTimeout)
}
