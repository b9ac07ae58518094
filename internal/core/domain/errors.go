package domain

import "errors"

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthorized
	KindInvalidState
	KindInvalidInput
	KindResourceFailure
	KindEmptyRound
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindResourceFailure:
		return "RESOURCE_FAILURE"
	case KindEmptyRound:
		return "EMPTY_ROUND"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Error is a giveaway failure with a stable code that callers can match
// with errors.Is against the sentinels below.
type Error struct {
	Kind ErrorKind
	Code string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{kind, code, msg}
}

var (
	ErrUnauthorized = newError(KindUnauthorized, "UNAUTHORIZED", "caller is not authorized")

	ErrRoundNotActive     = newError(KindInvalidState, "ROUND_NOT_ACTIVE", "round is not active")
	ErrStillActive        = newError(KindInvalidState, "STILL_ACTIVE", "round deadline not reached yet")
	ErrAlreadyDrawing     = newError(KindInvalidState, "ALREADY_DRAWING", "round draw already requested")
	ErrAlreadySettled     = newError(KindInvalidState, "ALREADY_SETTLED", "round already settled")
	ErrNotDrawing         = newError(KindInvalidState, "NOT_DRAWING", "round is not waiting for randomness")
	ErrRoundAlreadyActive = newError(KindInvalidState, "ROUND_ALREADY_ACTIVE", "latest round is not settled yet")
	ErrRoundNotSettled    = newError(KindInvalidState, "ROUND_NOT_SETTLED", "round is not settled")
	ErrAlreadyWithdrawn   = newError(KindInvalidState, "ALREADY_WITHDRAWN", "round treasury already withdrawn")
	ErrRoundNotEmpty      = newError(KindInvalidState, "ROUND_NOT_EMPTY", "round has entries")
	ErrReentrantCall      = newError(KindInvalidState, "REENTRANT_CALL", "re-entrant call rejected")

	ErrInvalidDeadline    = newError(KindInvalidInput, "INVALID_DEADLINE", "deadline must be in the future")
	ErrInvalidDescription = newError(KindInvalidInput, "INVALID_DESCRIPTION", "description exceeds 32 bytes")
	ErrInvalidAddress     = newError(KindInvalidInput, "INVALID_ADDRESS", "invalid address")
	ErrInvalidAmount      = newError(KindInvalidInput, "INVALID_AMOUNT", "invalid amount")
	ErrTokenNotAllowed    = newError(KindInvalidInput, "TOKEN_NOT_ALLOWED", "token is not allowed")
	ErrUnknownRequest     = newError(KindInvalidInput, "UNKNOWN_REQUEST", "unknown randomness request")
	ErrInvalidProof       = newError(KindInvalidInput, "INVALID_PROOF", "invalid randomness proof")

	ErrTransferFailed  = newError(KindResourceFailure, "TRANSFER_FAILED", "asset transfer failed")
	ErrInsufficientFee = newError(KindResourceFailure, "INSUFFICIENT_FEE", "insufficient balance to pay oracle fee")

	ErrNoParticipants = newError(KindEmptyRound, "NO_PARTICIPANTS", "round has no participants")

	ErrRoundNotFound = newError(KindNotFound, "ROUND_NOT_FOUND", "round not found")
)

// KindOf returns the kind of the first giveaway error found in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first giveaway error found in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
