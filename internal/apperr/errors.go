// Package apperr defines the error kinds returned by the game engine.
//
// Business outcomes (a vote in a closed round, a join after start) are plain
// values of *Error that callers branch on with errors.Is. Only
// StoreUnavailable and Conflict describe infrastructure trouble and are
// retried before they reach a caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error kind.
type Kind string

const (
	InvalidState        Kind = "INVALID_STATE"
	InsufficientPlayers Kind = "INSUFFICIENT_PLAYERS"
	DuplicateJoin       Kind = "DUPLICATE_JOIN"
	DuplicateVote       Kind = "DUPLICATE_VOTE"
	VotingClosed        Kind = "VOTING_CLOSED"
	NoEligibleTarget    Kind = "NO_ELIGIBLE_TARGET"
	NotFound            Kind = "NOT_FOUND"
	StoreUnavailable    Kind = "STORE_UNAVAILABLE"

	// Conflict reports a lost compare-and-set on a session row.
	Conflict        Kind = "CONFLICT"
	InvalidArgument Kind = "INVALID_ARGUMENT"
	Unauthorized    Kind = "UNAUTHORIZED"
)

// Error is the engine error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel values usable as errors.Is targets.
var (
	ErrInvalidState        = New(InvalidState, "invalid state")
	ErrInsufficientPlayers = New(InsufficientPlayers, "insufficient players")
	ErrDuplicateJoin       = New(DuplicateJoin, "duplicate join")
	ErrDuplicateVote       = New(DuplicateVote, "duplicate vote")
	ErrVotingClosed        = New(VotingClosed, "voting closed")
	ErrNoEligibleTarget    = New(NoEligibleTarget, "no eligible target")
	ErrNotFound            = New(NotFound, "not found")
	ErrStoreUnavailable    = New(StoreUnavailable, "store unavailable")
	ErrConflict            = New(Conflict, "conflict")
	ErrInvalidArgument     = New(InvalidArgument, "invalid argument")
	ErrUnauthorized        = New(Unauthorized, "unauthorized")
)

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err describes a transient failure.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case StoreUnavailable, Conflict:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a kind to the status code used by the HTTP facade.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case InvalidState, DuplicateJoin, DuplicateVote, VotingClosed, NoEligibleTarget:
		return http.StatusConflict
	case InsufficientPlayers:
		return http.StatusUnprocessableEntity
	case StoreUnavailable, Conflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
