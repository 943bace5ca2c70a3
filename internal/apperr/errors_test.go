package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Newf(DuplicateVote, "player %s already voted in round %d", "p1", 2)
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("errors.Is(%v, ErrDuplicateVote) = false", err)
	}
	if errors.Is(err, ErrVotingClosed) {
		t.Fatalf("errors.Is(%v, ErrVotingClosed) = true", err)
	}

	wrapped := fmt.Errorf("cast vote: %w", err)
	if KindOf(wrapped) != DuplicateVote {
		t.Fatalf("KindOf = %q, want %q", KindOf(wrapped), DuplicateVote)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(StoreUnavailable, "load session", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause lost: %v", err)
	}
	if got := err.Error(); got != "load session: context deadline exceeded" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(StoreUnavailable, "down"), true},
		{New(Conflict, "cas"), true},
		{New(InvalidState, "lobby"), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		NotFound:            http.StatusNotFound,
		InvalidState:        http.StatusConflict,
		DuplicateVote:       http.StatusConflict,
		InsufficientPlayers: http.StatusUnprocessableEntity,
		StoreUnavailable:    http.StatusServiceUnavailable,
		Kind("other"):       http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := kind.HTTPStatus(); got != want {
			t.Fatalf("%s.HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}
