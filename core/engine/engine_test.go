package engine

import (
	"errors"
	"testing"
)

func TestClassifyJoinError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no active", errors.New("No Active group call"), ErrNoActiveCall},
		{"not found", errors.New("group call not found"), ErrNoActiveCall},
		{"already joined", errors.New("client is already joined"), ErrAlreadyJoined},
		{"typed passthrough", ErrAlreadyJoined, ErrAlreadyJoined},
	}
	for _, tc := range cases {
		if got := ClassifyJoinError(tc.err); !errors.Is(got, tc.want) {
			t.Errorf("%s: ClassifyJoinError(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}

	generic := errors.New("connection reset")
	if got := ClassifyJoinError(generic); got != generic {
		t.Errorf("Expected generic errors returned unchanged, got %v", got)
	}
}
