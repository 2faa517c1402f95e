package workflow

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		decision string
		want     string
		wantErr  bool
	}{
		{"approve pending", StatusPending, DecisionApprove, StatusApproved, false},
		{"reject pending", StatusPending, DecisionReject, StatusRejected, false},
		{"approve approved", StatusApproved, DecisionApprove, "", true},
		{"reject approved", StatusApproved, DecisionReject, "", true},
		{"approve rejected", StatusRejected, DecisionApprove, "", true},
		{"unknown decision", StatusPending, "defer", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.current, tc.decision)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Transition(%s, %s) = %s, want %s", tc.current, tc.decision, got, tc.want)
			}
		})
	}
}

func TestCanDecide(t *testing.T) {
	if !CanDecide(StatusPending) {
		t.Fatal("pending workflow should accept a decision")
	}
	if CanDecide(StatusApproved) || CanDecide(StatusRejected) {
		t.Fatal("terminal workflow should not accept a decision")
	}
}
