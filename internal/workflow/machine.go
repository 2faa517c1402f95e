// Package workflow models the approval decision state machine. A workflow is
// pending until exactly one decision lands; approved and rejected are terminal,
// so a later edit opens a new workflow instead of reopening this one.
package workflow

import (
	"errors"

	"github.com/qmuntal/stateless"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

var ErrInvalidTransition = errors.New("workflow transition not allowed")

func newMachine(current string) *stateless.StateMachine {
	sm := stateless.NewStateMachine(current)
	sm.Configure(StatusPending).
		Permit(DecisionApprove, StatusApproved).
		Permit(DecisionReject, StatusRejected)
	sm.Configure(StatusApproved)
	sm.Configure(StatusRejected)
	return sm
}

// Transition applies a decision to the current status and returns the
// resulting status. Deciding a non-pending workflow, or firing an unknown
// decision, fails with ErrInvalidTransition.
func Transition(current, decision string) (string, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return "", ErrInvalidTransition
	}
	sm := newMachine(current)
	if err := sm.Fire(decision); err != nil {
		return "", ErrInvalidTransition
	}
	next, ok := sm.MustState().(string)
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// CanDecide reports whether any decision may still land on the workflow.
func CanDecide(current string) bool {
	return current == StatusPending
}
