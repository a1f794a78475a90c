package identity

import (
	"github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_STATUS_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = errors.New("invalid account status transition", errors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(errors.CodeConflict)

// statusTransitions is the closed transition table. PENDING only ever moves
// forward to ACTIVE; a verified account can be pushed back to PENDING by
// staff (forcing re-verification) or marked RESET while recovery is in
// flight.
var statusTransitions = map[UserStatus][]UserStatus{
	UserStatusPending: {UserStatusActive},
	UserStatusActive:  {UserStatusReset, UserStatusPending},
	UserStatusReset:   {UserStatusActive, UserStatusPending},
}

// CanTransition reports whether from -> to is an allowed status change.
// A same-status "change" is always allowed as a no-op.
func CanTransition(from, to UserStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionStatus applies a guarded status change to the account.
func TransitionStatus(user *User, target UserStatus) error {
	if !target.IsValid() {
		return errors.New("unknown account status", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	user.EnsureStatus()

	if !CanTransition(user.Status, target) {
		return ErrInvalidTransition
	}

	user.Status = target
	return nil
}
