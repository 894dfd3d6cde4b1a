package service

import "github.com/noah-isme/session-auth-api/internal/models"

// rotation tracks one request's progress through the rotation state machine.
// A rotation request always starts from AccessExpired.
type rotation struct {
	state models.RotationState
}

func newRotation() *rotation {
	return &rotation{state: models.AccessExpired}
}

// advance moves to next when the transition is legal and reports whether it did.
func (r *rotation) advance(next models.RotationState) bool {
	if !r.state.CanTransition(next) {
		return false
	}
	r.state = next
	return true
}
