package models

import "time"

// RefreshSession is the server-side record bound to a refresh token. It lives only
// in the shared cache; a missing entry means the token is invalid.
type RefreshSession struct {
	Token     string     `json:"-"`
	SessionID string     `json:"sessionId"`
	UserNo    int64      `json:"userNo"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RotatedAt *time.Time `json:"rotatedAt,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RotationState tracks where a client is in the access-token recovery flow.
type RotationState int

const (
	AccessValid RotationState = iota
	AccessExpired
	Rotating
	RotatedOK
	RotationFailed
)

func (s RotationState) String() string {
	switch s {
	case AccessValid:
		return "access_valid"
	case AccessExpired:
		return "access_expired"
	case Rotating:
		return "rotating"
	case RotatedOK:
		return "rotated_ok"
	case RotationFailed:
		return "rotation_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s RotationState) Terminal() bool {
	return s == RotatedOK || s == RotationFailed
}

// CarrierOp names what the transport layer must do with the session carrier.
type CarrierOp int

const (
	CarrierNone CarrierOp = iota
	CarrierSet
	CarrierClear
)

// CarrierAction is returned alongside every session outcome and applied by the handler.
type CarrierAction struct {
	Op      CarrierOp
	Token   string
	Expires time.Time
}

// NoCarrierChange leaves the carrier untouched.
func NoCarrierChange() CarrierAction { return CarrierAction{Op: CarrierNone} }

// ClearCarrier instructs the transport to drop the carried refresh token.
func ClearCarrier() CarrierAction { return CarrierAction{Op: CarrierClear} }

// SetCarrier instructs the transport to carry token until expires.
func SetCarrier(token string, expires time.Time) CarrierAction {
	return CarrierAction{Op: CarrierSet, Token: token, Expires: expires}
}

var rotationTransitions = map[RotationState][]RotationState{
	AccessValid:   {AccessExpired},
	AccessExpired: {Rotating},
	Rotating:      {RotatedOK, RotationFailed},
}

// CanTransition reports whether the rotation flow may move from s to next.
func (s RotationState) CanTransition(next RotationState) bool {
	for _, allowed := range rotationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
