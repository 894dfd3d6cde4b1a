package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRotationStateTransitions(t *testing.T) {
	all := []RotationState{AccessValid, AccessExpired, Rotating, RotatedOK, RotationFailed}
	legal := map[[2]RotationState]bool{
		{AccessValid, AccessExpired}: true,
		{AccessExpired, Rotating}:    true,
		{Rotating, RotatedOK}:        true,
		{Rotating, RotationFailed}:   true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]RotationState{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestRotationStateTerminal(t *testing.T) {
	assert.True(t, RotatedOK.Terminal())
	assert.True(t, RotationFailed.Terminal())
	assert.False(t, Rotating.Terminal())
	assert.Equal(t, "unknown", RotationState(42).String())
}

func TestRefreshSessionExpired(t *testing.T) {
	now := time.Now()
	sess := &RefreshSession{ExpiresAt: now}

	assert.True(t, sess.Expired(now))
	assert.True(t, sess.Expired(now.Add(time.Second)))
	assert.False(t, sess.Expired(now.Add(-time.Second)))
}

func TestCarrierActions(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	assert.Equal(t, CarrierNone, NoCarrierChange().Op)
	assert.Equal(t, CarrierClear, ClearCarrier().Op)

	set := SetCarrier("tok", expires)
	assert.Equal(t, CarrierSet, set.Op)
	assert.Equal(t, "tok", set.Token)
	assert.Equal(t, expires, set.Expires)
}

func TestUserActive(t *testing.T) {
	var missing *User
	assert.False(t, missing.Active())
	assert.True(t, (&User{UserNo: 1}).Active())
	assert.False(t, (&User{UserNo: 1, IsBanned: true}).Active())
	assert.False(t, (&User{UserNo: 1, IsDeleted: true}).Active())
}
