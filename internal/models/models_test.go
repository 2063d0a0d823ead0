package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserCreatesEmptyCart(t *testing.T) {
	user, cart := NewUser(42, "alice", 17, false)

	require.NotNil(t, user)
	require.NotNil(t, cart)
	assert.Equal(t, int64(42), user.TelegramID)
	assert.Equal(t, 17, user.Age)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, user.ID, cart.OwnerID)
	assert.Empty(t, cart.Items)
}

func TestValidRating(t *testing.T) {
	for _, r := range []int{0, 11, -1} {
		assert.False(t, ValidRating(r), "rating %d", r)
	}
	for _, r := range []int{1, 5, 10} {
		assert.True(t, ValidRating(r), "rating %d", r)
	}
}

func TestCartLines(t *testing.T) {
	redCap := Item{ID: "1", Name: "RedCap", Price: 10}
	hat := Item{ID: "2", Name: "Hat", Price: 2.5}
	cart := &Cart{Items: []Item{redCap, hat, redCap}}

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "RedCap", lines[0].Item.Name)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.InDelta(t, 22.5, cart.Total(), 0.0001)
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "redcap", NameKey("  RedCap "))
}
