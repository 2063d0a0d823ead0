package callback

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/xaenox/shop-bot/internal/errors"
)

func TestEncodeFormats(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"category get", EncodeCategoryGet("Hats"), "categories/get/hats"},
		{"category delete", EncodeCategoryDelete("Hats"), "categories/delete/hats"},
		{"item get", EncodeItemGet("RedCap"), "items/get/redcap"},
		{"item delete", EncodeItemDelete("RedCap"), "items/delete/redcap"},
		{"add to cart", EncodeAddToCart("RedCap"), "items/addToCart/redcap"},
		{"remove from cart", EncodeRemoveFromCart("RedCap"), "items/removeFromCart/redcap"},
		{"feedback page", EncodeFeedbackPage(12), "feedbacks/get/12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestDecodeRoundTripLowercases(t *testing.T) {
	names := []string{"Hats", "RedCap", "winter coats", "Шапки", "a/b"}
	for _, a := range []Action{CategoryGet, ItemGet, CategoryDelete, ItemDelete, AddToCart, RemoveFromCart} {
		for _, n := range names {
			intent, err := Decode(Encode(a, n))
			require.NoError(t, err)
			assert.Equal(t, a, intent.Action, "action for %q", n)
			assert.Equal(t, strings.ToLower(n), intent.Subject)
		}
	}
}

func TestDecodeFeedbackPageRoundTrip(t *testing.T) {
	for _, p := range []int{0, 1, 2, 99, 123456} {
		got, err := DecodeFeedbackPage(EncodeFeedbackPage(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestDecodeFeedbackPageMalformed(t *testing.T) {
	for _, token := range []string{"feedbacks/get/", "feedbacks/get/abc", "feedbacks/get/-1", "feedbacks/get/1x", "items/get/1",
		"feedbacks/get/99999999999999999999999"} {
		_, err := DecodeFeedbackPage(token)
		assert.True(t, errors.Is(err, apperr.ErrMalformedToken), "token %q", token)
	}
}

func TestDecodeNamespaceIsCaseInsensitive(t *testing.T) {
	intent, err := Decode("items/addtocart/redcap")
	require.NoError(t, err)
	assert.Equal(t, AddToCart, intent.Action)
	assert.Equal(t, "redcap", intent.Subject)
}

func TestDecodeUnknown(t *testing.T) {
	for _, token := range []string{"", "categories/get/", "servers:1", "unknown/get/x"} {
		_, err := Decode(token)
		assert.True(t, errors.Is(err, apperr.ErrMalformedToken), "token %q", token)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("feedbacks/get/3", FeedbackPage))
	assert.False(t, Matches("feedbacks/get/x", FeedbackPage))
	assert.True(t, Matches("categories/delete/hats", CategoryDelete))
	assert.False(t, Matches("categories/delete/hats", CategoryGet))
	assert.False(t, Matches("items/get/", ItemGet))
}

func TestFits(t *testing.T) {
	assert.True(t, Fits("RedCap", AddToCart, RemoveFromCart))
	long := strings.Repeat("x", MaxTokenBytes)
	assert.False(t, Fits(long, ItemGet))
	// 35 two-byte runes exceed the limit with the longest prefix
	assert.False(t, Fits(strings.Repeat("ш", 35), RemoveFromCart))
}
