package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	tests := []struct {
		name    string
		perRow  int
		buttons int
		want    []int
	}{
		{"two per row", 2, 5, []int{2, 2, 1}},
		{"exact rows", 3, 6, []int{3, 3}},
		{"single column", 1, 2, []int{1, 1}},
		{"non-positive width", 0, 2, []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buttons := make([]Button, tt.buttons)
			for i := range buttons {
				buttons[i] = Button{Text: string(rune('A' + i)), Data: string(rune('a' + i))}
			}
			kb := Grid(tt.perRow, buttons...)

			require.Len(t, kb.InlineKeyboard, len(tt.want))
			for i, n := range tt.want {
				assert.Len(t, kb.InlineKeyboard[i], n)
			}
			assert.Equal(t, "a", *kb.InlineKeyboard[0][0].CallbackData)
		})
	}
}

func TestGridWithoutButtons(t *testing.T) {
	assert.Empty(t, Grid(2).InlineKeyboard)
}
