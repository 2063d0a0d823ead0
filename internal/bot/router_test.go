package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"/start", "/start", "", true},
		{"/START", "/start", "", true},
		{"/add_item  RedCap now", "/add_item", "RedCap now", true},
		{"/feedbacks@ShopBot", "/feedbacks", "", true},
		{"/cart@ShopBot extra", "/cart", "extra", true},
		{"/", "/", "", true},
		{"hello /start", "", "", false},
		{"", "", "", false},
		{" /start", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCommandHelp(t *testing.T) {
	e := newTestEnv(t)

	customer := e.bot.commandHelp(false)
	assert.Contains(t, customer, "/add_feedback")
	assert.NotContains(t, customer, "/delete_item")

	admin := e.bot.commandHelp(true)
	assert.Contains(t, admin, "/delete_item")
	assert.Contains(t, admin, "/start")
}

func TestMenuHidesAdminCommands(t *testing.T) {
	e := newTestEnv(t)

	var names []string
	for _, c := range e.bot.menu() {
		names = append(names, c.Command)
	}
	assert.Contains(t, names, "start")
	assert.Contains(t, names, "feedbacks")
	assert.NotContains(t, names, "add_category")
}
