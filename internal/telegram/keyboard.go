package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Button is an inline button answering with a callback token.
type Button struct {
	Text string
	Data string
}

// Grid lays buttons out perRow to a row. Without buttons the markup is
// empty and SendWithKeyboard leaves the message bare.
func Grid(perRow int, buttons ...Button) tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}
	}
	if perRow <= 0 {
		perRow = 1
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, (len(buttons)+perRow-1)/perRow)
	var row []tgbotapi.InlineKeyboardButton
	for _, btn := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		if len(row) == perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
