package telegram

import (
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/shop-bot/internal/telegram/telegramtest"
)

func newTestSender() (*Sender, *telegramtest.MockBotAPI) {
	mock := telegramtest.NewMockBotAPI()
	return NewSender(mock, zap.NewNop()), mock
}

func TestSender_SendText(t *testing.T) {
	sender, mock := newTestSender()

	require.NoError(t, sender.SendText(123, "Hello *world*"))

	sent := mock.Sent()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok, "expected MessageConfig, got %T", sent[0])
	assert.Equal(t, int64(123), msg.ChatID)
	assert.Equal(t, "Hello *world*", msg.Text)
	assert.Empty(t, msg.ParseMode)
}

func TestSender_SendWithKeyboard(t *testing.T) {
	sender, mock := newTestSender()
	kb := Grid(1, Button{Text: "Hats", Data: "categories/get/hats"})

	require.NoError(t, sender.SendWithKeyboard(1, "pick", kb))

	msg := mock.Sent()[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "categories/get/hats", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestSender_SendPhotoGroupCaptionOnFirst(t *testing.T) {
	sender, mock := newTestSender()
	photos := []Photo{
		{Name: "a.jpg", Reader: strings.NewReader("a")},
		{Name: "b.jpg", Reader: strings.NewReader("b")},
	}

	require.NoError(t, sender.SendPhotoGroup(5, photos, "Our Hats:"))

	group, ok := mock.Sent()[0].(tgbotapi.MediaGroupConfig)
	require.True(t, ok)
	require.Len(t, group.Media, 2)
	assert.Equal(t, "Our Hats:", group.Media[0].(tgbotapi.InputMediaPhoto).Caption)
	assert.Empty(t, group.Media[1].(tgbotapi.InputMediaPhoto).Caption)
}

func TestSender_SendPhotoGroupRejectsSingle(t *testing.T) {
	sender, mock := newTestSender()

	err := sender.SendPhotoGroup(5, []Photo{{Name: "a.jpg", Reader: strings.NewReader("a")}}, "")
	assert.Error(t, err)
	assert.Empty(t, mock.Sent())
}

func TestSender_SendPhoto(t *testing.T) {
	sender, mock := newTestSender()
	kb := Grid(1, Button{Text: "Add to cart", Data: "items/addToCart/redcap"})

	require.NoError(t, sender.SendPhoto(5, Photo{Name: "a.jpg", Reader: strings.NewReader("a")}, "RedCap", &kb))

	photo, ok := mock.Sent()[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "RedCap", photo.Caption)
	assert.NotNil(t, photo.ReplyMarkup)
}

func TestSender_ReturnsAPIError(t *testing.T) {
	sender, mock := newTestSender()
	mock.SendError = errors.New("flood")

	assert.Error(t, sender.SendText(1, "x"))
	assert.Error(t, sender.AckCallback("cb"))
}

func TestTruncateCaption(t *testing.T) {
	assert.Equal(t, "short", TruncateCaption("short"))
	long := strings.Repeat("я", MaxCaptionLength+10)
	assert.Len(t, []rune(TruncateCaption(long)), MaxCaptionLength)
}
