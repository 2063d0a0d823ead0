// Package telegram wraps the Bot API calls the shop needs.
package telegram

import (
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// MaxCaptionLength is Telegram's limit for photo captions.
const MaxCaptionLength = 1024

// BotAPI is the subset of *tgbotapi.BotAPI used for sending.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Photo is an uploadable image.
type Photo struct {
	Name   string
	Reader io.Reader
}

// MessageSender is what handlers use to talk to a chat.
type MessageSender interface {
	SendText(chatID int64, text string) error
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error
	SendPhoto(chatID int64, photo Photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	SendPhotoGroup(chatID int64, photos []Photo, caption string) error
	AckCallback(callbackID string) error
	SetCommands(commands []tgbotapi.BotCommand) error
}

// Sender implements MessageSender on top of BotAPI. Texts are sent plain.
type Sender struct {
	api    BotAPI
	logger *zap.Logger
}

var _ MessageSender = (*Sender)(nil)

func NewSender(api BotAPI, logger *zap.Logger) *Sender {
	return &Sender{api: api, logger: logger}
}

// SendText sends a plain text message.
func (s *Sender) SendText(chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		s.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}

// SendWithKeyboard sends a message with an inline keyboard.
func (s *Sender) SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = keyboard
	}
	_, err := s.api.Send(msg)
	if err != nil {
		s.logger.Error("Failed to send message with keyboard", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}

// SendPhoto uploads one photo with a caption and optional buttons.
func (s *Sender) SendPhoto(chatID int64, photo Photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileReader{Name: photo.Name, Reader: photo.Reader})
	msg.Caption = TruncateCaption(caption)
	if keyboard != nil && len(keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = *keyboard
	}
	_, err := s.api.Send(msg)
	if err != nil {
		s.logger.Error("Failed to send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}

// SendPhotoGroup uploads 2 to 10 photos as an album. The caption goes on the first one.
func (s *Sender) SendPhotoGroup(chatID int64, photos []Photo, caption string) error {
	if len(photos) < 2 || len(photos) > 10 {
		return fmt.Errorf("media group needs 2 to 10 photos, got %d", len(photos))
	}
	media := make([]interface{}, 0, len(photos))
	for i, p := range photos {
		m := tgbotapi.NewInputMediaPhoto(tgbotapi.FileReader{Name: p.Name, Reader: p.Reader})
		if i == 0 {
			m.Caption = TruncateCaption(caption)
		}
		media = append(media, m)
	}
	_, err := s.api.Request(tgbotapi.NewMediaGroup(chatID, media))
	if err != nil {
		s.logger.Error("Failed to send photo group", zap.Int64("chat_id", chatID),
			zap.Int("photos", len(photos)), zap.Error(err))
	}
	return err
}

// AckCallback acknowledges a callback query
func (s *Sender) AckCallback(callbackID string) error {
	_, err := s.api.Request(tgbotapi.NewCallback(callbackID, ""))
	if err != nil {
		s.logger.Error("Failed to acknowledge callback", zap.Error(err))
	}
	return err
}

// SetCommands registers the command menu shown by Telegram clients.
func (s *Sender) SetCommands(commands []tgbotapi.BotCommand) error {
	_, err := s.api.Request(tgbotapi.NewSetMyCommands(commands...))
	if err != nil {
		s.logger.Error("Failed to set bot commands", zap.Error(err))
	}
	return err
}

// TruncateCaption cuts text to MaxCaptionLength runes.
func TruncateCaption(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxCaptionLength {
		return text
	}
	return string(runes[:MaxCaptionLength-1]) + "…"
}
