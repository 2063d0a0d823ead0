// Package telegramtest provides a recording BotAPI for tests.
package telegramtest

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MockBotAPI records every Chattable it receives.
type MockBotAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	fileURLs  map[string]string
	SendError error
}

func NewMockBotAPI() *MockBotAPI {
	return &MockBotAPI{fileURLs: make(map[string]string)}
}

func (m *MockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, m.SendError
}

func (m *MockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	return &tgbotapi.APIResponse{Ok: m.SendError == nil}, m.SendError
}

// SetFileURL makes GetFileDirectURL resolve fileID to url.
func (m *MockBotAPI) SetFileURL(fileID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileURLs[fileID] = url
}

func (m *MockBotAPI) GetFileDirectURL(fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url, ok := m.fileURLs[fileID]
	if !ok {
		return "", fmt.Errorf("file %s not found", fileID)
	}
	return url, nil
}

// Sent returns a copy of everything recorded so far.
func (m *MockBotAPI) Sent() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.sent...)
}

// Texts returns the text of every message sent to chatID, captions included.
func (m *MockBotAPI) Texts(chatID int64) []string {
	var texts []string
	for _, c := range m.Sent() {
		switch msg := c.(type) {
		case tgbotapi.MessageConfig:
			if msg.ChatID == chatID {
				texts = append(texts, msg.Text)
			}
		case tgbotapi.PhotoConfig:
			if msg.ChatID == chatID {
				texts = append(texts, msg.Caption)
			}
		case tgbotapi.MediaGroupConfig:
			if msg.ChatID == chatID && len(msg.Media) > 0 {
				if p, ok := msg.Media[0].(tgbotapi.InputMediaPhoto); ok {
					texts = append(texts, p.Caption)
				}
			}
		}
	}
	return texts
}

// LastText returns the last text sent to chatID, or "".
func (m *MockBotAPI) LastText(chatID int64) string {
	texts := m.Texts(chatID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// Reset forgets everything recorded so far.
func (m *MockBotAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
