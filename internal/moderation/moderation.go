// Package moderation screens user feedback before it is published.
package moderation

import (
	"context"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Moderator decides whether a text must be rejected.
type Moderator interface {
	Flagged(ctx context.Context, text string) (bool, error)
}

// KeywordModerator flags texts containing any banned word.
type KeywordModerator struct {
	banned []string
}

func NewKeywordModerator(banned []string) *KeywordModerator {
	words := make([]string, 0, len(banned))
	for _, w := range banned {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	return &KeywordModerator{banned: words}
}

func (m *KeywordModerator) Flagged(ctx context.Context, text string) (bool, error) {
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		for _, banned := range m.banned {
			if word == banned {
				return true, nil
			}
		}
	}
	return false, nil
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-' && r != '_'
}

// OpenAIModerator asks the OpenAI moderation endpoint and falls back to
// keywords when the call fails.
type OpenAIModerator struct {
	client   *openai.Client
	model    string
	fallback *KeywordModerator
	logger   *zap.Logger
}

func NewOpenAIModerator(client *openai.Client, model string, fallback *KeywordModerator, logger *zap.Logger) *OpenAIModerator {
	return &OpenAIModerator{client: client, model: model, fallback: fallback, logger: logger}
}

func (m *OpenAIModerator) Flagged(ctx context.Context, text string) (bool, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{Input: text, Model: m.model})
	if err != nil {
		m.logger.Error("Failed to get moderation response", zap.Error(err))
		return m.fallback.Flagged(ctx, text)
	}
	for _, r := range resp.Results {
		if r.Flagged {
			m.logger.Info("Feedback flagged by moderation", zap.String("model", resp.Model))
			return true, nil
		}
	}
	return m.fallback.Flagged(ctx, text)
}

// Nop accepts everything.
type Nop struct{}

func (Nop) Flagged(context.Context, string) (bool, error) { return false, nil }
