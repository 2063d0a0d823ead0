package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeywordModerator(t *testing.T) {
	m := NewKeywordModerator([]string{"Scam", " ", "spam"})

	tests := []struct {
		text string
		want bool
	}{
		{"Great hats, thanks!", false},
		{"total SCAM.", true},
		{"spam,spam", true},
		{"scampi was tasty", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := m.Flagged(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newModerationServer(t *testing.T, flagged bool, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/moderations", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "modr-1",
			"model":   "omni-moderation-latest",
			"results": []map[string]any{{"flagged": flagged}},
		})
	}))
}

func newClient(url string) *openai.Client {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = url + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestOpenAIModerator_Flagged(t *testing.T) {
	srv := newModerationServer(t, true, http.StatusOK)
	defer srv.Close()

	m := NewOpenAIModerator(newClient(srv.URL), "omni-moderation-latest", NewKeywordModerator(nil), zap.NewNop())
	got, err := m.Flagged(context.Background(), "something rude")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestOpenAIModerator_FallsBackOnError(t *testing.T) {
	srv := newModerationServer(t, false, http.StatusInternalServerError)
	defer srv.Close()

	m := NewOpenAIModerator(newClient(srv.URL), "omni-moderation-latest", NewKeywordModerator([]string{"scam"}), zap.NewNop())

	got, err := m.Flagged(context.Background(), "what a scam")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = m.Flagged(context.Background(), "lovely shop")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestNop(t *testing.T) {
	got, err := Nop{}.Flagged(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, got)
}
