package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FileURLResolver resolves a Telegram file id to a download URL.
type FileURLResolver interface {
	GetFileDirectURL(fileID string) (string, error)
}

// TelegramFetcher downloads files users sent to the bot.
type TelegramFetcher struct {
	resolver FileURLResolver
	http     *http.Client
}

func NewTelegramFetcher(resolver FileURLResolver, client *http.Client) *TelegramFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramFetcher{resolver: resolver, http: client}
}

// Fetch opens the content of fileID. The caller closes the reader.
func (f *TelegramFetcher) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := f.resolver.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	return download(ctx, f.http, url)
}

func download(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
