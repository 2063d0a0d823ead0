package photos

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver map[string]string

func (r stubResolver) GetFileDirectURL(fileID string) (string, error) {
	url, ok := r[fileID]
	if !ok {
		return "", errors.New("unknown file")
	}
	return url, nil
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RedCap", "redcap"},
		{"  Winter Coat  ", "winter_coat"},
		{"../../etc", "etc"},
		{"Шапка-ушанка", "шапка-ушанка"},
		{"!!!", "item"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Namespace(tt.in))
		})
	}
}

func TestNewFileNameIsUnique(t *testing.T) {
	a, b := NewFileName(), NewFileName()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".jpg"))
}

func TestFSBlob(t *testing.T) {
	ctx := context.Background()
	blob := NewFSBlob(afero.NewMemMapFs(), "/photos")

	ok, err := blob.Exists(ctx, "redcap/1.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = blob.Open(ctx, "redcap/1.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, blob.Put(ctx, "redcap/1.jpg", strings.NewReader("jpeg")))

	ok, err = blob.Exists(ctx, "redcap/1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := blob.Open(ctx, "redcap/1.jpg")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
}

func TestFSBlobDelete(t *testing.T) {
	ctx := context.Background()
	blob := NewFSBlob(afero.NewMemMapFs(), "/photos")

	require.NoError(t, blob.Put(ctx, "redcap/1.jpg", strings.NewReader("jpeg")))
	require.NoError(t, blob.Delete(ctx, "redcap/1.jpg"))

	ok, err := blob.Exists(ctx, "redcap/1.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, blob.Delete(ctx, "redcap/1.jpg"))
}

func TestTelegramFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/photo.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("content"))
	}))
	defer srv.Close()

	fetcher := NewTelegramFetcher(stubResolver{
		"ok":      srv.URL + "/file/photo.jpg",
		"missing": srv.URL + "/file/none.jpg",
	}, srv.Client())

	rc, err := fetcher.Fetch(context.Background(), "ok")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "content", string(data))

	_, err = fetcher.Fetch(context.Background(), "missing")
	assert.Error(t, err)

	_, err = fetcher.Fetch(context.Background(), "unknown")
	assert.Error(t, err)
}

type stubFetcher map[string]string

func (f stubFetcher) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	content, ok := f[ref]
	if !ok {
		return nil, errors.New("no such photo")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestLibraryStoreAndOpen(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(NewFSBlob(afero.NewMemMapFs(), "photos"), stubFetcher{"file-1": "img"}, zap.NewNop())

	require.NoError(t, lib.Store(ctx, "file-1", "redcap", "a.jpg"))
	assert.Error(t, lib.Store(ctx, "file-2", "redcap", "b.jpg"))

	ok, err := lib.Exists(ctx, "redcap", "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lib.Exists(ctx, "redcap", "b.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	rc, err := lib.Open(ctx, "redcap", "a.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "img", string(data))
}

func TestLibraryRemove(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(NewFSBlob(afero.NewMemMapFs(), "photos"), stubFetcher{"file-1": "img"}, zap.NewNop())

	require.NoError(t, lib.Store(ctx, "file-1", "redcap", "a.jpg"))
	require.NoError(t, lib.Store(ctx, "file-1", "redcap", "b.jpg"))

	require.NoError(t, lib.Remove(ctx, "redcap", "a.jpg", "b.jpg", "never-stored.jpg"))

	for _, name := range []string{"a.jpg", "b.jpg"} {
		ok, err := lib.Exists(ctx, "redcap", name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
}
