package photos

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FSBlob keeps photos on a filesystem under root.
type FSBlob struct {
	fs   afero.Fs
	root string
}

// NewFSBlob stores files under root on fs. Use afero.NewOsFs() for disk.
func NewFSBlob(fs afero.Fs, root string) *FSBlob {
	return &FSBlob{fs: fs, root: root}
}

func (b *FSBlob) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

func (b *FSBlob) Put(ctx context.Context, key string, r io.Reader) error {
	p := b.path(key)
	if err := b.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create photo dir: %w", err)
	}
	if err := afero.WriteReader(b.fs, p, r); err != nil {
		return fmt.Errorf("write photo %s: %w", key, err)
	}
	return nil
}

func (b *FSBlob) Exists(ctx context.Context, key string) (bool, error) {
	return afero.Exists(b.fs, b.path(key))
}

func (b *FSBlob) Delete(ctx context.Context, key string) error {
	if err := b.fs.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete photo %s: %w", key, err)
	}
	return nil
}

func (b *FSBlob) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := b.fs.Open(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("open photo %s: %w", key, err)
	}
	return f, nil
}
