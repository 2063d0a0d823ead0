package photos

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Fetcher opens a photo by its chat transport reference.
type Fetcher interface {
	Fetch(ctx context.Context, photoRef string) (io.ReadCloser, error)
}

// Library is the photo store used by the bot.
type Library struct {
	blob    Blob
	fetcher Fetcher
	logger  *zap.Logger
}

func NewLibrary(blob Blob, fetcher Fetcher, logger *zap.Logger) *Library {
	return &Library{blob: blob, fetcher: fetcher, logger: logger}
}

// Store downloads photoRef and saves it as namespace/name.
func (l *Library) Store(ctx context.Context, photoRef, namespace, name string) error {
	rc, err := l.fetcher.Fetch(ctx, photoRef)
	if err != nil {
		return fmt.Errorf("fetch photo: %w", err)
	}
	defer rc.Close()

	if err := l.blob.Put(ctx, objectKey(namespace, name), rc); err != nil {
		return err
	}
	l.logger.Debug("Stored photo", zap.String("namespace", namespace), zap.String("name", name))
	return nil
}

func (l *Library) Exists(ctx context.Context, namespace, name string) (bool, error) {
	return l.blob.Exists(ctx, objectKey(namespace, name))
}

// Open returns the photo content. The caller closes it.
func (l *Library) Open(ctx context.Context, namespace, name string) (io.ReadCloser, error) {
	return l.blob.Open(ctx, objectKey(namespace, name))
}

// Remove deletes the named photos of namespace. It tries every name and
// reports all failures.
func (l *Library) Remove(ctx context.Context, namespace string, names ...string) error {
	var errs []error
	for _, name := range names {
		if err := l.blob.Delete(ctx, objectKey(namespace, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		l.logger.Debug("Removed photo", zap.String("namespace", namespace), zap.String("name", name))
	}
	return errors.Join(errs...)
}
