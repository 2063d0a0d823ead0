// Package photos stores item photos in a blob backend.
//
// Photos are addressed by a namespace derived from the item name and a file name
// generated at upload time.
package photos

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open when the photo does not exist.
var ErrNotFound = errors.New("photo not found")

// Blob is a flat key/value object store.
type Blob interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Namespace turns an item name into a storage folder name.
func Namespace(itemName string) string {
	ns := unsafeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(itemName)), "_")
	ns = strings.Trim(ns, "_")
	if ns == "" {
		return "item"
	}
	return ns
}

// NewFileName returns a unique photo file name.
func NewFileName() string {
	return uuid.New().String() + ".jpg"
}

func objectKey(namespace, name string) string {
	return path.Join(namespace, name)
}
