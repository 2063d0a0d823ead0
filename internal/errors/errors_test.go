package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInput(t *testing.T) {
	err := fmt.Errorf("step age: %w", NewInvalidInput("Wrong number format"))

	msg, ok := IsInvalidInput(err)
	assert.True(t, ok)
	assert.Equal(t, "Wrong number format", msg)

	_, ok = IsInvalidInput(ErrNotFound)
	assert.False(t, ok)
}

func TestAbortUnwrap(t *testing.T) {
	err := NewAbort("No such category with this name.", ErrNotFound)

	msg, ok := IsAbort(err)
	assert.True(t, ok)
	assert.Equal(t, "No such category with this name.", msg)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "entity not found")
}

func TestNewPersistence(t *testing.T) {
	assert.Nil(t, NewPersistence("create category", nil))

	cause := errors.New("commit failed")
	err := NewPersistence("create category", cause)

	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "create category", pe.Op)
	assert.True(t, errors.Is(err, cause))
}

func TestIsCatalogInvariant(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"empty", ErrPhotoSetEmpty, true},
		{"too many", fmt.Errorf("item hats: %w", ErrTooManyPhotos), true},
		{"missing", ErrPhotosMissing, true},
		{"not found", ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCatalogInvariant(tt.err))
		})
	}
}
