// Package errors defines the error taxonomy shared by the bot handlers,
// the conversation state machine and the storage layer.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Check them with errors.Is.
var (
	// ErrNotFound indicates a user, category, item or feedback does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists indicates a unique name is already taken.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrMalformedToken indicates a callback token does not match the expected pattern.
	ErrMalformedToken = errors.New("malformed callback token")

	// ErrPermissionDenied indicates a non-admin invoked an admin operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPhotoSetEmpty indicates an item or category has nothing to show.
	ErrPhotoSetEmpty = errors.New("photo set is empty")

	// ErrTooManyPhotos indicates more than nine photos where at most nine are allowed.
	ErrTooManyPhotos = errors.New("too many photos")

	// ErrPhotosMissing indicates a referenced photo is absent from the blob store.
	ErrPhotosMissing = errors.New("photos missing")
)

// InvalidInputError is returned by step validators when the user should be asked again.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Message
}

// NewInvalidInput creates an InvalidInputError carrying the reply for the user.
func NewInvalidInput(message string) *InvalidInputError {
	return &InvalidInputError{Message: message}
}

// AbortError stops a flow and tells the user why.
type AbortError struct {
	Message string
	Err     error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aborted: %s: %v", e.Message, e.Err)
	}
	return "aborted: " + e.Message
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// NewAbort creates an AbortError with a user-facing message.
func NewAbort(message string, err error) *AbortError {
	return &AbortError{Message: message, Err: err}
}

// PersistenceError wraps a failed transactional write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistence wraps err as a PersistenceError. Returns nil if err is nil.
func NewPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsInvalidInput reports whether err asks for a re-prompt and returns its message.
func IsInvalidInput(err error) (string, bool) {
	var inv *InvalidInputError
	if errors.As(err, &inv) {
		return inv.Message, true
	}
	return "", false
}

// IsAbort reports whether err is an AbortError and returns its user message.
func IsAbort(err error) (string, bool) {
	var ab *AbortError
	if errors.As(err, &ab) {
		return ab.Message, true
	}
	return "", false
}

// IsCatalogInvariant reports whether err breaks the 1..9 photos rule.
func IsCatalogInvariant(err error) bool {
	return errors.Is(err, ErrPhotoSetEmpty) || errors.Is(err, ErrTooManyPhotos) || errors.Is(err, ErrPhotosMissing)
}
