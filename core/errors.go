package core

import "github.com/pkg/errors"

var (
	// ErrUnavailable is returned by repositories when the storage backend cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrUnauthenticated is returned when an action requires a caller identity.
	ErrUnauthenticated = errors.New("user not authenticated")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// IsUnavailable reports whether err was caused by unreachable storage.
func IsUnavailable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
