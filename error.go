// File: lixenwraith/layerconf/error.go
package layerconf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by NotFoundError
	ErrNotFound = errors.New("configuration not found")
	// ErrValidation is matched by ValidationError
	ErrValidation = errors.New("configuration validation failed")
	// ErrLoader is matched by LoaderError
	ErrLoader = errors.New("configuration load failed")

	ErrDuplicateKey   = errors.New("duplicate configuration key")
	ErrImmutable      = errors.New("configuration is immutable")
	ErrTypeMismatch   = errors.New("configuration type mismatch")
	ErrAlreadyStarted = errors.New("configuration service already started")
	ErrFileTooLarge   = errors.New("configuration file too large")
)

// Issue is a single failing field reported by a schema.
type Issue struct {
	Path    string // dot-separated field path, empty for whole-object failures
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports that the merged data for a key did not satisfy its schema.
type ValidationError struct {
	Key    string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Key, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LoaderError wraps an unexpected failure while reading or extracting sources for a key.
type LoaderError struct {
	Key string
	Err error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("failed to load %q: %v", e.Key, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}

func (e *LoaderError) Is(target error) bool {
	return target == ErrLoader
}

// NotFoundError reports a key that is unregistered or never reached a loaded state.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("configuration %q not found", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// isConfigError reports whether err is already one of the recognized configuration errors.
func isConfigError(err error) bool {
	var verr *ValidationError
	var lerr *LoaderError
	var nerr *NotFoundError
	return errors.As(err, &verr) || errors.As(err, &lerr) || errors.As(err, &nerr)
}
