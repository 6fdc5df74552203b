package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for a missing or blank query.
var ErrInvalidInput = errors.New("invalid input")

// RetrievalError reports a failed call to a retrieval source.
// StatusCode is zero when no HTTP response was received.
type RetrievalError struct {
	Retriever  string
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("retrieval %s: status %d: %v", e.Retriever, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("retrieval %s: %v", e.Retriever, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError reports a failed model invocation.
type GenerationError struct {
	Generator string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Generator, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
