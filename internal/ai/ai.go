// Package ai declares the external capabilities the matching pipeline
// consumes: text embedding and narrative reasoning.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/profile"
)

// ErrAdapter matches every *AdapterError via errors.Is.
var ErrAdapter = errors.New("ai adapter failure")

// Embedder turns text into a fixed-dimension vector. Implementations must
// return vectors of the same dimension for every call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reasoner produces a short narrative explaining a match. It never
// influences scores.
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (string, error)
}

type ReasoningRequest struct {
	Posting   *catalog.Posting
	Summary   string
	Candidate *profile.Candidate
	Overlap   []string
	Missing   []string
}

// AdapterError wraps failures of an external capability, including timeouts
// and malformed provider output.
type AdapterError struct {
	Provider string
	Op       string
	Cause    error
}

func (e *AdapterError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapter
}

// Wrap returns err as an *AdapterError unless it already is one.
func Wrap(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return err
	}
	return &AdapterError{Provider: provider, Op: op, Cause: err}
}
