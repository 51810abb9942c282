package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterError_Is(t *testing.T) {
	err := Wrap("gemini", "embed", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrAdapter)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualError(t, err, "gemini embed failed: context deadline exceeded")

	wrapped := fmt.Errorf("embed candidate: %w", err)
	var adapterErr *AdapterError
	require.ErrorAs(t, wrapped, &adapterErr)
	assert.Equal(t, "embed", adapterErr.Op)
}

func TestWrap_KeepsExistingAdapterError(t *testing.T) {
	inner := &AdapterError{Provider: "hash", Op: "embed", Cause: errors.New("boom")}
	assert.Same(t, inner, Wrap("gemini", "reason", inner))
	assert.NoError(t, Wrap("gemini", "reason", nil))
}
