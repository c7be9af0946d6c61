package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidAIResponseTruncatesRaw(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	err := NewInvalidAIResponseError("unparseable", raw, nil)

	require.True(t, IsInvalidAIResponse(err))
	assert.Equal(t, "INVALID_AI_RESPONSE", err.Code)
	excerpt, ok := err.Details["raw"].(string)
	require.True(t, ok)
	assert.Len(t, []rune(excerpt), maxRawExcerpt+3)
	assert.True(t, strings.HasSuffix(excerpt, "..."))
}

func TestWrapErrorKeepsTypeAndDetails(t *testing.T) {
	base := NewOutOfBoundsError("footprint too large", nil).WithDetail("item_index", 2)
	wrapped := WrapError(fmt.Errorf("ingest: %w", base), "generation failed", ErrorTypeError)

	assert.True(t, IsOutOfBoundsError(wrapped))
	var appErr *AppError
	require.True(t, stderrors.As(wrapped, &appErr))
	assert.Equal(t, 2, appErr.Details["item_index"])
	assert.Contains(t, wrapped.Error(), "generation failed")
}

func TestWrapErrorPlain(t *testing.T) {
	assert.Nil(t, WrapError(nil, "noop", ErrorTypeError))

	wrapped := WrapError(stderrors.New("disk full"), "save plan", ErrorTypeError)
	assert.Equal(t, ErrorTypeError, TypeOf(wrapped))
	assert.False(t, IsConflictError(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))
}
