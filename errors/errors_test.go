package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Connection", "Init", "fetch user state")
	require.Error(t, err)
	assert.Equal(t, "Connection.Init: fetch user state failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestClassifiedWrapping(t *testing.T) {
	base := stderrors.New("boom")

	err := WrapInvalid(base, "Registry", "Lookup", "resolve channel name")
	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Registry", ce.Component)
	assert.True(t, stderrors.Is(err, base))

	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.False(t, IsFatal(err))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrConnectionLost))
	assert.True(t, IsTransient(ErrConnectionTimeout))
	assert.True(t, IsTransient(context.Canceled))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: network is unreachable")))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(WrapFatal(stderrors.New("bad"), "c", "m", "a")))
}

func TestIsInvalidSentinels(t *testing.T) {
	assert.True(t, IsInvalid(ErrNoSuchChannel))
	assert.True(t, IsInvalid(fmt.Errorf("wrapped: %w", ErrParsingFailed)))
	assert.False(t, IsInvalid(nil))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(ErrNoSuchChannel))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("some opaque failure")))
	assert.Equal(t, ErrorTransient, Classify(nil))
}
