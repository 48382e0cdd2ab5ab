package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/model"
)

type stubChannel struct {
	Base
}

func (c *stubChannel) Init(context.Context, model.JSONObject) {}

func stubDefinition(name string) *Definition {
	return &Definition{
		Name: name,
		New: func(ctx *Context) Channel {
			return &stubChannel{Base: NewBase(ctx)}
		},
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubDefinition("main")))

	def, err := r.Lookup("main")
	require.NoError(t, err)
	assert.Equal(t, "main", def.Name)
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoSuchChannel)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubDefinition("main")))

	err := r.Register(stubDefinition("main"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyRegistered)
}

func TestRegistryRejectsIncompleteDefinition(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(&Definition{Name: "broken"}))
	assert.Error(t, r.Register(stubDefinition("")))
}
