package stream

import (
	"github.com/c360/streamfan/errors"
)

// Definition describes one channel variant: its policy flags and its factory.
type Definition struct {
	// Name is the wire name clients connect with.
	Name string
	// ShouldShare allows a second connect request for the same name to reuse
	// the connection's existing instance instead of creating another.
	ShouldShare bool
	// RequireCredential rejects anonymous sessions.
	RequireCredential bool
	// Kind is the token scope a third-party token must carry. Empty means no
	// scope is required beyond RequireCredential.
	Kind string
	// New constructs an instance bound to the given context.
	New func(ctx *Context) Channel
}

// Registry is the fixed table of channel variants. It is populated once during
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a channel definition. Registering a duplicate name is a
// programming error.
func (r *Registry) Register(def *Definition) error {
	if def.Name == "" || def.New == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "stream", "Register", "validate definition")
	}
	if _, exists := r.defs[def.Name]; exists {
		return errors.WrapFatal(errors.ErrAlreadyRegistered, "stream", "Register", "register channel "+def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup resolves a channel name to its definition.
func (r *Registry) Lookup(name string) (*Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrNoSuchChannel, "stream", "Lookup", "resolve channel "+name)
	}
	return def, nil
}

// Names returns the registered channel names, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}
