package stf

import (
	"fmt"
	"sync"

	"github.com/clearsync/sequencer/state"
	"github.com/clearsync/sequencer/types"
)

// Context is passed to every Handler: the working state, the tx being
// applied, and the block timestamp it is applied under.
type Context struct {
	State     *state.State
	Tx        *types.Tx
	Timestamp uint64
}

// Handler implements one TxKind's STF semantics, registered into a
// shared plugin-style registry keyed by kind.
type Handler func(ctx *Context) error

// Registry maps TxKind to Handler. Thread-safe for concurrent registration,
// though in practice registration happens once at package init.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.TxKind]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.TxKind]Handler)}
}

// Register associates kind with h. Panics on duplicate registration.
func (r *Registry) Register(kind types.TxKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("stf: handler already registered for TxKind %q", kind))
	}
	r.handlers[kind] = h
}

// Execute dispatches ctx to the handler registered for kind.
func (r *Registry) Execute(kind types.TxKind, ctx *Context) error {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("stf: no handler registered for TxKind %q", kind)
	}
	return h(ctx)
}

// globalRegistry is populated by this package's own init() (handlers.go)
// with the five settlement-kind handlers.
var globalRegistry = NewRegistry()
