package namespace

import (
	"sync/atomic"
)

// Registry holds the active rule graph. Swapping versions is atomic: a check
// that captured a graph keeps using it for its whole invocation, so an
// in-flight check never sees half-old, half-new rules.
type Registry struct {
	active atomic.Pointer[RuleGraph]
}

// NewRegistry creates a registry with no active rule graph. Checks against
// an empty registry fail with an unknown-namespace error.
func NewRegistry() *Registry {
	return &Registry{}
}

// Active returns the current rule graph, or nil if none has been loaded.
func (r *Registry) Active() *RuleGraph {
	return r.active.Load()
}

// Swap installs the graph as the active version and returns the previous
// one (nil on first load).
func (r *Registry) Swap(graph *RuleGraph) *RuleGraph {
	return r.active.Swap(graph)
}
