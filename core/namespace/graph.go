package namespace

import (
	"time"
)

// Relation is a compiled relation declaration.
type Relation struct {
	Name    string
	Targets []string // empty means untyped
}

// Namespace is one compiled object type: its declared relations and its
// permission expressions. Read-only after compilation.
type Namespace struct {
	Name        string
	Relations   map[string]Relation
	Permissions map[string]Expr
	traversed   map[string]bool
}

// HasRelation reports whether the relation is declared.
func (n *Namespace) HasRelation(name string) bool {
	_, ok := n.Relations[name]
	return ok
}

// UsedInTraversal reports whether any permission of the namespace traverses
// the relation. Tuples on a traversed relation link objects, so their
// subject must be a concrete object rather than a subject set.
func (n *Namespace) UsedInTraversal(name string) bool {
	return n.traversed[name]
}

// Permission returns the compiled expression for the permission name.
func (n *Namespace) Permission(name string) (Expr, bool) {
	expr, ok := n.Permissions[name]
	return expr, ok
}

// RuleGraph is one immutable, versioned compilation of the full rule set.
// Checks capture a single graph at their start and never observe a mix of
// versions; the Registry swaps the active graph atomically.
type RuleGraph struct {
	Version    string
	Source     string // original rule source, retained for persistence/audit
	LoadedAt   time.Time
	namespaces map[string]*Namespace
}

// Namespace returns the compiled namespace by name.
func (g *RuleGraph) Namespace(name string) (*Namespace, bool) {
	ns, ok := g.namespaces[name]
	return ns, ok
}

// Namespaces returns the names of all compiled namespaces.
func (g *RuleGraph) Namespaces() []string {
	names := make([]string, 0, len(g.namespaces))
	for name := range g.namespaces {
		names = append(names, name)
	}
	return names
}
