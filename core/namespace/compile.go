package namespace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CompileSource parses and compiles rule-language source in one step. This
// is what the Administrative API calls for POST /namespaces with a source
// body.
func CompileSource(source string) (*RuleGraph, error) {
	defs, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	graph, err := Compile(defs)
	if err != nil {
		return nil, err
	}
	graph.Source = source
	return graph, nil
}

// Compile validates a set of namespace definitions and produces an immutable
// RuleGraph. It fails with *CompileError on duplicate declarations,
// expressions that do not parse, and references to undeclared namespaces,
// relations, or permissions. Cycles between permissions are structurally
// legal and left to the check engine's depth and visited guards.
func Compile(defs []Definition) (*RuleGraph, error) {
	if len(defs) == 0 {
		return nil, &CompileError{Detail: "no namespace definitions given"}
	}

	graph := &RuleGraph{
		Version:    uuid.NewString(),
		LoadedAt:   time.Now().UTC(),
		namespaces: make(map[string]*Namespace, len(defs)),
	}

	// First pass: declare namespaces, relations, and permission names so
	// expressions can reference forward and across namespaces.
	declaredPerms := make(map[string]map[string]bool, len(defs))
	for _, def := range defs {
		if !isIdentifier(def.Name) {
			return nil, &CompileError{Detail: fmt.Sprintf("invalid namespace name %q", def.Name)}
		}
		if _, dup := graph.namespaces[def.Name]; dup {
			return nil, &CompileError{Namespace: def.Name, Detail: "duplicate namespace declaration"}
		}
		ns := &Namespace{
			Name:        def.Name,
			Relations:   make(map[string]Relation, len(def.Relations)),
			Permissions: make(map[string]Expr, len(def.Permissions)),
			traversed:   make(map[string]bool),
		}
		perms := make(map[string]bool, len(def.Permissions))
		for _, rel := range def.Relations {
			if !isIdentifier(rel.Name) {
				return nil, &CompileError{Namespace: def.Name, Detail: fmt.Sprintf("invalid relation name %q", rel.Name)}
			}
			if ns.HasRelation(rel.Name) {
				return nil, &CompileError{Namespace: def.Name, Detail: fmt.Sprintf("duplicate relation %q", rel.Name)}
			}
			ns.Relations[rel.Name] = Relation{Name: rel.Name, Targets: rel.Targets}
		}
		for _, perm := range def.Permissions {
			if !isIdentifier(perm.Name) {
				return nil, &CompileError{Namespace: def.Name, Detail: fmt.Sprintf("invalid permission name %q", perm.Name)}
			}
			if perms[perm.Name] {
				return nil, &CompileError{Namespace: def.Name, Detail: fmt.Sprintf("duplicate permission %q", perm.Name)}
			}
			if ns.HasRelation(perm.Name) {
				return nil, &CompileError{Namespace: def.Name, Detail: fmt.Sprintf("%q is declared as both a relation and a permission", perm.Name)}
			}
			perms[perm.Name] = true
		}
		graph.namespaces[def.Name] = ns
		declaredPerms[def.Name] = perms
	}

	// Second pass: relation targets must name declared namespaces.
	for _, def := range defs {
		for _, rel := range def.Relations {
			for _, target := range rel.Targets {
				if _, ok := graph.namespaces[target]; !ok {
					return nil, &CompileError{
						Namespace: def.Name,
						Detail:    fmt.Sprintf("relation %q targets undeclared namespace %q", rel.Name, target),
					}
				}
			}
		}
	}

	// Third pass: parse and resolve permission expressions.
	for _, def := range defs {
		ns := graph.namespaces[def.Name]
		for _, perm := range def.Permissions {
			raw, err := parseExpression(perm.Expr)
			if err != nil {
				return nil, &CompileError{
					Namespace: def.Name,
					Detail:    fmt.Sprintf("permission %q: %v", perm.Name, err),
				}
			}
			resolved, err := resolveExpr(raw, ns, declaredPerms, graph)
			if err != nil {
				return nil, &CompileError{
					Namespace: def.Name,
					Detail:    fmt.Sprintf("permission %q: %v", perm.Name, err),
				}
			}
			ns.Permissions[perm.Name] = resolved
			collectTraversals(resolved, ns.traversed)
		}
	}

	return graph, nil
}

// collectTraversals marks every relation the expression traverses.
func collectTraversals(expr Expr, rels map[string]bool) {
	switch e := expr.(type) {
	case *Union:
		for _, op := range e.Operands {
			collectTraversals(op, rels)
		}
	case *Intersection:
		for _, op := range e.Operands {
			collectTraversals(op, rels)
		}
	case *Traversal:
		rels[e.Relation] = true
	}
}

// resolveExpr binds bare identifiers to relations or permissions and
// validates traversals against declarations.
func resolveExpr(expr Expr, ns *Namespace, declaredPerms map[string]map[string]bool, graph *RuleGraph) (Expr, error) {
	switch e := expr.(type) {
	case *identExpr:
		if ns.HasRelation(e.name) {
			return &Membership{Relation: e.name}, nil
		}
		if declaredPerms[ns.Name][e.name] {
			return &PermissionRef{Permission: e.name}, nil
		}
		return nil, fmt.Errorf("%q is neither a declared relation nor a permission of namespace %q", e.name, ns.Name)

	case *Union:
		operands := make([]Expr, len(e.Operands))
		for i, op := range e.Operands {
			resolved, err := resolveExpr(op, ns, declaredPerms, graph)
			if err != nil {
				return nil, err
			}
			operands[i] = resolved
		}
		return &Union{Operands: operands}, nil

	case *Intersection:
		operands := make([]Expr, len(e.Operands))
		for i, op := range e.Operands {
			resolved, err := resolveExpr(op, ns, declaredPerms, graph)
			if err != nil {
				return nil, err
			}
			operands[i] = resolved
		}
		return &Intersection{Operands: operands}, nil

	case *Traversal:
		rel, ok := ns.Relations[e.Relation]
		if !ok {
			return nil, fmt.Errorf("traversal via undeclared relation %q", e.Relation)
		}
		if err := validateTraversalPermission(rel, e.Permission, declaredPerms); err != nil {
			return nil, err
		}
		return &Traversal{Relation: e.Relation, Permission: e.Permission}, nil

	default:
		return nil, fmt.Errorf("unexpected expression node %T", expr)
	}
}

// validateTraversalPermission checks that a traversal's nested permission is
// defined somewhere it could conceivably be evaluated. For typed relations
// every target namespace must declare the permission; untyped relations can
// reach any object, so it only has to exist in at least one namespace.
func validateTraversalPermission(rel Relation, permission string, declaredPerms map[string]map[string]bool) error {
	if len(rel.Targets) > 0 {
		for _, target := range rel.Targets {
			if !declaredPerms[target][permission] {
				return fmt.Errorf("traversal %s->%s: namespace %q does not define permission %q",
					rel.Name, permission, target, permission)
			}
		}
		return nil
	}
	for _, perms := range declaredPerms {
		if perms[permission] {
			return nil
		}
	}
	return fmt.Errorf("traversal %s->%s: permission %q is not defined by any namespace",
		rel.Name, permission, permission)
}
