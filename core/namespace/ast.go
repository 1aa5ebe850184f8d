// Package namespace defines the rule language for permissions and compiles
// it into the immutable rule graph consulted by the check engine.
//
// A namespace declares an object type, the relations it can hold, and named
// permissions whose rules are boolean expressions over relations, other
// permissions, and traversals:
//
//	namespace document {
//	    relation owner
//	    relation editor
//	    relation viewer
//	    relation parent: folder
//
//	    permission edit = owner | editor
//	    permission view = viewer | edit | parent->view
//	}
//
// "|" is disjunction, "&" conjunction, and "rel->perm" a traversal: for
// every object reachable from this one via rel, check perm there. A bare
// identifier refers to a relation (membership test) or another permission of
// the same namespace.
package namespace

import "strings"

// Expr is one node of a compiled permission expression. It is a closed set
// of variants evaluated by the check engine's recursive interpreter.
type Expr interface {
	isExpr()
	// String renders the expression back in rule-language syntax.
	String() string
}

// Membership tests whether the subject holds a relation on the object being
// checked, directly or through a subject set.
type Membership struct {
	Relation string
}

func (e *Membership) isExpr()        {}
func (e *Membership) String() string { return e.Relation }

// PermissionRef evaluates another permission of the same namespace on the
// same object. References may form cycles; the check engine's depth and
// visited guards keep evaluation finite.
type PermissionRef struct {
	Permission string
}

func (e *PermissionRef) isExpr()        {}
func (e *PermissionRef) String() string { return e.Permission }

// Union is a disjunction; the engine short-circuits on the first true
// operand.
type Union struct {
	Operands []Expr
}

func (e *Union) isExpr() {}
func (e *Union) String() string {
	parts := make([]string, len(e.Operands))
	for i, op := range e.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// Intersection is a conjunction; the engine short-circuits on the first
// false operand.
type Intersection struct {
	Operands []Expr
}

func (e *Intersection) isExpr() {}
func (e *Intersection) String() string {
	parts := make([]string, len(e.Operands))
	for i, op := range e.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " & ") + ")"
}

// Traversal follows Relation from the checked object and evaluates
// Permission on every object found, succeeding if any does (logical OR over
// the traversal set).
type Traversal struct {
	Relation   string
	Permission string
}

func (e *Traversal) isExpr()        {}
func (e *Traversal) String() string { return e.Relation + "->" + e.Permission }
