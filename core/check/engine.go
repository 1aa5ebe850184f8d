// Package check evaluates permission queries against the tuple store and
// the active rule graph.
//
// A check asks "does subject S hold permission P on object O?". The engine
// interprets the compiled expression tree for P, querying the tuple store
// for membership, expanding subject sets, and traversing relations into
// nested checks. Evaluation is read-only, bounded by a recursion depth
// guard, and fails closed: only an explicit derivation grants access.
package check

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
)

// DefaultMaxDepth bounds recursive evaluation. Tuple data is user-supplied
// and can form cycles (folder parents pointing at each other), so the guard
// is mandatory; exhausting it denies rather than hangs.
const DefaultMaxDepth = 64

// Result is the outcome of one check. DepthExceeded marks a denial caused
// by the recursion guard rather than an exhausted search; Trace, when the
// check is allowed, lists the tuples of one satisfying derivation in
// evaluation order.
type Result struct {
	Allowed       bool     `json:"allowed"`
	DepthExceeded bool     `json:"depth_exceeded,omitempty"`
	Trace         []string `json:"trace,omitempty"`
}

// Checker is anything that can answer permission checks. Engine is the
// evaluator; CachedChecker and AuditChecker wrap it.
type Checker interface {
	Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (Result, error)
}

// Engine evaluates checks against a tuple store and the rule graph held by
// a registry. Engines are stateless across checks and safe for unbounded
// concurrent use; each check captures one rule-graph snapshot at its start.
type Engine struct {
	store    relationtuple.Store
	registry *namespace.Registry
	maxDepth int
	log      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth overrides the recursion depth limit.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for diagnostics such as depth-exceeded
// denials.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates a check engine.
func NewEngine(store relationtuple.Store, registry *namespace.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		registry: registry,
		maxDepth: DefaultMaxDepth,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check evaluates whether subject holds permission on object.
//
// Structural errors (unknown namespace or permission at the top level) and
// store failures are returned as errors. A denial caused by the depth guard
// is not an error; it comes back as Allowed=false with DepthExceeded set,
// preserving fail-closed semantics.
func (e *Engine) Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (Result, error) {
	graph := e.registry.Active()
	if graph == nil {
		return Result{}, &UnknownNamespaceError{Namespace: object.Namespace}
	}
	ns, ok := graph.Namespace(object.Namespace)
	if !ok {
		return Result{}, &UnknownNamespaceError{Namespace: object.Namespace}
	}
	if _, ok := ns.Permission(permission); !ok {
		return Result{}, &UnknownPermissionError{Namespace: object.Namespace, Permission: permission}
	}

	ev := &evaluation{
		graph:      graph,
		memo:       make(map[string]memoEntry),
		inProgress: make(map[string]bool),
	}
	allowed, path, err := e.resolve(ctx, ev, subject, permission, object, e.maxDepth)
	if err != nil {
		return Result{}, err
	}

	if ev.depthExceeded {
		e.log.Warn("check hit recursion depth limit",
			zap.String("subject", subject.String()),
			zap.String("permission", permission),
			zap.String("object", object.String()),
			zap.Int("max_depth", e.maxDepth),
		)
	}
	if !allowed {
		return Result{Allowed: false, DepthExceeded: ev.depthExceeded}, nil
	}
	return Result{Allowed: true, Trace: path}, nil
}

// evaluation is the per-check state: the rule-graph snapshot, the memo table
// for completed sub-checks, and the in-progress set that breaks cycles in
// the tuple data.
type evaluation struct {
	graph         *namespace.RuleGraph
	memo          map[string]memoEntry
	inProgress    map[string]bool
	depthExceeded bool
	cycleCuts     int
}

type memoEntry struct {
	allowed bool
	path    []string
}

// resolve answers "does subject hold name on object", where name is either
// a permission (evaluate its expression) or a relation (membership scan).
// Every recursive edge of the evaluation funnels through here so the memo
// and cycle guards see all of them.
func (e *Engine) resolve(ctx context.Context, ev *evaluation, subject relationtuple.SubjectRef, name string, object relationtuple.ObjectRef, depth int) (bool, []string, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	if depth <= 0 {
		ev.depthExceeded = true
		return false, nil, nil
	}

	key := subject.String() + "#" + name + "@" + object.String()
	if entry, ok := ev.memo[key]; ok {
		return entry.allowed, entry.path, nil
	}
	if ev.inProgress[key] {
		// Same sub-check already on the stack: the tuple data is cyclic.
		// The cycle cannot contribute a new derivation here, so this branch
		// is denied. That denial holds only for the current stack; the
		// counter keeps ancestors from memoizing results built on it.
		ev.cycleCuts++
		return false, nil, nil
	}
	ev.inProgress[key] = true
	defer delete(ev.inProgress, key)

	cutsBefore := ev.cycleCuts

	ns, ok := ev.graph.Namespace(object.Namespace)
	if !ok {
		// A tuple pointed at a namespace the active rules do not declare.
		// Inside a derivation this fails closed instead of failing the
		// whole request.
		return false, nil, nil
	}

	var (
		allowed bool
		path    []string
		err     error
	)
	if expr, isPerm := ns.Permission(name); isPerm {
		allowed, path, err = e.evalExpr(ctx, ev, expr, subject, object, depth)
	} else {
		allowed, path, err = e.evalMembership(ctx, ev, subject, name, object, depth)
	}
	if err != nil {
		return false, nil, err
	}

	// Memoize only results safe to replay on any later path. A truncated
	// denial could be allowed through a shorter path, and a denial that
	// consulted an in-progress ancestor holds only for that stack. An
	// allowed result is a finite derivation and always stands.
	if !ev.depthExceeded && (allowed || ev.cycleCuts == cutsBefore) {
		ev.memo[key] = memoEntry{allowed: allowed, path: path}
	}
	return allowed, path, nil
}

// evalExpr interprets one compiled expression node.
func (e *Engine) evalExpr(ctx context.Context, ev *evaluation, expr namespace.Expr, subject relationtuple.SubjectRef, object relationtuple.ObjectRef, depth int) (bool, []string, error) {
	switch node := expr.(type) {
	case *namespace.Membership:
		return e.evalMembership(ctx, ev, subject, node.Relation, object, depth)

	case *namespace.PermissionRef:
		return e.resolve(ctx, ev, subject, node.Permission, object, depth-1)

	case *namespace.Union:
		for _, op := range node.Operands {
			allowed, path, err := e.evalExpr(ctx, ev, op, subject, object, depth)
			if err != nil {
				return false, nil, err
			}
			if allowed {
				return true, path, nil
			}
		}
		return false, nil, nil

	case *namespace.Intersection:
		var combined []string
		for _, op := range node.Operands {
			allowed, path, err := e.evalExpr(ctx, ev, op, subject, object, depth)
			if err != nil {
				return false, nil, err
			}
			if !allowed {
				return false, nil, nil
			}
			combined = append(combined, path...)
		}
		return true, combined, nil

	case *namespace.Traversal:
		return e.evalTraversal(ctx, ev, node, subject, object, depth)

	default:
		// The compiler only emits the variants above.
		return false, nil, nil
	}
}

// evalMembership checks whether subject holds the relation on object: a
// direct tuple, or membership in a subject set that holds it.
func (e *Engine) evalMembership(ctx context.Context, ev *evaluation, subject relationtuple.SubjectRef, relation string, object relationtuple.ObjectRef, depth int) (bool, []string, error) {
	tuples, err := e.readSorted(ctx, relationtuple.Filter{
		Namespace: object.Namespace,
		ObjectID:  object.ID,
		Relation:  relation,
	})
	if err != nil {
		return false, nil, err
	}

	// Direct matches first; they terminate without recursion.
	for _, t := range tuples {
		if t.Subject.Equal(subject) {
			return true, []string{t.String()}, nil
		}
	}

	// Subject sets: group:eng#member@doc:1#viewer grants viewer to anyone
	// who holds member on group:eng, so recurse with the set's relation.
	for _, t := range tuples {
		if !t.Subject.IsSubjectSet() {
			continue
		}
		allowed, path, err := e.resolve(ctx, ev, subject, t.Subject.Relation, t.Subject.Object, depth-1)
		if err != nil {
			return false, nil, err
		}
		if allowed {
			return true, append([]string{t.String()}, path...), nil
		}
	}

	return false, nil, nil
}

// evalTraversal follows the traversal relation from the object and checks
// the nested permission on every object found, succeeding on the first hit.
func (e *Engine) evalTraversal(ctx context.Context, ev *evaluation, node *namespace.Traversal, subject relationtuple.SubjectRef, object relationtuple.ObjectRef, depth int) (bool, []string, error) {
	tuples, err := e.readSorted(ctx, relationtuple.Filter{
		Namespace: object.Namespace,
		ObjectID:  object.ID,
		Relation:  node.Relation,
	})
	if err != nil {
		return false, nil, err
	}

	for _, t := range tuples {
		// Traversal tuples link objects; a subject set here is rejected at
		// write time, and a stale one is not a link.
		if t.Subject.IsSubjectSet() {
			continue
		}
		related := t.Subject.Object
		allowed, path, err := e.resolve(ctx, ev, subject, node.Permission, related, depth-1)
		if err != nil {
			return false, nil, err
		}
		if allowed {
			return true, append([]string{t.String()}, path...), nil
		}
	}
	return false, nil, nil
}

// readSorted queries the store and orders the result canonically. The
// outcome of a check never depends on iteration order, but traces must be
// reproducible within a run.
func (e *Engine) readSorted(ctx context.Context, filter relationtuple.Filter) ([]relationtuple.Tuple, error) {
	tuples, err := e.store.ReadTuples(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(tuples, func(i, j int) bool {
		return tuples[i].String() < tuples[j].String()
	})
	return tuples, nil
}

// Compile-time interface check
var _ Checker = (*Engine)(nil)
