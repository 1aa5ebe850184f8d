// Package access is the administrative surface of the engine: it coordinates
// tuple writes, rule loading, and checks without holding logic of its own
// beyond input validation. The HTTP handlers and the facade in the root
// package are thin wrappers around Manager.
package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/getseal/seal/core/audit"
	"github.com/getseal/seal/core/check"
	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
)

// Manager wires the tuple store, rule registry, and check engine into one
// administrative API.
//
// Relation names are validated against the active rule version at write
// time, so the store only ever holds tuples the rules can interpret. The
// consequence is an ordering requirement: rule definitions must be loaded
// before the tuples that use them.
type Manager struct {
	store      relationtuple.Store
	registry   *namespace.Registry
	checker    check.Checker
	versions   namespace.VersionStore
	audits     audit.Store
	invalidate func(ctx context.Context)
	log        *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithVersionStore enables durable rule versions with rollback history.
func WithVersionStore(vs namespace.VersionStore) ManagerOption {
	return func(m *Manager) { m.versions = vs }
}

// WithAuditStore records administrative actions (tuple writes, rule loads).
func WithAuditStore(as audit.Store) ManagerOption {
	return func(m *Manager) { m.audits = as }
}

// WithInvalidator registers a hook run after any mutation, used to drop
// cached check decisions.
func WithInvalidator(fn func(ctx context.Context)) ManagerOption {
	return func(m *Manager) { m.invalidate = fn }
}

// WithLogger sets the manager's logger.
func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a manager over the given store, registry, and checker.
func NewManager(store relationtuple.Store, registry *namespace.Registry, checker check.Checker, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		checker:  checker,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WriteTuples validates and inserts a batch of tuples. Validation happens
// before any state change: on the first invalid tuple nothing is written
// and a *relationtuple.ValidationError is returned. Insertion is idempotent
// per tuple and atomic across the batch.
func (m *Manager) WriteTuples(ctx context.Context, tuples []relationtuple.Tuple) ([]relationtuple.Tuple, error) {
	for _, t := range tuples {
		if err := m.validateTuple(t); err != nil {
			return nil, err
		}
	}
	if err := m.store.WriteTuples(ctx, tuples); err != nil {
		return nil, fmt.Errorf("access: write tuples: %w", err)
	}
	m.afterMutation(ctx, "relationtuple.write", fmt.Sprintf("wrote %d tuples", len(tuples)))
	return tuples, nil
}

// DeleteTuples removes the given tuples. Deletion is idempotent; deleting
// an absent tuple is not an error. Only structural validation applies, so
// tuples written under an earlier rule version can always be removed.
func (m *Manager) DeleteTuples(ctx context.Context, tuples []relationtuple.Tuple) error {
	for _, t := range tuples {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, t := range tuples {
		if err := m.store.DeleteTuple(ctx, t); err != nil {
			return fmt.Errorf("access: delete tuple %s: %w", t.String(), err)
		}
	}
	m.afterMutation(ctx, "relationtuple.delete", fmt.Sprintf("deleted %d tuples", len(tuples)))
	return nil
}

// ListTuples returns tuples matching the filter.
func (m *Manager) ListTuples(ctx context.Context, filter relationtuple.Filter) ([]relationtuple.Tuple, error) {
	return m.store.ReadTuples(ctx, filter)
}

// ListSubjectTuples returns every tuple held by the subject, the reverse
// index used for audits.
func (m *Manager) ListSubjectTuples(ctx context.Context, subject relationtuple.SubjectRef) ([]relationtuple.Tuple, error) {
	return m.store.ReadSubjectTuples(ctx, subject)
}

// LoadSource compiles rule-language source and, on success, persists it and
// installs it as the active version. On a compile error nothing changes and
// the previous version stays in effect.
func (m *Manager) LoadSource(ctx context.Context, source string) (*namespace.RuleGraph, error) {
	graph, err := namespace.CompileSource(source)
	if err != nil {
		return nil, err
	}
	return m.install(ctx, graph)
}

// LoadDefinitions is LoadSource for the structured input form. Definitions
// are rendered to canonical source before persisting so every stored
// version has the same shape.
func (m *Manager) LoadDefinitions(ctx context.Context, defs []namespace.Definition) (*namespace.RuleGraph, error) {
	graph, err := namespace.Compile(defs)
	if err != nil {
		return nil, err
	}
	graph.Source = namespace.RenderSource(defs)
	return m.install(ctx, graph)
}

// ActivateVersion rolls the active rules back (or forward) to a previously
// persisted version.
func (m *Manager) ActivateVersion(ctx context.Context, version string) (*namespace.RuleGraph, error) {
	if m.versions == nil {
		return nil, fmt.Errorf("access: no version store configured")
	}
	source, err := m.versions.ActivateVersion(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("access: activate version %s: %w", version, err)
	}
	graph, err := namespace.CompileSource(source)
	if err != nil {
		// The stored source compiled when it was saved; failing here means
		// the stored state is corrupt.
		return nil, fmt.Errorf("access: recompile stored version %s: %w", version, err)
	}
	graph.Version = version
	m.registry.Swap(graph)
	m.afterMutation(ctx, "namespace.activate", "activated rule version "+version)
	m.log.Info("rule version activated", zap.String("version", version))
	return graph, nil
}

// RestoreActive loads the persisted active rule version into the registry.
// Called once at boot; doing nothing when no version was ever saved.
func (m *Manager) RestoreActive(ctx context.Context) error {
	if m.versions == nil {
		return nil
	}
	version, source, ok, err := m.versions.ActiveVersion(ctx)
	if err != nil {
		return fmt.Errorf("access: read active version: %w", err)
	}
	if !ok {
		return nil
	}
	graph, err := namespace.CompileSource(source)
	if err != nil {
		return fmt.Errorf("access: recompile stored version %s: %w", version, err)
	}
	graph.Version = version
	m.registry.Swap(graph)
	m.log.Info("restored active rule version", zap.String("version", version))
	return nil
}

// ListVersions returns the persisted rule version history, newest first.
func (m *Manager) ListVersions(ctx context.Context) ([]namespace.VersionInfo, error) {
	if m.versions == nil {
		return nil, nil
	}
	return m.versions.ListVersions(ctx)
}

// ActiveGraph returns the active rule graph, or nil when none is loaded.
func (m *Manager) ActiveGraph() *namespace.RuleGraph {
	return m.registry.Active()
}

// Check evaluates a permission query through the configured checker chain.
func (m *Manager) Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (check.Result, error) {
	return m.checker.Check(ctx, subject, permission, object)
}

func (m *Manager) install(ctx context.Context, graph *namespace.RuleGraph) (*namespace.RuleGraph, error) {
	if m.versions != nil {
		if err := m.versions.SaveVersion(ctx, graph.Version, graph.Source, true); err != nil {
			return nil, fmt.Errorf("access: persist rule version: %w", err)
		}
	}
	m.registry.Swap(graph)
	m.afterMutation(ctx, "namespace.reload", "loaded rule version "+graph.Version)
	m.log.Info("rule version loaded",
		zap.String("version", graph.Version),
		zap.Strings("namespaces", graph.Namespaces()),
	)
	return graph, nil
}

// validateTuple enforces the structural invariant at write time: the
// relation must be declared by the object's namespace, a traversed
// relation's subject must be a concrete object, and a subject set's
// relation must be resolvable on the subject's namespace.
func (m *Manager) validateTuple(t relationtuple.Tuple) error {
	if err := t.Validate(); err != nil {
		return err
	}
	graph := m.registry.Active()
	if graph == nil {
		return &relationtuple.ValidationError{Reason: "no active rule version; load namespace definitions first"}
	}
	ns, ok := graph.Namespace(t.Object.Namespace)
	if !ok {
		return &relationtuple.ValidationError{Reason: fmt.Sprintf("namespace %q is not declared", t.Object.Namespace)}
	}
	if !ns.HasRelation(t.Relation) {
		return &relationtuple.ValidationError{Reason: fmt.Sprintf("relation %q is not declared by namespace %q", t.Relation, t.Object.Namespace)}
	}
	if t.Subject.IsSubjectSet() {
		if ns.UsedInTraversal(t.Relation) {
			return &relationtuple.ValidationError{Reason: fmt.Sprintf("relation %q is traversed by a permission; its subject must be an object, not a subject set", t.Relation)}
		}
		subjectNS, ok := graph.Namespace(t.Subject.Object.Namespace)
		if !ok {
			return &relationtuple.ValidationError{Reason: fmt.Sprintf("subject namespace %q is not declared", t.Subject.Object.Namespace)}
		}
		if _, isPerm := subjectNS.Permission(t.Subject.Relation); !isPerm && !subjectNS.HasRelation(t.Subject.Relation) {
			return &relationtuple.ValidationError{Reason: fmt.Sprintf("subject set relation %q is not declared by namespace %q", t.Subject.Relation, t.Subject.Object.Namespace)}
		}
	}
	return nil
}

func (m *Manager) afterMutation(ctx context.Context, eventType, message string) {
	if m.invalidate != nil {
		m.invalidate(ctx)
	}
	if m.audits != nil {
		event := &audit.Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			Status:    "success",
			Message:   message,
			CreatedAt: time.Now().UTC(),
		}
		go func() {
			_ = m.audits.SaveEvent(context.Background(), event)
		}()
	}
}
