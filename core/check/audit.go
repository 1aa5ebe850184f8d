package check

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/getseal/seal/core/audit"
	"github.com/getseal/seal/core/relationtuple"
)

// AuditChecker records every decision as an audit event. Recording happens
// asynchronously on a detached context so it never delays or blocks the
// decision itself.
type AuditChecker struct {
	next  Checker
	store audit.Store
}

// NewAuditChecker wraps a checker with decision auditing.
func NewAuditChecker(next Checker, store audit.Store) *AuditChecker {
	return &AuditChecker{next: next, store: store}
}

func (a *AuditChecker) Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (Result, error) {
	result, err := a.next.Check(ctx, subject, permission, object)

	status := "denied"
	message := ""
	switch {
	case err != nil:
		status = "error"
		message = err.Error()
	case result.Allowed:
		status = "allowed"
	case result.DepthExceeded:
		message = "denied by recursion depth guard"
	}

	event := &audit.Event{
		ID:        uuid.NewString(),
		Type:      "check.decision",
		Subject:   subject.String(),
		Action:    permission,
		Resource:  object.String(),
		Status:    status,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	go func() {
		_ = a.store.SaveEvent(context.Background(), event)
	}()

	return result, err
}

// Compile-time interface check
var _ Checker = (*AuditChecker)(nil)
