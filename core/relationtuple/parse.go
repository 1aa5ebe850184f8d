package relationtuple

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed or structurally invalid tuple. It is
// returned before any state change; the caller can fix the input and
// resubmit.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "relationtuple: " + e.Reason
}

// ParseObjectRef parses "namespace:id". Object IDs may themselves contain
// colons (file paths and the like), so only the first colon separates the
// namespace.
func ParseObjectRef(s string) (ObjectRef, error) {
	ns, id, ok := strings.Cut(s, ":")
	if !ok || ns == "" || id == "" {
		return ObjectRef{}, &ValidationError{Reason: fmt.Sprintf("invalid object reference %q, want namespace:id", s)}
	}
	return ObjectRef{Namespace: ns, ID: id}, nil
}

// ParseSubjectRef parses "namespace:id" or "namespace:id#relation".
func ParseSubjectRef(s string) (SubjectRef, error) {
	base, relation, isSet := strings.Cut(s, "#")
	obj, err := ParseObjectRef(base)
	if err != nil {
		return SubjectRef{}, err
	}
	if isSet && relation == "" {
		return SubjectRef{}, &ValidationError{Reason: fmt.Sprintf("subject set %q has an empty relation", s)}
	}
	return SubjectRef{Object: obj, Relation: relation}, nil
}

// Validate checks the structural shape of a tuple: every mandatory field
// present and free of the separator characters used by the canonical string
// form. Relation-name validation against the active rule version happens one
// layer up, at write time.
func (t Tuple) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"object namespace", t.Object.Namespace},
		{"object id", t.Object.ID},
		{"relation", t.Relation},
		{"subject namespace", t.Subject.Object.Namespace},
		{"subject id", t.Subject.Object.ID},
	} {
		if f.value == "" {
			return &ValidationError{Reason: f.name + " must not be empty"}
		}
	}
	for _, f := range []struct{ name, value string }{
		{"object namespace", t.Object.Namespace},
		{"relation", t.Relation},
		{"subject namespace", t.Subject.Object.Namespace},
		{"subject relation", t.Subject.Relation},
	} {
		if strings.ContainsAny(f.value, ":#@") {
			return &ValidationError{Reason: fmt.Sprintf("%s %q must not contain ':', '#' or '@'", f.name, f.value)}
		}
	}
	return nil
}
