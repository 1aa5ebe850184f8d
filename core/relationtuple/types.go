// Package relationtuple holds the ground facts of the authorization graph.
//
// A relation tuple links a subject to an object via a named relation:
//
//	user:patrik#member@group:developer
//
// reads as "user:patrik has relation member on group:developer". Subjects can
// be concrete objects or subject sets ("group:developer#member" expands to
// every holder of member on group:developer). Tuples are the only mutable
// authorization state; everything else is derived from them at check time.
package relationtuple

// ObjectRef is a typed reference to an object, e.g. "document:readme" or
// "user:alice". The type must name a namespace declared by the active rule
// version.
type ObjectRef struct {
	Namespace string `json:"namespace"`
	ID        string `json:"object"`
}

// String returns the canonical form "namespace:id".
func (o ObjectRef) String() string {
	return o.Namespace + ":" + o.ID
}

// SubjectRef is the subject side of a tuple. With an empty Relation it names
// a concrete subject ("user:alice"); with a Relation set it is a subject set
// ("group:eng#member"), an indirection expanding to all holders of that
// relation on the referenced object.
type SubjectRef struct {
	Object   ObjectRef `json:"object"`
	Relation string    `json:"relation,omitempty"`
}

// String returns "namespace:id" or "namespace:id#relation" for subject sets.
func (s SubjectRef) String() string {
	if s.Relation == "" {
		return s.Object.String()
	}
	return s.Object.String() + "#" + s.Relation
}

// IsSubjectSet reports whether the subject is an indirection rather than a
// concrete object.
func (s SubjectRef) IsSubjectSet() bool {
	return s.Relation != ""
}

// Equal reports whether two subject references denote the same subject.
func (s SubjectRef) Equal(other SubjectRef) bool {
	return s.Object == other.Object && s.Relation == other.Relation
}

// Tuple is one relationship fact: (subject, relation, object). The full
// tuple is its own uniqueness key; inserting the same tuple twice is a
// no-op.
type Tuple struct {
	Subject  SubjectRef `json:"subject"`
	Relation string     `json:"relation"`
	Object   ObjectRef  `json:"object"`
}

// String returns the canonical form "subject#relation@object", e.g.
// "group:eng#member#viewer@document:readme".
func (t Tuple) String() string {
	return t.Subject.String() + "#" + t.Relation + "@" + t.Object.String()
}

// Equal reports whether two tuples are the same fact.
func (t Tuple) Equal(other Tuple) bool {
	return t.Subject.Equal(other.Subject) &&
		t.Relation == other.Relation &&
		t.Object == other.Object
}

// Filter selects tuples by exact field match. Empty fields match anything;
// non-empty fields are ANDed. There is deliberately no pattern matching.
type Filter struct {
	Namespace       string `json:"namespace,omitempty"        query:"namespace"`
	ObjectID        string `json:"object,omitempty"           query:"object"`
	Relation        string `json:"relation,omitempty"         query:"relation"`
	SubjectNS       string `json:"subject_namespace,omitempty" query:"subject_namespace"`
	SubjectID       string `json:"subject_object,omitempty"    query:"subject_object"`
	SubjectRelation string `json:"subject_relation,omitempty"  query:"subject_relation"`
}

// Empty reports whether no filter field is set.
func (f Filter) Empty() bool {
	return f == Filter{}
}

// Matches reports whether the tuple satisfies every non-empty filter field.
func (f Filter) Matches(t Tuple) bool {
	if f.Namespace != "" && t.Object.Namespace != f.Namespace {
		return false
	}
	if f.ObjectID != "" && t.Object.ID != f.ObjectID {
		return false
	}
	if f.Relation != "" && t.Relation != f.Relation {
		return false
	}
	if f.SubjectNS != "" && t.Subject.Object.Namespace != f.SubjectNS {
		return false
	}
	if f.SubjectID != "" && t.Subject.Object.ID != f.SubjectID {
		return false
	}
	if f.SubjectRelation != "" && t.Subject.Relation != f.SubjectRelation {
		return false
	}
	return true
}

// NewObjectRef creates an ObjectRef.
func NewObjectRef(namespace, id string) ObjectRef {
	return ObjectRef{Namespace: namespace, ID: id}
}

// NewSubjectRef creates a concrete (non-set) subject reference.
func NewSubjectRef(namespace, id string) SubjectRef {
	return SubjectRef{Object: ObjectRef{Namespace: namespace, ID: id}}
}

// NewSubjectSet creates a subject-set reference.
func NewSubjectSet(namespace, id, relation string) SubjectRef {
	return SubjectRef{
		Object:   ObjectRef{Namespace: namespace, ID: id},
		Relation: relation,
	}
}

// NewTuple creates a tuple with a concrete subject.
func NewTuple(subjectNS, subjectID, relation, namespace, objectID string) Tuple {
	return Tuple{
		Subject:  NewSubjectRef(subjectNS, subjectID),
		Relation: relation,
		Object:   NewObjectRef(namespace, objectID),
	}
}

// NewSubjectSetTuple creates a tuple whose subject is a subject set.
func NewSubjectSetTuple(subjectNS, subjectID, subjectRelation, relation, namespace, objectID string) Tuple {
	return Tuple{
		Subject:  NewSubjectSet(subjectNS, subjectID, subjectRelation),
		Relation: relation,
		Object:   NewObjectRef(namespace, objectID),
	}
}
