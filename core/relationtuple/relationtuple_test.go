package relationtuple

import (
	"context"
	"errors"
	"testing"
)

func TestParseObjectRef(t *testing.T) {
	ref, err := ParseObjectRef("document:readme")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ref.Namespace != "document" || ref.ID != "readme" {
		t.Errorf("got %v", ref)
	}

	// Object IDs may contain colons; only the first separates the namespace.
	ref, err = ParseObjectRef("file:src/auth:v2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ref.Namespace != "file" || ref.ID != "src/auth:v2" {
		t.Errorf("got %v", ref)
	}

	for _, bad := range []string{"", "document", ":readme", "document:"} {
		if _, err := ParseObjectRef(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
		var verr *ValidationError
		if _, err := ParseObjectRef(bad); !errors.As(err, &verr) {
			t.Errorf("expected ValidationError for %q, got %v", bad, err)
		}
	}
}

func TestParseSubjectRef(t *testing.T) {
	sub, err := ParseSubjectRef("user:alice")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if sub.IsSubjectSet() {
		t.Error("concrete subject reported as subject set")
	}
	if sub.String() != "user:alice" {
		t.Errorf("got %q", sub.String())
	}

	sub, err = ParseSubjectRef("group:eng#member")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !sub.IsSubjectSet() {
		t.Error("subject set not recognized")
	}
	if sub.Object.Namespace != "group" || sub.Object.ID != "eng" || sub.Relation != "member" {
		t.Errorf("got %v", sub)
	}

	if _, err := ParseSubjectRef("group:eng#"); err == nil {
		t.Error("expected error for empty set relation")
	}
}

func TestTupleValidate(t *testing.T) {
	good := NewTuple("user", "alice", "viewer", "document", "readme")
	if err := good.Validate(); err != nil {
		t.Fatalf("valid tuple rejected: %v", err)
	}

	set := NewSubjectSetTuple("group", "eng", "member", "viewer", "document", "readme")
	if err := set.Validate(); err != nil {
		t.Fatalf("valid subject-set tuple rejected: %v", err)
	}

	cases := []struct {
		name  string
		tuple Tuple
	}{
		{"empty relation", NewTuple("user", "alice", "", "document", "readme")},
		{"empty namespace", NewTuple("user", "alice", "viewer", "", "readme")},
		{"empty subject id", NewTuple("user", "", "viewer", "document", "readme")},
		{"separator in relation", NewTuple("user", "alice", "view#er", "document", "readme")},
		{"separator in namespace", NewTuple("user", "alice", "viewer", "doc:ument", "readme")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.tuple.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCanonicalString(t *testing.T) {
	tuple := NewSubjectSetTuple("group", "eng", "member", "viewer", "document", "readme")
	want := "group:eng#member#viewer@document:readme"
	if tuple.String() != want {
		t.Errorf("got %q, want %q", tuple.String(), want)
	}
}

func TestMemoryStoreIdempotentWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tuple := NewTuple("user", "alice", "viewer", "document", "readme")

	if err := store.WriteTuple(ctx, tuple); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteTuple(ctx, tuple); err != nil {
		t.Fatal(err)
	}

	tuples, err := store.ReadTuples(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Errorf("duplicate write produced %d tuples", len(tuples))
	}
}

func TestMemoryStoreFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seed := []Tuple{
		NewTuple("user", "alice", "viewer", "document", "readme"),
		NewTuple("user", "bob", "editor", "document", "readme"),
		NewTuple("user", "alice", "viewer", "document", "roadmap"),
		NewSubjectSetTuple("group", "eng", "member", "viewer", "document", "readme"),
	}
	if err := store.WriteTuples(ctx, seed); err != nil {
		t.Fatal(err)
	}

	tuples, err := store.ReadTuples(ctx, Filter{Namespace: "document", ObjectID: "readme"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 3 {
		t.Errorf("object filter returned %d tuples, want 3", len(tuples))
	}

	tuples, err = store.ReadTuples(ctx, Filter{Relation: "editor"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 || tuples[0].Subject.Object.ID != "bob" {
		t.Errorf("relation filter returned %v", tuples)
	}

	tuples, err = store.ReadTuples(ctx, Filter{SubjectNS: "group", SubjectRelation: "member"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Errorf("subject-set filter returned %d tuples, want 1", len(tuples))
	}
}

func TestMemoryStoreDeleteByFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.WriteTuples(ctx, []Tuple{
		NewTuple("user", "alice", "viewer", "document", "readme"),
		NewTuple("user", "alice", "viewer", "document", "roadmap"),
		NewTuple("user", "bob", "viewer", "document", "readme"),
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTuples(ctx, Filter{SubjectID: "alice"}); err != nil {
		t.Fatal(err)
	}
	tuples, err := store.ReadTuples(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 || tuples[0].Subject.Object.ID != "bob" {
		t.Errorf("got %v after delete", tuples)
	}

	// Deleting something absent is a no-op.
	if err := store.DeleteTuple(ctx, NewTuple("user", "carol", "viewer", "document", "readme")); err != nil {
		t.Errorf("delete of missing tuple errored: %v", err)
	}

	// An empty filter must not clear the store.
	err = store.DeleteTuples(ctx, Filter{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError for empty delete filter", err)
	}
	tuples, err = store.ReadTuples(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Errorf("empty-filter delete removed tuples: %v", tuples)
	}
}

func TestMemoryStoreReadSubjectTuples(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.WriteTuples(ctx, []Tuple{
		NewTuple("user", "alice", "viewer", "document", "readme"),
		NewTuple("user", "alice", "member", "group", "eng"),
		NewTuple("user", "bob", "viewer", "document", "readme"),
	}); err != nil {
		t.Fatal(err)
	}

	tuples, err := store.ReadSubjectTuples(ctx, NewSubjectRef("user", "alice"))
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 2 {
		t.Errorf("reverse lookup returned %d tuples, want 2", len(tuples))
	}
	for _, tuple := range tuples {
		if tuple.Subject.Object.ID != "alice" {
			t.Errorf("unexpected tuple %v", tuple)
		}
	}
}

func TestMemoryStoreExists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tuple := NewTuple("user", "alice", "viewer", "document", "readme")
	if err := store.WriteTuple(ctx, tuple); err != nil {
		t.Fatal(err)
	}

	ok, err := store.TupleExists(ctx, tuple)
	if err != nil || !ok {
		t.Errorf("exists = %v, %v", ok, err)
	}
	ok, err = store.TupleExists(ctx, NewTuple("user", "bob", "viewer", "document", "readme"))
	if err != nil || ok {
		t.Errorf("missing tuple reported present")
	}
}
