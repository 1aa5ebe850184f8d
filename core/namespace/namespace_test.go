package namespace

import (
	"errors"
	"strings"
	"testing"
)

const docSource = `
// Document sharing rules
namespace user {}

namespace group {
    relation member: user
}

namespace folder {
    relation viewer: user | group
    permission view = viewer
}

namespace document {
    relation parent: folder
    relation viewer
    relation editor

    permission edit = editor
    permission view = viewer | edit | parent->view
}
`

func TestParseSource(t *testing.T) {
	defs, err := ParseSource(docSource)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("got %d definitions, want 4", len(defs))
	}

	doc := defs[3]
	if doc.Name != "document" {
		t.Errorf("got namespace %q", doc.Name)
	}
	if len(doc.Relations) != 3 || len(doc.Permissions) != 2 {
		t.Errorf("got %d relations, %d permissions", len(doc.Relations), len(doc.Permissions))
	}
	if doc.Relations[0].Name != "parent" || doc.Relations[0].Targets[0] != "folder" {
		t.Errorf("got relation %v", doc.Relations[0])
	}
	if doc.Relations[1].Targets != nil {
		t.Errorf("untyped relation has targets %v", doc.Relations[1].Targets)
	}
	if doc.Permissions[1].Expr != "viewer | edit | parent->view" {
		t.Errorf("got expression %q", doc.Permissions[1].Expr)
	}

	// group.member is typed.
	group := defs[1]
	if len(group.Relations) != 1 || group.Relations[0].Targets[0] != "user" {
		t.Errorf("got %v", group.Relations)
	}
}

func TestParseSourceErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		line   int
	}{
		{"nested block", "namespace a {\nnamespace b {\n}\n}", 2},
		{"unmatched close", "}\n", 1},
		{"relation outside block", "relation viewer\n", 1},
		{"permission outside block", "permission view = viewer\n", 1},
		{"bad statement", "namespace a {\nfrobnicate\n}", 2},
		{"missing expression", "namespace a {\npermission view =\n}", 2},
		{"bad relation target", "namespace a {\nrelation viewer: b c\n}", 2},
		{"unterminated block", "namespace a {\nrelation viewer", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSource(tc.source)
			var cerr *CompileError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected CompileError, got %v", err)
			}
			if cerr.Line != tc.line {
				t.Errorf("got line %d, want %d", cerr.Line, tc.line)
			}
		})
	}
}

func TestParseExpression(t *testing.T) {
	expr, err := parseExpression("viewer | editor & owner | parent->view")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	union, ok := expr.(*Union)
	if !ok {
		t.Fatalf("got %T, want *Union", expr)
	}
	if len(union.Operands) != 3 {
		t.Fatalf("got %d operands", len(union.Operands))
	}
	if _, ok := union.Operands[1].(*Intersection); !ok {
		t.Errorf("'&' did not bind tighter than '|': got %T", union.Operands[1])
	}
	trav, ok := union.Operands[2].(*Traversal)
	if !ok {
		t.Fatalf("got %T, want *Traversal", union.Operands[2])
	}
	if trav.Relation != "parent" || trav.Permission != "view" {
		t.Errorf("got traversal %v", trav)
	}

	// Parentheses override precedence.
	expr, err = parseExpression("(viewer | editor) & owner")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, ok := expr.(*Intersection); !ok {
		t.Errorf("got %T, want *Intersection", expr)
	}

	for _, bad := range []string{"", "viewer |", "| viewer", "(viewer", "viewer)", "parent->", "viewer viewer", "viewer ? editor"} {
		if _, err := parseExpression(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestCompile(t *testing.T) {
	graph, err := CompileSource(docSource)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if graph.Version == "" {
		t.Error("compiled graph has no version")
	}
	if graph.Source == "" {
		t.Error("compiled graph lost its source")
	}

	doc, ok := graph.Namespace("document")
	if !ok {
		t.Fatal("document namespace missing")
	}
	view, ok := doc.Permission("view")
	if !ok {
		t.Fatal("view permission missing")
	}
	union, ok := view.(*Union)
	if !ok || len(union.Operands) != 3 {
		t.Fatalf("got %v", view)
	}
	if m, ok := union.Operands[0].(*Membership); !ok || m.Relation != "viewer" {
		t.Errorf("bare relation resolved to %T %v", union.Operands[0], union.Operands[0])
	}
	if p, ok := union.Operands[1].(*PermissionRef); !ok || p.Permission != "edit" {
		t.Errorf("permission reference resolved to %T %v", union.Operands[1], union.Operands[1])
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		detail string
	}{
		{"empty", "", "no namespace definitions"},
		{"duplicate namespace", "namespace a {}\nnamespace a {}", "duplicate namespace"},
		{"duplicate relation", "namespace a {\nrelation r\nrelation r\n}", "duplicate relation"},
		{"duplicate permission", "namespace a {\nrelation r\npermission p = r\npermission p = r\n}", "duplicate permission"},
		{"relation permission collision", "namespace a {\nrelation x\npermission x = x\n}", "both a relation and a permission"},
		{"undeclared target", "namespace a {\nrelation r: ghost\n}", "undeclared namespace"},
		{"unresolved identifier", "namespace a {\npermission p = ghost\n}", "neither a declared relation nor a permission"},
		{"undeclared traversal relation", "namespace a {\npermission p = ghost->view\n}", "undeclared relation"},
		{"traversal target lacks permission", "namespace a {}\nnamespace b {\nrelation parent: a\npermission p = parent->view\n}", "does not define permission"},
		{"traversal permission nowhere", "namespace b {\nrelation parent\npermission p = parent->view\n}", "not defined by any namespace"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileSource(tc.source)
			var cerr *CompileError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected CompileError, got %v", err)
			}
			if !strings.Contains(cerr.Detail, tc.detail) {
				t.Errorf("detail %q does not mention %q", cerr.Detail, tc.detail)
			}
		})
	}
}

func TestCompileUntypedTraversal(t *testing.T) {
	// An untyped relation may traverse into any namespace that defines the
	// permission.
	source := `
namespace folder {
    relation viewer
    permission view = viewer
}
namespace document {
    relation parent
    permission view = parent->view
}
`
	if _, err := CompileSource(source); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
}

func TestRenderSourceRoundTrip(t *testing.T) {
	defs, err := ParseSource(docSource)
	if err != nil {
		t.Fatal(err)
	}
	rendered := RenderSource(defs)

	again, err := ParseSource(rendered)
	if err != nil {
		t.Fatalf("rendered source does not parse: %v\n%s", err, rendered)
	}
	if RenderSource(again) != rendered {
		t.Error("rendering is not a fixed point")
	}
	if _, err := Compile(again); err != nil {
		t.Fatalf("rendered source does not compile: %v", err)
	}
}

func TestRegistrySwap(t *testing.T) {
	reg := NewRegistry()
	if reg.Active() != nil {
		t.Error("fresh registry has an active graph")
	}

	first, err := CompileSource("namespace a {\nrelation r\npermission p = r\n}")
	if err != nil {
		t.Fatal(err)
	}
	reg.Swap(first)
	if got := reg.Active(); got != first {
		t.Error("active graph is not the swapped one")
	}

	second, err := CompileSource("namespace b {\nrelation r\npermission p = r\n}")
	if err != nil {
		t.Fatal(err)
	}
	reg.Swap(second)
	active := reg.Active()
	if active != second {
		t.Error("swap did not replace the active graph")
	}
	if _, ok := active.Namespace("a"); ok {
		t.Error("old namespace visible after swap")
	}
	// The first graph itself is untouched.
	if _, ok := first.Namespace("a"); !ok {
		t.Error("replaced graph was mutated")
	}
}
