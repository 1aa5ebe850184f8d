package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/getseal/seal/core/access"
	"github.com/getseal/seal/core/audit"
	"github.com/getseal/seal/core/check"
	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
)

// fakeVersionStore implements namespace.VersionStore in memory.
type fakeVersionStore struct {
	sources map[string]string
	order   []string
	active  string
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{sources: make(map[string]string)}
}

func (s *fakeVersionStore) SaveVersion(ctx context.Context, version, source string, activate bool) error {
	if _, ok := s.sources[version]; !ok {
		s.order = append(s.order, version)
	}
	s.sources[version] = source
	if activate {
		s.active = version
	}
	return nil
}

func (s *fakeVersionStore) ActivateVersion(ctx context.Context, version string) (string, error) {
	source, ok := s.sources[version]
	if !ok {
		return "", fmt.Errorf("version %s not found", version)
	}
	s.active = version
	return source, nil
}

func (s *fakeVersionStore) ActiveVersion(ctx context.Context) (string, string, bool, error) {
	if s.active == "" {
		return "", "", false, nil
	}
	return s.active, s.sources[s.active], true, nil
}

func (s *fakeVersionStore) ListVersions(ctx context.Context) ([]namespace.VersionInfo, error) {
	infos := make([]namespace.VersionInfo, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		v := s.order[i]
		infos = append(infos, namespace.VersionInfo{Version: v, Active: v == s.active, CreatedAt: time.Now()})
	}
	return infos, nil
}

func newTestServer(t *testing.T) (*echo.Echo, *access.Manager) {
	t.Helper()
	registry := namespace.NewRegistry()
	store := relationtuple.NewMemoryStore()
	engine := check.NewEngine(store, registry)
	manager := access.NewManager(store, registry, engine)

	h := NewHandler(manager)
	h.SetAuditStore(audit.NewMemoryStore())

	e := echo.New()
	g := e.Group("/api/v1")
	h.RegisterRoutes(g)
	return e, manager
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAPIIntegration(t *testing.T) {
	e, _ := newTestServer(t)

	// 1. Load rule definitions
	source := `
namespace user {}

namespace group {
    relation member: user
}

namespace document {
    relation viewer
    permission view = viewer
}
`
	rec := doJSON(t, e, http.MethodPost, "/api/v1/namespaces", map[string]string{"source": source})
	if rec.Code != http.StatusOK {
		t.Fatalf("namespace load failed with code %d: %s", rec.Code, rec.Body.String())
	}
	var loaded struct {
		Version    string   `json:"version"`
		Namespaces []string `json:"namespaces"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Version == "" || len(loaded.Namespaces) != 3 {
		t.Fatalf("got %+v", loaded)
	}

	// 2. Write tuples: alice directly, bob through the group
	tuples := []TupleBody{
		{Namespace: "document", Object: "readme", Relation: "viewer", SubjectID: "user:alice"},
		{Namespace: "group", Object: "eng", Relation: "member", SubjectID: "user:bob"},
		{Namespace: "document", Object: "readme", Relation: "viewer",
			SubjectSet: &SubjectSetBody{Namespace: "group", Object: "eng", Relation: "member"}},
	}
	rec = doJSON(t, e, http.MethodPut, "/api/v1/relation-tuples", tuples)
	if rec.Code != http.StatusCreated {
		t.Fatalf("tuple write failed with code %d: %s", rec.Code, rec.Body.String())
	}

	// 3. Check decisions
	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=user:alice&permission=view&object=document:readme", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check failed with code %d: %s", rec.Code, rec.Body.String())
	}
	var result check.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Error("alice should view the document")
	}
	if len(result.Trace) == 0 {
		t.Error("allowed check returned no trace")
	}

	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=user:bob&permission=view&object=document:readme", nil)
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.Allowed {
		t.Error("bob should view through the group")
	}

	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=user:mallory&permission=view&object=document:readme", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("denied check must still be 200, got %d", rec.Code)
	}
	result = check.Result{Allowed: true}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Allowed {
		t.Error("mallory must be denied")
	}

	// 4. List and filter tuples
	rec = doJSON(t, e, http.MethodGet, "/api/v1/relation-tuples?namespace=document", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed with code %d", rec.Code)
	}
	var listed []TupleBody
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Errorf("got %d document tuples, want 2", len(listed))
	}

	// 5. Reverse index
	rec = doJSON(t, e, http.MethodGet, "/api/v1/relation-tuples/reverse?subject=user:bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reverse lookup failed with code %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &listed)
	if len(listed) != 1 || listed[0].Namespace != "group" {
		t.Errorf("got %v", listed)
	}

	// 6. Delete and re-check
	rec = doJSON(t, e, http.MethodDelete, "/api/v1/relation-tuples", []TupleBody{
		{Namespace: "document", Object: "readme", Relation: "viewer", SubjectID: "user:alice"},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete failed with code %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=user:alice&permission=view&object=document:readme", nil)
	result = check.Result{Allowed: true}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Allowed {
		t.Error("alice still allowed after tuple deletion")
	}

	// 7. Active version endpoint
	rec = doJSON(t, e, http.MethodGet, "/api/v1/namespaces", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active version failed with code %d", rec.Code)
	}
	var active struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatal(err)
	}
	if active.Version != loaded.Version || active.Source == "" {
		t.Errorf("got %+v", active)
	}
}

func TestAPIValidationErrors(t *testing.T) {
	e, _ := newTestServer(t)

	// Writes before any rules are loaded are rejected.
	rec := doJSON(t, e, http.MethodPut, "/api/v1/relation-tuples", []TupleBody{
		{Namespace: "document", Object: "readme", Relation: "viewer", SubjectID: "user:alice"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("write without rules returned %d, want 400", rec.Code)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/v1/namespaces", map[string]string{
		"source": "namespace doc {\npermission view = ghost\n}",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("compile error returned %d, want 400", rec.Code)
	}
	var compileResp struct {
		Error string `json:"error"`
		Line  int    `json:"line"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &compileResp); err != nil {
		t.Fatal(err)
	}
	if compileResp.Error == "" {
		t.Error("compile error response has no detail")
	}

	// Empty load body.
	rec = doJSON(t, e, http.MethodPost, "/api/v1/namespaces", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty load returned %d, want 400", rec.Code)
	}

	// Tuple without a subject.
	rec = doJSON(t, e, http.MethodPost, "/api/v1/namespaces", map[string]string{
		"source": "namespace document {\nrelation viewer\npermission view = viewer\n}",
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodPut, "/api/v1/relation-tuples", []TupleBody{
		{Namespace: "document", Object: "readme", Relation: "viewer"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("subjectless tuple returned %d, want 400", rec.Code)
	}

	// Malformed check queries.
	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=alice&permission=view&object=document:readme", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad subject returned %d, want 400", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=user:alice&permission=view&object=ghost:x", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown namespace returned %d, want 404", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/v1/check?subject=user:alice&permission=fly&object=document:readme", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown permission returned %d, want 404", rec.Code)
	}
}

func TestAPIVersionRollback(t *testing.T) {
	registry := namespace.NewRegistry()
	store := relationtuple.NewMemoryStore()
	engine := check.NewEngine(store, registry)
	versions := newFakeVersionStore()
	manager := access.NewManager(store, registry, engine, access.WithVersionStore(versions))

	h := NewHandler(manager)
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	rec := doJSON(t, e, http.MethodPost, "/api/v1/namespaces", map[string]string{
		"source": "namespace document {\nrelation viewer\npermission view = viewer\n}",
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var first struct {
		Version string `json:"version"`
	}
	json.Unmarshal(rec.Body.Bytes(), &first)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/namespaces", map[string]string{
		"source": "namespace document {\nrelation owner\npermission view = owner\n}",
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/api/v1/namespaces/versions", nil)
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var infos []namespace.VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d versions, want 2", len(infos))
	}

	rec = doJSON(t, e, http.MethodPost, "/api/v1/namespaces/versions/"+first.Version+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activation failed with code %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/api/v1/namespaces/versions/no-such/activate", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown version activation returned %d, want 400", rec.Code)
	}
}
