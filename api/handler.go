// Package api exposes the Administrative API over HTTP: tuple management,
// rule loading, and permission checks. It is a thin boundary over
// access.Manager with no logic beyond input validation and wire mapping.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/getseal/seal/core/access"
	"github.com/getseal/seal/core/audit"
	"github.com/getseal/seal/core/check"
	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
)

type Handler struct {
	manager *access.Manager
	audits  audit.Store
}

func NewHandler(manager *access.Manager) *Handler {
	return &Handler{manager: manager}
}

// SetAuditStore enables the audit listing endpoint.
func (h *Handler) SetAuditStore(store audit.Store) {
	h.audits = store
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.PUT("/relation-tuples", h.HandleWriteTuples)
	g.DELETE("/relation-tuples", h.HandleDeleteTuples)
	g.GET("/relation-tuples", h.HandleListTuples)
	g.GET("/relation-tuples/reverse", h.HandleListSubjectTuples)

	g.POST("/namespaces", h.HandleLoadNamespaces)
	g.GET("/namespaces", h.HandleActiveVersion)
	g.GET("/namespaces/versions", h.HandleListVersions)
	g.POST("/namespaces/versions/:version/activate", h.HandleActivateVersion)

	g.GET("/check", h.HandleCheck)
	g.GET("/audit-events", h.HandleListAuditEvents)
}

// TupleBody is the wire form of one relation tuple. The subject is either
// subject_id ("namespace:id") or subject_set.
type TupleBody struct {
	Namespace  string          `json:"namespace"`
	Object     string          `json:"object"`
	Relation   string          `json:"relation"`
	SubjectID  string          `json:"subject_id,omitempty"`
	SubjectSet *SubjectSetBody `json:"subject_set,omitempty"`
}

// SubjectSetBody references all holders of a relation on an object.
type SubjectSetBody struct {
	Namespace string `json:"namespace"`
	Object    string `json:"object"`
	Relation  string `json:"relation"`
}

func (b TupleBody) toTuple() (relationtuple.Tuple, error) {
	t := relationtuple.Tuple{
		Relation: b.Relation,
		Object:   relationtuple.NewObjectRef(b.Namespace, b.Object),
	}
	switch {
	case b.SubjectSet != nil:
		t.Subject = relationtuple.NewSubjectSet(b.SubjectSet.Namespace, b.SubjectSet.Object, b.SubjectSet.Relation)
	case b.SubjectID != "":
		subject, err := relationtuple.ParseSubjectRef(b.SubjectID)
		if err != nil {
			return relationtuple.Tuple{}, err
		}
		t.Subject = subject
	default:
		return relationtuple.Tuple{}, &relationtuple.ValidationError{Reason: "tuple needs subject_id or subject_set"}
	}
	return t, nil
}

func toTupleBody(t relationtuple.Tuple) TupleBody {
	body := TupleBody{
		Namespace: t.Object.Namespace,
		Object:    t.Object.ID,
		Relation:  t.Relation,
	}
	if t.Subject.IsSubjectSet() {
		body.SubjectSet = &SubjectSetBody{
			Namespace: t.Subject.Object.Namespace,
			Object:    t.Subject.Object.ID,
			Relation:  t.Subject.Relation,
		}
	} else {
		body.SubjectID = t.Subject.String()
	}
	return body
}

func (h *Handler) bindTuples(c echo.Context) ([]relationtuple.Tuple, error) {
	var bodies []TupleBody
	if err := c.Bind(&bodies); err != nil {
		return nil, err
	}
	tuples := make([]relationtuple.Tuple, 0, len(bodies))
	for _, b := range bodies {
		t, err := b.toTuple()
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, t)
	}
	return tuples, nil
}

func (h *Handler) HandleWriteTuples(c echo.Context) error {
	tuples, err := h.bindTuples(c)
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid request body", err)
	}

	created, err := h.manager.WriteTuples(c.Request().Context(), tuples)
	if err != nil {
		var verr *relationtuple.ValidationError
		if errors.As(err, &verr) {
			return h.Error(c, http.StatusBadRequest, "Invalid relation tuple", err)
		}
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}

	out := make([]TupleBody, len(created))
	for i, t := range created {
		out[i] = toTupleBody(t)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) HandleDeleteTuples(c echo.Context) error {
	tuples, err := h.bindTuples(c)
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid request body", err)
	}

	if err := h.manager.DeleteTuples(c.Request().Context(), tuples); err != nil {
		var verr *relationtuple.ValidationError
		if errors.As(err, &verr) {
			return h.Error(c, http.StatusBadRequest, "Invalid relation tuple", err)
		}
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleListTuples(c echo.Context) error {
	var filter relationtuple.Filter
	if err := c.Bind(&filter); err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid filter", err)
	}

	tuples, err := h.manager.ListTuples(c.Request().Context(), filter)
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}

	out := make([]TupleBody, len(tuples))
	for i, t := range tuples {
		out[i] = toTupleBody(t)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) HandleListSubjectTuples(c echo.Context) error {
	subject, err := relationtuple.ParseSubjectRef(c.QueryParam("subject"))
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid subject", err)
	}

	tuples, err := h.manager.ListSubjectTuples(c.Request().Context(), subject)
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}

	out := make([]TupleBody, len(tuples))
	for i, t := range tuples {
		out[i] = toTupleBody(t)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) HandleLoadNamespaces(c echo.Context) error {
	var body struct {
		Source     string                 `json:"source"`
		Namespaces []namespace.Definition `json:"namespaces"`
	}
	if err := c.Bind(&body); err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid request body", err)
	}

	ctx := c.Request().Context()
	var (
		graph *namespace.RuleGraph
		err   error
	)
	switch {
	case body.Source != "":
		graph, err = h.manager.LoadSource(ctx, body.Source)
	case len(body.Namespaces) > 0:
		graph, err = h.manager.LoadDefinitions(ctx, body.Namespaces)
	default:
		return h.Error(c, http.StatusBadRequest, "Request needs source or namespaces", nil)
	}
	if err != nil {
		var cerr *namespace.CompileError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"status":    "Compile error",
				"code":      http.StatusBadRequest,
				"error":     cerr.Error(),
				"namespace": cerr.Namespace,
				"line":      cerr.Line,
			})
		}
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":    graph.Version,
		"namespaces": graph.Namespaces(),
	})
}

func (h *Handler) HandleActiveVersion(c echo.Context) error {
	graph := h.manager.ActiveGraph()
	if graph == nil {
		return h.Error(c, http.StatusNotFound, "No active rule version", nil)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":    graph.Version,
		"loaded_at":  graph.LoadedAt,
		"namespaces": graph.Namespaces(),
		"source":     graph.Source,
	})
}

func (h *Handler) HandleListVersions(c echo.Context) error {
	versions, err := h.manager.ListVersions(c.Request().Context())
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return c.JSON(http.StatusOK, versions)
}

func (h *Handler) HandleActivateVersion(c echo.Context) error {
	graph, err := h.manager.ActivateVersion(c.Request().Context(), c.Param("version"))
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Activation failed", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":    graph.Version,
		"namespaces": graph.Namespaces(),
	})
}

func (h *Handler) HandleCheck(c echo.Context) error {
	subject, err := relationtuple.ParseSubjectRef(c.QueryParam("subject"))
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid subject", err)
	}
	object, err := relationtuple.ParseObjectRef(c.QueryParam("object"))
	if err != nil {
		return h.Error(c, http.StatusBadRequest, "Invalid object", err)
	}
	permission := c.QueryParam("permission")
	if permission == "" {
		return h.Error(c, http.StatusBadRequest, "Missing permission", nil)
	}

	result, err := h.manager.Check(c.Request().Context(), subject, permission, object)
	if err != nil {
		var nsErr *check.UnknownNamespaceError
		var permErr *check.UnknownPermissionError
		if errors.As(err, &nsErr) || errors.As(err, &permErr) {
			return h.Error(c, http.StatusNotFound, "Unknown namespace or permission", err)
		}
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleListAuditEvents(c echo.Context) error {
	if h.audits == nil {
		return h.Error(c, http.StatusNotFound, "Audit log not configured", nil)
	}
	filter := audit.Filter{
		Type:    c.QueryParam("type"),
		Subject: c.QueryParam("subject"),
		Status:  c.QueryParam("status"),
		Limit:   100,
	}
	events, err := h.audits.ListEvents(c.Request().Context(), filter)
	if err != nil {
		return h.Error(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return c.JSON(http.StatusOK, events)
}

// Helper for professional errors
func (h *Handler) Error(c echo.Context, code int, message string, err error) error {
	resp := map[string]interface{}{
		"status": message,
		"code":   code,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(code, resp)
}
