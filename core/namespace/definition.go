package namespace

// Definition is the structured, uncompiled form of one namespace. It is the
// JSON body accepted by the Administrative API and the output of the source
// parser; permission rules stay as expression source until Compile resolves
// them.
type Definition struct {
	Name        string          `json:"name"`
	Relations   []RelationDef   `json:"relations"`
	Permissions []PermissionDef `json:"permissions"`
}

// RelationDef declares one relation. Targets optionally restricts the
// namespaces a traversal through this relation can reach; with targets the
// compiler can validate traversal permissions statically.
type RelationDef struct {
	Name    string   `json:"name"`
	Targets []string `json:"targets,omitempty"`
}

// PermissionDef declares one permission as expression source, e.g.
// "viewer | edit | parent->view".
type PermissionDef struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}
