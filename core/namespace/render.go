package namespace

import (
	"strings"
)

// RenderSource renders definitions back into canonical rule-language
// source. Structured API loads go through this so every persisted rule
// version is stored in the same textual form, whichever input form the
// caller used.
func RenderSource(defs []Definition) string {
	var b strings.Builder
	for i, def := range defs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("namespace " + def.Name + " {\n")
		for _, rel := range def.Relations {
			b.WriteString("    relation " + rel.Name)
			if len(rel.Targets) > 0 {
				b.WriteString(": " + strings.Join(rel.Targets, " | "))
			}
			b.WriteString("\n")
		}
		if len(def.Relations) > 0 && len(def.Permissions) > 0 {
			b.WriteString("\n")
		}
		for _, perm := range def.Permissions {
			b.WriteString("    permission " + perm.Name + " = " + perm.Expr + "\n")
		}
		b.WriteString("}\n")
	}
	return b.String()
}
