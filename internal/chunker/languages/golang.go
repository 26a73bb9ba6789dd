package languages

import (
	"axon/internal/chunker"

	"github.com/smacker/go-tree-sitter/golang"
)

// RegisterGo wires the Go grammar. type_spec rather than
// type_declaration carries the declared name; the rendered line span
// still includes the `type` keyword.
func RegisterGo(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "go",
		Language: golang.GetLanguage(),
		Targets: map[string]chunker.Role{
			"type_spec":            chunker.RoleDecl,
			"function_declaration": chunker.RoleLeaf,
			"method_declaration":   chunker.RoleLeaf,
		},
	})
}
