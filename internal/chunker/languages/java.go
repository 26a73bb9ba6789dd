package languages

import (
	"axon/internal/chunker"

	"github.com/smacker/go-tree-sitter/java"
)

// RegisterJava wires the Java grammar.
func RegisterJava(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "java",
		Language: java.GetLanguage(),
		Targets: map[string]chunker.Role{
			"class_declaration":       chunker.RoleContainer,
			"interface_declaration":   chunker.RoleDecl,
			"enum_declaration":        chunker.RoleDecl,
			"method_declaration":      chunker.RoleLeaf,
			"constructor_declaration": chunker.RoleLeaf,
		},
	})
}
