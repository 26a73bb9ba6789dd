package languages

import (
	"axon/internal/chunker"

	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// RegisterTypeScript wires the TypeScript grammar (.ts and .tsx).
func RegisterTypeScript(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "typescript",
		Language: typescript.GetLanguage(),
		Targets: map[string]chunker.Role{
			"class_declaration":     chunker.RoleContainer,
			"interface_declaration": chunker.RoleDecl,
			"enum_declaration":      chunker.RoleDecl,
			"function_declaration":  chunker.RoleLeaf,
			"method_definition":     chunker.RoleLeaf,
		},
	})
}
