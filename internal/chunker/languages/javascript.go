package languages

import (
	"axon/internal/chunker"

	"github.com/smacker/go-tree-sitter/javascript"
)

// RegisterJavaScript wires the JavaScript grammar (.js and .jsx).
func RegisterJavaScript(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "javascript",
		Language: javascript.GetLanguage(),
		Targets: map[string]chunker.Role{
			"class_declaration":              chunker.RoleContainer,
			"function_declaration":           chunker.RoleLeaf,
			"generator_function_declaration": chunker.RoleLeaf,
			"method_definition":              chunker.RoleLeaf,
		},
	})
}
