package languages

import (
	"axon/internal/chunker"

	"github.com/smacker/go-tree-sitter/python"
)

// RegisterPython wires the Python grammar.
func RegisterPython(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "python",
		Language: python.GetLanguage(),
		Targets: map[string]chunker.Role{
			"class_definition":    chunker.RoleContainer,
			"function_definition": chunker.RoleLeaf,
		},
	})
}
