package languages

import (
	"axon/internal/chunker"

	"github.com/smacker/go-tree-sitter/csharp"
)

// RegisterCSharp wires the C# grammar. Namespaces and classes
// decompose into members when oversized; methods, constructors and
// properties are complete units.
func RegisterCSharp(r *chunker.Registry) {
	r.Register(&chunker.LanguageSpec{
		Name:     "csharp",
		Language: csharp.GetLanguage(),
		Targets: map[string]chunker.Role{
			"namespace_declaration":   chunker.RoleContainer,
			"class_declaration":       chunker.RoleContainer,
			"interface_declaration":   chunker.RoleDecl,
			"struct_declaration":      chunker.RoleDecl,
			"enum_declaration":        chunker.RoleDecl,
			"method_declaration":      chunker.RoleLeaf,
			"constructor_declaration": chunker.RoleLeaf,
			"property_declaration":    chunker.RoleLeaf,
		},
	})
}
