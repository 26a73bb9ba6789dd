// Package languages provides the built-in structural decomposers for
// the chunk extractor. Each Register function binds one tree-sitter
// grammar to the node kinds worth extracting for that language.
package languages

import "axon/internal/chunker"

// RegisterAll registers every built-in language.
func RegisterAll(r *chunker.Registry) {
	RegisterCSharp(r)
	RegisterGo(r)
	RegisterJava(r)
	RegisterJavaScript(r)
	RegisterPython(r)
	RegisterTypeScript(r)
}
