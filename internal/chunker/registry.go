package chunker

import (
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Role determines how the structural walk treats a target node kind.
type Role int

const (
	// RoleDecl nodes emit a chunk and keep descending, so nested
	// members (an interface's methods, a nested type) surface too.
	RoleDecl Role = iota
	// RoleContainer nodes emit like RoleDecl, but when their rendered
	// text exceeds twice the maximum chunk size they are not emitted
	// and decompose into their children instead.
	RoleContainer
	// RoleLeaf nodes emit a chunk and stop descending; they are
	// complete units.
	RoleLeaf
)

// LanguageSpec binds a tree-sitter grammar to the node kinds the
// structural strategy extracts for that language.
type LanguageSpec struct {
	Name     string
	Language *sitter.Language
	Targets  map[string]Role
}

// Registry maps language tags to their structural decomposers. It is
// an explicit value owned by whoever constructs the extractor, so
// tests can register fakes; absence of a language is not an error and
// selects the windowing fallback.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]*LanguageSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{langs: make(map[string]*LanguageSpec)}
}

// Register adds a language spec under its name, replacing any prior
// registration.
func (r *Registry) Register(spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[spec.Name] = spec
}

// Lookup returns the spec for a language tag, or nil.
func (r *Registry) Lookup(lang string) *LanguageSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.langs[lang]
}

// Languages returns the registered language tags, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.langs))
	for name := range r.langs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
