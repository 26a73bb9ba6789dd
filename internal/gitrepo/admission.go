package gitrepo

import (
	"path/filepath"
	"strings"

	"axon/internal/chunker"
)

// Admission decides which repository paths are eligible for indexing, based
// on the configured languages and exclusion patterns.
type Admission struct {
	exts     map[string]bool
	excludes []string
}

// NewAdmission builds a filter admitting files whose extension belongs to one
// of the languages and whose path matches no exclusion pattern.
func NewAdmission(languages, excludePatterns []string) *Admission {
	return &Admission{
		exts:     chunker.ExtensionsFor(languages),
		excludes: excludePatterns,
	}
}

// Admit reports whether the path passes the language and exclusion filters.
// Patterns are matched as substrings after stripping "*/" and "/*" wildcards.
func (a *Admission) Admit(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !a.exts[ext] {
		return false
	}
	for _, pattern := range a.excludes {
		cleaned := strings.ReplaceAll(strings.ReplaceAll(pattern, "*/", ""), "/*", "")
		if strings.Contains(path, cleaned) {
			return false
		}
	}
	return true
}
