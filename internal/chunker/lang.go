package chunker

import (
	"path/filepath"
	"strings"
)

var extLanguages = map[string]string{
	".cs":   "csharp",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".go":   "go",
}

var languageExtensions = map[string][]string{
	"csharp":     {".cs"},
	"python":     {".py"},
	"javascript": {".js", ".jsx"},
	"typescript": {".ts", ".tsx"},
	"java":       {".java"},
	"go":         {".go"},
}

// DetectLanguage maps a file path to its language tag by extension.
func DetectLanguage(path string) (string, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ExtensionsFor returns the set of file extensions admissible for the
// given tracked languages. Unknown language tags contribute nothing.
func ExtensionsFor(languages []string) map[string]bool {
	exts := make(map[string]bool)
	for _, lang := range languages {
		for _, ext := range languageExtensions[lang] {
			exts[ext] = true
		}
	}
	return exts
}
