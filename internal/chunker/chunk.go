package chunker

import "time"

// KindWindow tags chunks produced by the windowing fallback.
const KindWindow = "window"

// Chunk is the atomic retrievable unit: a line-addressed span of one
// file at one revision. Chunks are immutable; a changed region is
// represented as delete-old plus insert-new, never mutated in place.
type Chunk struct {
	ID        string
	Repo      string
	Path      string
	Language  string
	Content   string
	StartLine int // 1-indexed, inclusive
	EndLine   int // 1-indexed, inclusive
	Commit    string
	Kind      string
	Name      string
	Context   string // qualified name, dot-joined through enclosing declarations
	CreatedAt time.Time
}
