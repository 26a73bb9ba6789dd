package chunker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"
)

// Node text below this many stripped characters is too small to index.
const minNodeChars = 10

const anonymousName = "anonymous"

// Extractor turns file content into chunks: structurally when the
// registry holds a decomposer for the language, by windowing
// otherwise. Extraction is a pure function of its inputs.
type Extractor struct {
	registry     *Registry
	maxChunkSize int
	overlap      int
	log          zerolog.Logger
}

// NewExtractor creates an extractor with the given registry and
// windowing limits (characters).
func NewExtractor(registry *Registry, maxChunkSize, overlap int, log zerolog.Logger) *Extractor {
	return &Extractor{
		registry:     registry,
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
		log:          log,
	}
}

// Extract produces the ordered chunk list for one file at one
// revision. A parse failure or a structural pass that yields nothing
// falls back to windowing on the same content.
func (e *Extractor) Extract(content, path, repo, commit, language string) []Chunk {
	spec := e.registry.Lookup(language)
	if spec == nil {
		return e.window(content, path, repo, commit, language)
	}

	chunks, err := e.structural(spec, content, path, repo, commit, language)
	if err != nil {
		e.log.Warn().Err(err).Str("path", path).Str("language", language).
			Msg("structural extraction failed, windowing")
		return e.window(content, path, repo, commit, language)
	}
	if len(chunks) == 0 {
		return e.window(content, path, repo, commit, language)
	}
	return chunks
}

type frame struct {
	node    *sitter.Node
	context string
}

// structural parses the content and walks the tree pre-order with an
// explicit stack. Each target node is either skipped (too small, but
// descent continues), decomposed (oversized container), or emitted;
// leaf kinds stop descent, everything else keeps walking with the
// emitted qualified name as the enclosing context.
func (e *Extractor) structural(spec *LanguageSpec, content, path, repo, commit, language string) ([]Chunk, error) {
	src := []byte(content)

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	lines := strings.Split(content, "\n")
	now := time.Now().UTC()

	var chunks []Chunk
	stack := []frame{{node: tree.RootNode()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		descendContext := f.context
		if role, ok := spec.Targets[f.node.Type()]; ok {
			startRow := int(f.node.StartPoint().Row)
			endRow := int(f.node.EndPoint().Row)
			text := renderLines(lines, startRow, endRow)

			switch {
			case len(strings.TrimSpace(text)) < minNodeChars:
				// Too small to be useful; members may still qualify.
			case role == RoleContainer && len(text) > e.maxChunkSize*2:
				// Oversized container: decompose into members.
			default:
				name := declaredName(f.node, src)
				qualified := name
				if f.context != "" {
					qualified = f.context + "." + name
				}
				chunks = append(chunks, Chunk{
					ID:        ChunkID(repo, path, startRow, commit),
					Repo:      repo,
					Path:      path,
					Language:  language,
					Content:   text,
					StartLine: startRow + 1,
					EndLine:   endRow + 1,
					Commit:    commit,
					Kind:      f.node.Type(),
					Name:      name,
					Context:   qualified,
					CreatedAt: now,
				})
				if role == RoleLeaf {
					continue
				}
				descendContext = qualified
			}
		}

		// Push children in reverse so the walk stays pre-order.
		for i := int(f.node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Child(i), context: descendContext})
		}
	}

	return chunks, nil
}

// window partitions content into line-contiguous chunks of at most
// maxChunkSize characters, seeding each new chunk with the trailing
// lines of the previous one up to the overlap budget. The final chunk
// is emitted regardless of size.
func (e *Extractor) window(content, path, repo, commit, language string) []Chunk {
	lines := strings.Split(content, "\n")
	now := time.Now().UTC()

	var chunks []Chunk
	var cur []string
	curSize := 0
	startRow := 0

	for i, line := range lines {
		lineSize := len(line) + 1
		if curSize+lineSize > e.maxChunkSize && len(cur) > 0 {
			chunks = append(chunks, Chunk{
				ID:        ChunkID(repo, path, startRow, commit),
				Repo:      repo,
				Path:      path,
				Language:  language,
				Content:   strings.Join(cur, "\n"),
				StartLine: startRow + 1,
				EndLine:   i,
				Commit:    commit,
				Kind:      KindWindow,
				CreatedAt: now,
			})

			// Walk backward from the closed chunk's end, keeping whole
			// lines until the overlap budget is spent.
			keepFrom := len(cur)
			kept := 0
			for j := len(cur) - 1; j >= 0; j-- {
				l := len(cur[j]) + 1
				if kept+l > e.overlap {
					break
				}
				kept += l
				keepFrom = j
			}
			startRow += keepFrom
			cur = append([]string(nil), cur[keepFrom:]...)
			curSize = kept
		}
		cur = append(cur, line)
		curSize += lineSize
	}

	if len(cur) > 0 {
		chunks = append(chunks, Chunk{
			ID:        ChunkID(repo, path, startRow, commit),
			Repo:      repo,
			Path:      path,
			Language:  language,
			Content:   strings.Join(cur, "\n"),
			StartLine: startRow + 1,
			EndLine:   len(lines),
			Commit:    commit,
			Kind:      KindWindow,
			CreatedAt: now,
		})
	}

	return chunks
}

func renderLines(lines []string, startRow, endRow int) string {
	if startRow < 0 {
		startRow = 0
	}
	if endRow >= len(lines) {
		endRow = len(lines) - 1
	}
	return strings.Join(lines[startRow:endRow+1], "\n")
}

// declaredName returns the text of the first child whose kind is an
// identifier kind, or "anonymous".
func declaredName(node *sitter.Node, src []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if strings.Contains(child.Type(), "identifier") {
			return child.Content(src)
		}
	}
	return anonymousName
}
