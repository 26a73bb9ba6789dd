package languages

import (
	"testing"

	"axon/internal/chunker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(maxChunkSize, overlap int) *chunker.Extractor {
	r := chunker.NewRegistry()
	RegisterAll(r)
	return chunker.NewExtractor(r, maxChunkSize, overlap, zerolog.Nop())
}

func TestRegisterAll(t *testing.T) {
	r := chunker.NewRegistry()
	RegisterAll(r)
	assert.Equal(t, []string{"csharp", "go", "java", "javascript", "python", "typescript"}, r.Languages())
}

const csharpSource = `namespace Demo
{
    public class Calculator
    {
        public int Add(int a, int b)
        {
            return a + b;
        }

        public int Sub(int a, int b)
        {
            return a - b;
        }
    }
}`

func TestCSharpStructure(t *testing.T) {
	e := newExtractor(2000, 200)
	chunks := e.Extract(csharpSource, "src/Calculator.cs", "demo", "c1", "csharp")
	require.Len(t, chunks, 4)

	assert.Equal(t, "namespace_declaration", chunks[0].Kind)
	assert.Equal(t, "Demo", chunks[0].Name)
	assert.Equal(t, "Demo", chunks[0].Context)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 15, chunks[0].EndLine)

	assert.Equal(t, "class_declaration", chunks[1].Kind)
	assert.Equal(t, "Calculator", chunks[1].Name)
	assert.Equal(t, "Demo.Calculator", chunks[1].Context)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 14, chunks[1].EndLine)

	assert.Equal(t, "method_declaration", chunks[2].Kind)
	assert.Equal(t, "Add", chunks[2].Name)
	assert.Equal(t, "Demo.Calculator.Add", chunks[2].Context)
	assert.Equal(t, 5, chunks[2].StartLine)
	assert.Equal(t, 8, chunks[2].EndLine)
	assert.Contains(t, chunks[2].Content, "return a + b;")

	assert.Equal(t, "method_declaration", chunks[3].Kind)
	assert.Equal(t, "Sub", chunks[3].Name)
	assert.Equal(t, "Demo.Calculator.Sub", chunks[3].Context)
	assert.Equal(t, 10, chunks[3].StartLine)
	assert.Equal(t, 13, chunks[3].EndLine)

	// Identifiers are unique per chunk and reproducible.
	seen := make(map[string]bool)
	for _, c := range chunks {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		assert.Equal(t, chunker.ChunkID("demo", "src/Calculator.cs", c.StartLine-1, "c1"), c.ID)
	}
}

const csharpWide = `public class Wide
{
    public int First(int value)
    {
        return value + 1;
    }

    public int Second(int value)
    {
        return value + 2;
    }
}`

func TestCSharpOversizedContainerDecomposes(t *testing.T) {
	// The class body exceeds twice the maximum chunk size, so only its
	// members are emitted.
	e := newExtractor(60, 0)
	chunks := e.Extract(csharpWide, "src/Wide.cs", "demo", "c1", "csharp")
	require.Len(t, chunks, 2)

	assert.Equal(t, "method_declaration", chunks[0].Kind)
	assert.Equal(t, "First", chunks[0].Name)
	assert.Equal(t, "First", chunks[0].Context)
	assert.Equal(t, "method_declaration", chunks[1].Kind)
	assert.Equal(t, "Second", chunks[1].Name)
	assert.Equal(t, "Second", chunks[1].Context)
}

const csharpTiny = `public class T
{
    int A(){}

    public int LongEnough(int value)
    {
        return value * 2;
    }
}`

func TestCSharpSkipsTinyNodes(t *testing.T) {
	e := newExtractor(2000, 200)
	chunks := e.Extract(csharpTiny, "src/T.cs", "demo", "c1", "csharp")
	require.Len(t, chunks, 2)

	assert.Equal(t, "T", chunks[0].Name)
	assert.Equal(t, "LongEnough", chunks[1].Name)
	assert.Equal(t, "T.LongEnough", chunks[1].Context)
	for _, c := range chunks {
		assert.NotEqual(t, "A", c.Name)
	}
}

func TestCSharpWithoutDeclarationsWindowsInstead(t *testing.T) {
	src := "// build configuration constants\nusing System;\nusing System.Text;"
	e := newExtractor(2000, 200)
	chunks := e.Extract(src, "src/Usings.cs", "demo", "c1", "csharp")
	require.Len(t, chunks, 1)
	assert.Equal(t, chunker.KindWindow, chunks[0].Kind)
	assert.Equal(t, src, chunks[0].Content)
}

const pythonSource = `class Greeter:
    def hello(self, name):
        return "hi " + name

def standalone():
    return 42`

func TestPythonStructure(t *testing.T) {
	e := newExtractor(2000, 200)
	chunks := e.Extract(pythonSource, "app/greet.py", "demo", "c1", "python")
	require.Len(t, chunks, 3)

	assert.Equal(t, "class_definition", chunks[0].Kind)
	assert.Equal(t, "Greeter", chunks[0].Name)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)

	assert.Equal(t, "function_definition", chunks[1].Kind)
	assert.Equal(t, "hello", chunks[1].Name)
	assert.Equal(t, "Greeter.hello", chunks[1].Context)

	assert.Equal(t, "function_definition", chunks[2].Kind)
	assert.Equal(t, "standalone", chunks[2].Name)
	assert.Equal(t, "standalone", chunks[2].Context)
	assert.Equal(t, 5, chunks[2].StartLine)
	assert.Equal(t, 6, chunks[2].EndLine)
}

const goSource = `package demo

type Point struct {
	X int
	Y int
}

func Origin() Point {
	return Point{}
}`

func TestGoStructure(t *testing.T) {
	e := newExtractor(2000, 200)
	chunks := e.Extract(goSource, "pkg/point.go", "demo", "c1", "go")
	require.Len(t, chunks, 2)

	assert.Equal(t, "type_spec", chunks[0].Kind)
	assert.Equal(t, "Point", chunks[0].Name)
	assert.Equal(t, 3, chunks[0].StartLine)
	assert.Equal(t, 6, chunks[0].EndLine)
	assert.Contains(t, chunks[0].Content, "type Point struct")

	assert.Equal(t, "function_declaration", chunks[1].Kind)
	assert.Equal(t, "Origin", chunks[1].Name)
	assert.Equal(t, 8, chunks[1].StartLine)
	assert.Equal(t, 10, chunks[1].EndLine)
}
