package semantic

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/semchunk/classify"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/grammar"
	testutils "github.com/sevigo/semchunk/parsers/testing"
	"github.com/sevigo/semchunk/schema"
)

func newTestChunker(t *testing.T, opts ...Option) *Chunker {
	t.Helper()
	logger, _ := testutils.NewTestLogger(t)
	reg, err := grammar.NewRegistry(logger)
	require.NoError(t, err)
	return New(classify.NewRouter(reg, logger), reg, logger, opts...)
}

func run(t *testing.T, c *Chunker, budget governor.Budget, req schema.ChunkRequest) ([]schema.CodeChunk, error) {
	t.Helper()
	gov := budget.Start(context.Background())
	defer gov.Finish()
	return c.Chunk(gov, req)
}

const goSource = `package main

import "fmt"

// Add returns the sum of two numbers.
func Add(a, b int) int {
	return a + b
}

type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}
`

func TestChunkGoFile(t *testing.T) {
	c := newTestChunker(t)
	chunks, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{Path: "main.go", Language: "go", Content: goSource})
	require.NoError(t, err)

	byName := make(map[string]schema.CodeChunk)
	for _, ch := range chunks {
		assert.Equal(t, schema.SourceSemantic, ch.Source)
		assert.Equal(t, goSource[ch.Span.StartByte:ch.Span.EndByte], ch.Content)
		assert.NotNil(t, ch.Metadata.Node)
		byName[ch.Metadata.Name] = ch
	}

	add, ok := byName["Add"]
	require.True(t, ok, "Add chunk missing")
	assert.Equal(t, schema.CategoryCallable, add.Metadata.Category)
	assert.True(t, strings.HasPrefix(add.Content, "// Add returns"), "doc comment should lead the chunk")
	assert.Equal(t, 5, add.Span.StartLine)
	assert.Equal(t, 8, add.Span.EndLine)

	str, ok := byName["String"]
	require.True(t, ok, "method chunk missing")
	assert.Equal(t, schema.CategoryCallable, str.Metadata.Category)
	assert.Equal(t, "method_declaration", str.Metadata.NodeType)

	_, ok = byName["Point"]
	assert.True(t, ok, "type chunk missing")
}

func TestOversizedFunctionIsLineSplit(t *testing.T) {
	var b strings.Builder
	b.WriteString("package main\n\nimport \"fmt\"\n\nfunc Big() {\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "\tfmt.Println(\"line %02d\")\n", i)
	}
	b.WriteString("}\n")
	src := b.String()

	c := newTestChunker(t)
	chunks, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{
		Path: "big.go", Language: "go", Content: src,
		Options: schema.CodeChunkingOptions{MaxChunkChars: 200},
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, ch := range chunks {
		assert.Equal(t, schema.DegradationLineSplit, ch.Metadata.Degradation)
		assert.Equal(t, "Big", ch.Metadata.Name)
		assert.Equal(t, schema.CategoryCallable, ch.Metadata.Category)
		assert.LessOrEqual(t, len(ch.Content), 200)
		assert.NotEmpty(t, ch.Metadata.Annotations["part"])
	}
	assert.Contains(t, chunks[0].Content, "func Big()")
	assert.Contains(t, chunks[len(chunks)-1].Content, "line 39")
}

const pythonClass = `class Greeter:
    """Says hello."""

    def hello(self, name):
        message = "hello " + name
        return message

    def goodbye(self, name):
        message = "goodbye " + name
        return message
`

func TestOversizedClassIsSplitIntoMethods(t *testing.T) {
	c := newTestChunker(t)
	chunks, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{
		Path: "greeter.py", Language: "python", Content: pythonClass,
		Options: schema.CodeChunkingOptions{MaxChunkChars: 120},
	})
	require.NoError(t, err)

	names := make(map[string]schema.CodeChunk)
	for _, ch := range chunks {
		assert.Equal(t, schema.DegradationChildrenSplit, ch.Metadata.Degradation)
		names[ch.Metadata.Name] = ch
	}
	for _, method := range []string{"hello", "goodbye"} {
		ch, ok := names[method]
		require.True(t, ok, "missing %s", method)
		assert.Equal(t, schema.CategoryCallable, ch.Metadata.Category)
		assert.Equal(t, "Greeter", ch.Metadata.Annotations["parent"])
		assert.Equal(t, 1, ch.Metadata.NestingDepth)
	}

	header, ok := names["Greeter"]
	require.True(t, ok, "class header chunk missing")
	assert.Contains(t, header.Content, "class Greeter:")
	assert.NotContains(t, header.Content, "def hello")
}

const pythonScript = `import sys


def greet(name):
    message = "hello " + name
    return message


if __name__ == "__main__":
    for arg in sys.argv[1:]:
        print(greet(arg))
`

func TestTopLevelCodeBetweenDefinitionsIsKept(t *testing.T) {
	c := newTestChunker(t)
	chunks, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{Path: "greet.py", Language: "python", Content: pythonScript})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "greet", chunks[0].Metadata.Name)
	assert.Equal(t, schema.CategoryCallable, chunks[0].Metadata.Category)

	entry := chunks[1]
	assert.True(t, strings.HasPrefix(entry.Content, `if __name__ == "__main__":`), entry.Content)
	assert.Contains(t, entry.Content, "print(greet(arg))")
	assert.Equal(t, "top-level", entry.Metadata.Annotations["scope"])
	assert.Equal(t, schema.CategoryControlFlow, entry.Metadata.Category)
	assert.Equal(t, 9, entry.Span.StartLine)
	assert.Less(t, chunks[0].Span.StartByte, entry.Span.StartByte)
}

func TestImportsAloneAreNotTopLevelChunks(t *testing.T) {
	c := newTestChunker(t)
	src := "package main\n\nimport \"fmt\"\n\nfunc Hello() {\n\tfmt.Println(\"hello\")\n}\n"
	chunks, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{Path: "hello.go", Language: "go", Content: src})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello", chunks[0].Metadata.Name)
}

func TestWholeFileFallback(t *testing.T) {
	c := newTestChunker(t)
	src := "package main\n\nimport \"fmt\"\n"
	chunks, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{Path: "tiny.go", Language: "go", Content: src})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "package main\n\nimport \"fmt\"", chunks[0].Content)
	assert.Equal(t, "file", chunks[0].Metadata.Annotations["scope"])
}

func TestBudgetBreaches(t *testing.T) {
	c := newTestChunker(t)

	t.Run("timeout", func(t *testing.T) {
		src := strings.Repeat(goSource, 20)
		chunks, err := run(t, c, governor.Budget{Timeout: time.Nanosecond}, schema.ChunkRequest{Path: "slow.go", Language: "go", Content: src})
		var timeoutErr *governor.ResourceTimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.ErrorIs(t, err, governor.ErrBudgetExceeded)
		assert.Empty(t, chunks)
	})

	t.Run("depth", func(t *testing.T) {
		src := "if alpha:\n    if beta:\n        if gamma:\n            value = 1\n"
		chunks, err := run(t, c, governor.Budget{MaxDepth: 2}, schema.ChunkRequest{Path: "deep.py", Language: "python", Content: src})
		var depthErr *governor.DepthExceededError
		require.ErrorAs(t, err, &depthErr)
		assert.Empty(t, chunks)
	})

	t.Run("chunk limit keeps the first chunks", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("package main\n")
		for i := 0; i < 4; i++ {
			fmt.Fprintf(&b, "\nfunc F%d() int {\n\treturn %d\n}\n", i, i)
		}
		chunks, err := run(t, c, governor.Budget{MaxChunks: 2}, schema.ChunkRequest{Path: "many.go", Language: "go", Content: b.String()})
		var limitErr *governor.ChunkLimitExceededError
		require.ErrorAs(t, err, &limitErr)
		require.Len(t, chunks, 2)
		assert.Equal(t, "F0", chunks[0].Metadata.Name)
		assert.Equal(t, "F1", chunks[1].Metadata.Name)
	})
}

func TestChunkIsDeterministic(t *testing.T) {
	c := newTestChunker(t)
	req := schema.ChunkRequest{Path: "greeter.py", Language: "python", Content: pythonClass, Options: schema.CodeChunkingOptions{MaxChunkChars: 120}}

	first, err := run(t, c, governor.DefaultBudget(), req)
	require.NoError(t, err)
	second, err := run(t, c, governor.DefaultBudget(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSupports(t *testing.T) {
	c := newTestChunker(t)

	assert.True(t, c.Supports("go"))
	assert.True(t, c.Supports("TSX"))
	assert.True(t, c.HasParser("c"))
	assert.False(t, c.Supports("c"), "no descriptor for c")
	assert.False(t, c.HasParser("cobol"))

	_, err := run(t, c, governor.DefaultBudget(), schema.ChunkRequest{Path: "x.cob", Language: "cobol", Content: "IDENTIFICATION DIVISION."})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Contains(t, ParserLanguages(), "rust")
}
