package chunking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/semchunk/config"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/delimiter"
	testutils "github.com/sevigo/semchunk/parsers/testing"
	"github.com/sevigo/semchunk/schema"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	logger, _ := testutils.NewTestLogger(t)
	e, err := New(config.Default(), logger, opts...)
	require.NoError(t, err)
	return e
}

func goFile(funcs int) string {
	var b strings.Builder
	b.WriteString("package sample\n\n")
	for i := range funcs {
		fmt.Fprintf(&b, "// Compute%d mixes its input with a constant.\nfunc Compute%d(x int) int {\n\ty := x * %d\n\treturn y + %d\n}\n\n", i, i, i+3, i*7)
	}
	return b.String()
}

func inline(path, content string) schema.SourceFile {
	return schema.SourceFile{Path: path, Content: []byte(content)}
}

func TestChunkFileSpecialCases(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	chunks, err := e.ChunkFile(ctx, inline("empty.go", ""))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = e.ChunkFile(ctx, inline("blank.py", "  \n\t\n\n"))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = e.ChunkFile(ctx, inline("image.go", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x10"))
	assert.ErrorIs(t, err, ErrBinaryContent)

	chunks, err = e.ChunkFile(ctx, inline("one.go", "package one\n"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, schema.SourceGeneric, chunks[0].Source)
	assert.Equal(t, 1, chunks[0].Span.StartLine)
}

func TestChunkFileSemantic(t *testing.T) {
	e := newTestEngine(t)

	chunks, err := e.ChunkFile(context.Background(), inline("compute.go", goFile(3)))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, schema.SourceSemantic, c.Source)
		assert.Equal(t, fmt.Sprintf("Compute%d", i), c.Metadata.Name)
		assert.Equal(t, e.BatchID(), c.BatchID)
		assert.Nil(t, c.Metadata.Node, "chunks leave the engine detached")
		assert.True(t, strings.HasPrefix(c.Content, "// Compute"))
	}
}

func TestChunkFileDeterministic(t *testing.T) {
	content := goFile(4)
	a, err := newTestEngine(t).ChunkFile(context.Background(), inline("a.go", content))
	require.NoError(t, err)
	b, err := newTestEngine(t).ChunkFile(context.Background(), inline("a.go", content))
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Span, b[i].Span)
		assert.Equal(t, a[i].Metadata.Category, b[i].Metadata.Category)
	}
}

func TestChunkFileDeduplicates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	content := goFile(2)

	first, err := e.ChunkFile(ctx, inline("a.go", content))
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := e.ChunkFile(ctx, inline("b.go", content))
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, len(first), e.Store().Duplicates())

	oldBatch := e.BatchID()
	e.Reset()
	assert.NotEqual(t, oldBatch, e.BatchID())

	again, err := e.ChunkFile(ctx, inline("b.go", content))
	require.NoError(t, err)
	assert.Len(t, again, len(first))
	assert.Equal(t, e.BatchID(), again[0].BatchID)
}

func TestChunkFileWithoutGrammarUsesDelimiters(t *testing.T) {
	e := newTestEngine(t)
	content := "class Greeter\n  def greet(name)\n    \"hello #{name}\"\n  end\nend\n\nputs Greeter.new.greet(\"world\")\n"

	chunks, err := e.ChunkFile(context.Background(), inline("greeter.rb", content))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, schema.SourceDelimiter, c.Source)
		assert.Equal(t, "ruby", c.Language)
	}
}

func TestChunkFileOversizedFunctionLineSplits(t *testing.T) {
	var b strings.Builder
	b.WriteString("package big\n\nfunc Big() int {\n\ttotal := 0\n")
	for i := range 60 {
		fmt.Fprintf(&b, "\ttotal += %d * %d\n", i, i+1)
	}
	b.WriteString("\treturn total\n}\n")

	e := newTestEngine(t, WithMaxChunkChars(300), WithMaxLinesPerChunk(12))
	chunks, err := e.ChunkFile(context.Background(), inline("big.go", b.String()))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, schema.DegradationLineSplit, c.Metadata.Degradation)
		assert.Equal(t, "Big", c.Metadata.Name)
		assert.LessOrEqual(t, len(c.Content), 300)
	}
}

func TestChunkFileChunkLimitKeepsFirst(t *testing.T) {
	e := newTestEngine(t, WithBudget(governor.Budget{MaxChunks: 2}))

	chunks, err := e.ChunkFile(context.Background(), inline("many.go", goFile(6)))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Compute0", chunks[0].Metadata.Name)
	assert.Equal(t, "Compute1", chunks[1].Metadata.Name)
}

func TestChunkFileTimeout(t *testing.T) {
	e := newTestEngine(t, WithBudget(governor.Budget{Timeout: time.Nanosecond}))

	chunks, err := e.ChunkFile(context.Background(), inline("slow.go", goFile(50)))
	assert.Empty(t, chunks)
	var timeoutErr *governor.ResourceTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.ErrorIs(t, err, governor.ErrBudgetExceeded)
}

func TestChunkFileDepthFallsBack(t *testing.T) {
	e := newTestEngine(t, WithBudget(governor.Budget{MaxDepth: 1}))
	content := "def helper(value):\n    return value * 2\n\n\nif __name__ == \"__main__\":\n    print(helper(21))\n"

	chunks, err := e.ChunkFile(context.Background(), inline("deep.py", content))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, schema.SourceDelimiter, chunks[0].Source)
}

func TestChunkFileTooLarge(t *testing.T) {
	e := newTestEngine(t, WithMaxFileBytes(16))

	_, err := e.ChunkFile(context.Background(), inline("big.go", goFile(1)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = e.ChunkFile(context.Background(), schema.SourceFile{Path: "hinted.go", SizeHint: 1 << 20, Loader: func() ([]byte, error) {
		t.Fatal("loader must not run for oversized files")
		return nil, nil
	}})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestChunkFileLoadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nSome notes about the project layout.\n"), 0o600))

	e := newTestEngine(t)
	chunks, err := e.ChunkFile(context.Background(), schema.SourceFile{Path: path})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "markdown", chunks[0].Metadata.Annotations["plugin"])

	_, err = e.ChunkFile(context.Background(), schema.SourceFile{Path: filepath.Join(t.TempDir(), "missing.go")})
	assert.Error(t, err)
}

func TestCustomDelimitersFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Delimiters = append(cfg.Delimiters, delimiterDef())
	logger, _ := testutils.NewTestLogger(t)
	e, err := New(cfg, logger)
	require.NoError(t, err)

	chunks, err := e.ChunkFile(context.Background(), inline("deck.toy", "card alpha {\n  one\n}\n\ncard beta {\n  two\n}\n"))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, schema.SourceDelimiter, chunks[0].Source)
	assert.Equal(t, "toy", chunks[0].Language)
}

func delimiterDef() delimiter.Definition {
	return delimiter.Definition{
		Language:   "toy",
		Family:     delimiter.FamilyBrace,
		Pattern:    `^(?P<kind>card)\s+(?P<name>\w+)`,
		Extensions: []string{".toy"},
	}
}
