package dedup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/semchunk/schema"
)

func chunk(t *testing.T, path, content string) schema.CodeChunk {
	t.Helper()
	span, err := schema.SpanForRange(content, 0, len(content))
	require.NoError(t, err)
	return schema.NewCodeChunk(path, "go", content, span, schema.SemanticMetadata{}, schema.SourceSemantic)
}

func TestApplySuppressesDuplicates(t *testing.T) {
	s := NewStore()
	first := []schema.CodeChunk{chunk(t, "a.go", "func A() {}"), chunk(t, "a.go", "func B() {}")}
	second := []schema.CodeChunk{chunk(t, "b.go", "func A() {}"), chunk(t, "b.go", "func C() {}")}

	kept := s.Apply(first, "batch")
	require.Len(t, kept, 2)
	for _, c := range kept {
		assert.Equal(t, "batch", c.BatchID)
	}

	kept = s.Apply(second, "batch")
	require.Len(t, kept, 1)
	assert.Equal(t, "func C() {}", kept[0].Content)
	assert.Equal(t, 1, s.Duplicates())

	owner, ok := s.Owner(first[0].ContentHash)
	require.True(t, ok)
	assert.Equal(t, first[0].ID, owner)
}

func TestApplyWithinOneSlice(t *testing.T) {
	s := NewStore()
	kept := s.Apply([]schema.CodeChunk{chunk(t, "a.go", "x := 1"), chunk(t, "a.go", "x := 1")}, "b")
	assert.Len(t, kept, 1)
}

func TestResetRestoresOriginalCount(t *testing.T) {
	s := NewStore()
	chunks := []schema.CodeChunk{chunk(t, "a.go", "one"), chunk(t, "a.go", "two")}

	assert.Len(t, s.Apply(chunks, "run-1"), 2)
	assert.Empty(t, s.Apply(chunks, "run-1"))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Duplicates())
	assert.Len(t, s.Apply(chunks, "run-2"), 2)
}

func TestClaim(t *testing.T) {
	s := NewStore()
	assert.True(t, s.Claim("h", "id-1"))
	assert.False(t, s.Claim("h", "id-2"))
	owner, _ := s.Owner("h")
	assert.Equal(t, "id-1", owner)
}

func TestConcurrentApplyKeepsOneCopy(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunks := []schema.CodeChunk{
				chunk(t, fmt.Sprintf("f%d.go", i), "shared"),
				chunk(t, fmt.Sprintf("f%d.go", i), fmt.Sprintf("unique-%d", i)),
			}
			kept := s.Apply(chunks, "b")
			mu.Lock()
			total += len(kept)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 17, total)
	assert.Equal(t, 17, s.Len())
}
