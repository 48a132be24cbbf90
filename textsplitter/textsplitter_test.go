package textsplitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCovers(t *testing.T, text string, start, end int, pieces []Piece) {
	t.Helper()
	require.NotEmpty(t, pieces)
	assert.Equal(t, start, pieces[0].Start)
	assert.Equal(t, end, pieces[len(pieces)-1].End)
	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].End, pieces[i].Start, "gap before piece %d", i)
	}
}

func TestRecursiveCharacterCoversRegion(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 400),
		strings.Repeat("line of text\n", 120),
		strings.Repeat("para one\nstill para one\n\n", 50),
		strings.Repeat("x", 5000),
	}
	s := NewRecursiveCharacter(WithChunkSize(200))

	for _, text := range inputs {
		pieces := s.SplitRanges(text, 0, len(text))
		requireCovers(t, text, 0, len(text), pieces)
		for _, p := range pieces {
			assert.LessOrEqual(t, p.Len(), 200)
		}
		assert.Equal(t, text, strings.Join(s.SplitText(text), ""))
	}
}

func TestRecursiveCharacterSubRange(t *testing.T) {
	text := "header\n" + strings.Repeat("body line\n", 40) + "footer\n"
	start := len("header\n")
	end := len(text) - len("footer\n")

	pieces := NewRecursiveCharacter(WithChunkSize(64)).SplitRanges(text, start, end)
	requireCovers(t, text, start, end, pieces)
	assert.Nil(t, NewRecursiveCharacter().SplitRanges(text, 5, 5))
}

func TestHardCutKeepsRunesWhole(t *testing.T) {
	text := "ééééé"
	pieces := NewRecursiveCharacter(WithChunkSize(3), WithSeparators("")).SplitRanges(text, 0, len(text))

	require.Len(t, pieces, 5)
	for _, p := range pieces {
		assert.True(t, utf8.ValidString(p.Text(text)))
		assert.Equal(t, MethodRawSplit, p.Method)
	}
}

func TestLineWindows(t *testing.T) {
	t.Run("line limit", func(t *testing.T) {
		text := "a\nb\nc\nd\ne\n"
		pieces := LineWindows(text, 0, len(text), 2, 100)

		require.Len(t, pieces, 3)
		assert.Equal(t, "a\nb\n", pieces[0].Text(text))
		assert.Equal(t, "c\nd\n", pieces[1].Text(text))
		assert.Equal(t, "e\n", pieces[2].Text(text))
		for _, p := range pieces {
			assert.Equal(t, MethodLineSplit, p.Method)
		}
	})

	t.Run("over-long line is hard cut", func(t *testing.T) {
		text := "short\n" + strings.Repeat("x", 30) + "\nend"
		pieces := LineWindows(text, 0, len(text), 10, 10)

		require.Len(t, pieces, 6)
		requireCovers(t, text, 0, len(text), pieces)
		assert.Equal(t, MethodLineSplit, pieces[0].Method)
		assert.Equal(t, MethodRawSplit, pieces[1].Method)
		assert.Equal(t, "end", pieces[5].Text(text))
	})
}

func TestParagraphs(t *testing.T) {
	text := "a\nb\n\nc\n\n\nd"
	pieces := Paragraphs(text, 0, len(text))

	require.Len(t, pieces, 3)
	assert.Equal(t, "a\nb\n\n", pieces[0].Text(text))
	assert.Equal(t, "c\n\n\n", pieces[1].Text(text))
	assert.Equal(t, "d", pieces[2].Text(text))
}

func TestGeneric(t *testing.T) {
	t.Run("merges paragraphs up to size", func(t *testing.T) {
		text := "alpha beta gamma.\n\ndelta epsilon zz.\n\ntheta iota kappa."
		pieces := NewGeneric(WithChunkSize(50)).SplitRanges(text, 0, len(text))

		require.Len(t, pieces, 2)
		assert.Equal(t, "alpha beta gamma.\n\ndelta epsilon zz.", pieces[0].Text(text))
		assert.Equal(t, "theta iota kappa.", pieces[1].Text(text))
	})

	t.Run("never empty for visible content", func(t *testing.T) {
		text := "   x   "
		pieces := NewGeneric().SplitRanges(text, 0, len(text))
		require.Len(t, pieces, 1)
		assert.Equal(t, "x", pieces[0].Text(text))
	})

	t.Run("blank input yields nothing", func(t *testing.T) {
		assert.Empty(t, NewGeneric().SplitRanges(" \n\n\t", 0, 4))
	})

	t.Run("one huge paragraph becomes windows", func(t *testing.T) {
		text := strings.Repeat("statement();\n", 100)
		pieces := NewGeneric(WithChunkSize(200), WithMaxLines(10)).SplitRanges(text, 0, len(text))
		require.Len(t, pieces, 10)
		for _, p := range pieces {
			assert.Equal(t, MethodLineSplit, p.Method)
		}
	})
}

func TestContentSniffing(t *testing.T) {
	assert.True(t, IsBinary([]byte("hello\x00world")))
	assert.False(t, IsBinary([]byte("package main\n")))
	assert.False(t, IsBinary([]byte("caf\xe9 au lait")))
	assert.False(t, IsBinary(nil))

	assert.True(t, IsBlank([]byte(" \n\t")))
	assert.False(t, IsBlank([]byte(" x ")))

	assert.True(t, IsSingleLine([]byte("  x := 1 \n")))
	assert.False(t, IsSingleLine([]byte("a\nb")))
	assert.False(t, IsSingleLine([]byte("\n\n")))

	assert.False(t, HasSignificantContent("}}}}", 1))
	assert.True(t, HasSignificantContent("func main() {}", 3))
	assert.False(t, HasSignificantContent("ab", 3))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		length   int
		override Parameters
		want     Parameters
	}{
		{"go file", "main.go", 100, Parameters{}, Parameters{MaxChunkChars: 4096, MinChunkChars: 16, MaxLinesPerChunk: 128}},
		{"large go file", "big.go", 300000, Parameters{}, Parameters{MaxChunkChars: 8192, MinChunkChars: 16, MaxLinesPerChunk: 200}},
		{"unknown extension", "notes.xyz", 10, Parameters{}, Parameters{MaxChunkChars: 1500, MinChunkChars: 16, MaxLinesPerChunk: 46}},
		{"explicit max", "main.go", 100, Parameters{MaxChunkChars: 400}, Parameters{MaxChunkChars: 400, MinChunkChars: 16, MaxLinesPerChunk: 12}},
		{"explicit everything", "main.py", 100, Parameters{MaxChunkChars: 300, MinChunkChars: 10, MaxLinesPerChunk: 7}, Parameters{MaxChunkChars: 300, MinChunkChars: 10, MaxLinesPerChunk: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.path, tt.length, tt.override))
		})
	}
}

func TestParametersValidate(t *testing.T) {
	assert.NoError(t, Parameters{MaxChunkChars: 100, MinChunkChars: 10}.Validate())
	assert.ErrorIs(t, Parameters{MaxChunkChars: 10, MinChunkChars: 20}.Validate(), ErrInvalidChunkSize)
	assert.ErrorIs(t, Parameters{MaxChunkChars: -1}.Validate(), ErrInvalidChunkSize)
	assert.ErrorIs(t, Parameters{MaxChunkChars: maxChunkSize + 1}.Validate(), ErrInvalidChunkSize)
}
