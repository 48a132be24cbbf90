package schema

import (
	"fmt"
	"sort"
)

// LineIndex answers byte offset to line/column queries for one text.
type LineIndex struct {
	content string
	starts  []int
}

// NewLineIndex records the start offset of every line in content.
func NewLineIndex(content string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{content: content, starts: starts}
}

// Lines returns the number of lines. A trailing newline does not open a new
// line.
func (x *LineIndex) Lines() int {
	n := len(x.starts)
	if n > 1 && x.starts[n-1] == len(x.content) {
		n--
	}
	return n
}

// Span computes the span of content[start:end]. A trailing newline belongs
// to the last line, not the next one.
func (x *LineIndex) Span(start, end int) (Span, error) {
	if start < 0 || end > len(x.content) || start > end {
		return Span{}, fmt.Errorf("%w: bytes [%d, %d) of %d", ErrInvalidSpan, start, end, len(x.content))
	}
	startLine, startCol := x.position(start)
	last := end
	if last > start && x.content[last-1] == '\n' {
		last--
	}
	endLine, endCol := x.position(last)
	return NewSpan(start, end, startLine, endLine, startCol, endCol)
}

// LineRange returns the byte range covering lines first..last, 1-based and
// inclusive, clamped to the text.
func (x *LineIndex) LineRange(first, last int) (int, int) {
	if first < 1 {
		first = 1
	}
	if last > len(x.starts) {
		last = len(x.starts)
	}
	if first > last {
		return 0, 0
	}
	start := x.starts[first-1]
	end := len(x.content)
	if last < len(x.starts) {
		end = x.starts[last]
	}
	return start, end
}

// Line returns the 1-based line holding offset, clamped to the text.
func (x *LineIndex) Line(offset int) int {
	offset = max(0, min(offset, len(x.content)))
	line, _ := x.position(offset)
	return line
}

func (x *LineIndex) position(offset int) (int, int) {
	line := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset })
	return line, offset - x.starts[line-1]
}
