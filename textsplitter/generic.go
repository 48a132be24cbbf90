package textsplitter

import "strings"

// Generic is the last-resort chunker: blank-line separated paragraphs are
// merged up to the chunk size, oversized paragraphs become line windows and
// over-long lines are hard cut. It never returns zero pieces for text that
// has any non-whitespace content.
type Generic struct {
	opts options
}

// NewGeneric creates a Generic chunker.
func NewGeneric(opts ...Option) *Generic {
	return &Generic{opts: buildOptions(opts)}
}

// SplitRanges implements Splitter. Pieces are trimmed of surrounding blank
// space and whitespace-only pieces are dropped.
func (g *Generic) SplitRanges(text string, start, end int) []Piece {
	var out []Piece
	current := Piece{Start: -1}
	emit := func(p Piece) {
		if p = Trim(text, p); p.Len() > 0 {
			out = append(out, p)
		}
	}

	for _, para := range Paragraphs(text, start, end) {
		if para.Len() > g.opts.chunkSize {
			if current.Start >= 0 {
				emit(current)
				current = Piece{Start: -1}
			}
			for _, w := range LineWindows(text, para.Start, para.End, g.opts.maxLines, g.opts.chunkSize) {
				emit(w)
			}
			continue
		}
		if current.Start >= 0 && para.End-current.Start <= g.opts.chunkSize &&
			CountLines(text[current.Start:para.End]) <= g.opts.maxLines {
			current.End = para.End
			continue
		}
		if current.Start >= 0 {
			emit(current)
		}
		current = Piece{Start: para.Start, End: para.End, Method: MethodParagraph}
	}
	if current.Start >= 0 {
		emit(current)
	}
	return out
}

// Paragraphs splits text[start:end] at blank lines. The pieces are
// contiguous; the blank lines belong to the paragraph before them.
func Paragraphs(text string, start, end int) []Piece {
	var out []Piece
	paraStart := start
	blank := false
	for pos := start; pos < end; {
		lineEnd := end
		if idx := strings.IndexByte(text[pos:end], '\n'); idx >= 0 {
			lineEnd = pos + idx + 1
		}
		isBlank := strings.TrimSpace(text[pos:lineEnd]) == ""
		if blank && !isBlank && pos > paraStart {
			out = append(out, Piece{Start: paraStart, End: pos, Method: MethodParagraph})
			paraStart = pos
		}
		blank = isBlank
		pos = lineEnd
	}
	if paraStart < end {
		out = append(out, Piece{Start: paraStart, End: end, Method: MethodParagraph})
	}
	return out
}

// Trim shrinks p so it starts and ends on non-whitespace bytes. The result
// is empty when p only covers whitespace.
func Trim(text string, p Piece) Piece {
	s, e := p.Start, p.End
	for s < e && isSpaceByte(text[s]) {
		s++
	}
	for e > s && isSpaceByte(text[e-1]) {
		e--
	}
	p.Start, p.End = s, e
	return p
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
