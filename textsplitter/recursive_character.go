package textsplitter

import (
	"strings"
	"unicode/utf8"
)

// RecursiveCharacter is a text splitter that recursively tries to split text
// using a list of separators. It aims to keep semantically related parts of
// the text together as long as possible and falls back to a hard cut, so it
// always terminates.
type RecursiveCharacter struct {
	opts options
}

// NewRecursiveCharacter creates a new RecursiveCharacter text splitter.
func NewRecursiveCharacter(opts ...Option) *RecursiveCharacter {
	return &RecursiveCharacter{opts: buildOptions(opts)}
}

// ChunkSize returns the largest piece the splitter produces.
func (s *RecursiveCharacter) ChunkSize() int { return s.opts.chunkSize }

// SplitText splits text into strings no longer than the chunk size.
func (s *RecursiveCharacter) SplitText(text string) []string {
	pieces := s.SplitRanges(text, 0, len(text))
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.Text(text))
	}
	return out
}

// SplitRanges splits text[start:end] into contiguous pieces that together
// cover the region exactly. Separators stay attached to the piece on their
// left.
func (s *RecursiveCharacter) SplitRanges(text string, start, end int) []Piece {
	if start >= end {
		return nil
	}
	return s.splitRecursive(text, start, end, s.opts.separators)
}

func (s *RecursiveCharacter) splitRecursive(text string, start, end int, separators []string) []Piece {
	size := s.opts.chunkSize
	if end-start <= size {
		return []Piece{{Start: start, End: end, Method: MethodRecursive}}
	}
	if len(separators) == 0 || separators[0] == "" {
		return hardCut(text, start, end, size)
	}

	separator := separators[0]
	remaining := separators[1:]

	// Split at the separator, then merge neighbours while they fit.
	var merged []Piece
	current := Piece{Start: -1}
	for _, split := range splitAt(text, start, end, separator) {
		if current.Start >= 0 && split.End-current.Start <= size {
			current.End = split.End
			continue
		}
		if current.Start >= 0 {
			merged = append(merged, current)
		}
		current = split
	}
	if current.Start >= 0 {
		merged = append(merged, current)
	}

	var final []Piece
	for _, p := range merged {
		if p.Len() <= size {
			p.Method = MethodRecursive
			final = append(final, p)
			continue
		}
		final = append(final, s.splitRecursive(text, p.Start, p.End, remaining)...)
	}
	return final
}

func splitAt(text string, start, end int, separator string) []Piece {
	var out []Piece
	pos := start
	for pos < end {
		idx := strings.Index(text[pos:end], separator)
		if idx < 0 {
			out = append(out, Piece{Start: pos, End: end})
			break
		}
		cut := pos + idx + len(separator)
		out = append(out, Piece{Start: pos, End: cut})
		pos = cut
	}
	return out
}

// hardCut slices the region every size bytes without breaking a UTF-8
// sequence. A piece may exceed size only when a single rune is wider.
func hardCut(text string, start, end, size int) []Piece {
	var out []Piece
	pos := start
	for pos < end {
		cut := pos + size
		if cut >= end {
			cut = end
		} else {
			for cut > pos && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == pos {
				_, width := utf8.DecodeRuneInString(text[pos:end])
				cut = pos + width
			}
		}
		out = append(out, Piece{Start: pos, End: cut, Method: MethodRawSplit})
		pos = cut
	}
	return out
}
