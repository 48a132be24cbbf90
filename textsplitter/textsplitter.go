// Package textsplitter splits text into byte ranges. Every splitter here
// reports offsets into the original text instead of copies so callers can
// derive exact spans.
package textsplitter

// Piece is a half-open byte range [Start, End) of the text it was cut from.
type Piece struct {
	Start int
	End   int
	// Method names the strategy that produced the piece.
	Method string
}

// Len returns the size of the piece in bytes.
func (p Piece) Len() int { return p.End - p.Start }

// Text returns the bytes of text covered by p.
func (p Piece) Text(text string) string { return text[p.Start:p.End] }

// Splitter cuts a region of text into pieces no larger than its chunk size.
type Splitter interface {
	SplitRanges(text string, start, end int) []Piece
}
