package textsplitter

import "strings"

// LineWindows groups the lines of text[start:end] into windows of at most
// maxLines lines and maxChars bytes. A single line longer than maxChars is
// hard cut and its pieces are marked raw-split. Zero limits take defaults.
func LineWindows(text string, start, end, maxLines, maxChars int) []Piece {
	if start >= end {
		return nil
	}
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	if maxChars <= 0 {
		maxChars = defaultChunkSize
	}

	var out []Piece
	winStart, lines := -1, 0
	flush := func(at int) {
		if winStart >= 0 && at > winStart {
			out = append(out, Piece{Start: winStart, End: at, Method: MethodLineSplit})
		}
		winStart, lines = -1, 0
	}

	for pos := start; pos < end; {
		lineEnd := end
		if idx := strings.IndexByte(text[pos:end], '\n'); idx >= 0 {
			lineEnd = pos + idx + 1
		}

		if lineEnd-pos > maxChars {
			flush(pos)
			out = append(out, hardCut(text, pos, lineEnd, maxChars)...)
			pos = lineEnd
			continue
		}
		if winStart >= 0 && (lines >= maxLines || lineEnd-winStart > maxChars) {
			flush(pos)
		}
		if winStart < 0 {
			winStart = pos
		}
		lines++
		pos = lineEnd
	}
	flush(end)
	return out
}

// CountLines returns the number of lines in s. A trailing newline does not
// start a new line.
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
