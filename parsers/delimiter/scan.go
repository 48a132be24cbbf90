package delimiter

import (
	"strings"
)

const (
	// maxSignatureLines is how far a brace unit may look for its opening
	// brace before it is treated as a one-line declaration.
	maxSignatureLines = 5
	tabWidth          = 4
)

type line struct {
	start, end int // end excludes the newline
	text       string
	blank      bool
	indent     int
}

func splitLines(text string, start, end int) []line {
	var lines []line
	for pos := start; pos < end; {
		lineEnd := end
		next := end
		if idx := strings.IndexByte(text[pos:end], '\n'); idx >= 0 {
			lineEnd = pos + idx
			next = lineEnd + 1
		}
		t := strings.TrimSuffix(text[pos:lineEnd], "\r")
		lines = append(lines, line{
			start:  pos,
			end:    lineEnd,
			text:   t,
			blank:  strings.TrimSpace(t) == "",
			indent: indentWidth(t),
		})
		pos = next
	}
	return lines
}

func indentWidth(s string) int {
	width := 0
	for _, r := range s {
		switch r {
		case ' ':
			width++
		case '\t':
			width += tabWidth
		default:
			return width
		}
	}
	return width
}

// span is a unit found by a scan, as inclusive line indexes.
type span struct {
	first, last int
	m           match
}

func (c *compiled) scan(lines []line) []span {
	var spans []span
	switch c.Family {
	case FamilyBrace:
		spans = c.scanBalanced(lines, '{', '}')
	case FamilyLisp:
		spans = c.scanBalanced(lines, '(', ')')
	case FamilyIndent:
		spans = c.scanIndent(lines)
	case FamilyKeywordEnd:
		spans = c.scanKeywordEnd(lines)
	case FamilyHeading:
		return c.scanHeadings(lines)
	case FamilyStatement:
		spans = c.scanStatements(lines)
	}
	return c.attachLeading(lines, spans)
}

func (c *compiled) scanBalanced(lines []line, open, close byte) []span {
	var spans []span
	for i := 0; i < len(lines); i++ {
		if lines[i].blank || (c.Family == FamilyLisp && lines[i].indent > 0) {
			continue
		}
		m, ok := c.match(lines[i].text)
		if !ok {
			continue
		}
		last := c.balancedEnd(lines, i, open, close)
		spans = append(spans, span{first: i, last: last, m: m})
		i = last
	}
	return spans
}

// balancedEnd returns the line on which the brackets opened at or after
// line i balance again. A start line that never opens a bracket is a
// one-line declaration unless its signature continues.
func (c *compiled) balancedEnd(lines []line, i int, open, close byte) int {
	var counts bracketCounts
	inBlock := false
	for j := i; j < len(lines); j++ {
		counts.add(bracketDelta(lines[j].text, open, close, c.Comment, &inBlock))
		if counts.opened {
			if counts.depth <= 0 {
				return j
			}
			continue
		}
		if j+1 >= len(lines) {
			return j
		}
		next := lines[j+1]
		t := strings.TrimSpace(lines[j].text)
		switch {
		case counts.parens > 0 && j-i < maxSignatureLines:
			continue
		case strings.HasPrefix(strings.TrimSpace(next.text), string(open)):
			continue
		case strings.HasSuffix(t, ";"), next.blank, j-i >= maxSignatureLines:
			return j
		case counts.parenOpened && counts.parens <= 0:
			return j
		}
		if _, ok := c.match(next.text); ok {
			return j
		}
	}
	return len(lines) - 1
}

type bracketCounts struct {
	depth       int
	parens      int
	opened      bool
	parenOpened bool
}

func (b *bracketCounts) add(o bracketCounts) {
	b.depth += o.depth
	b.parens += o.parens
	b.opened = b.opened || o.opened
	b.parenOpened = b.parenOpened || o.parenOpened
}

// bracketDelta counts brackets outside strings and comments. Block comment
// state carries across lines through inBlock. Parentheses are tracked
// separately for brace languages.
func bracketDelta(s string, open, close byte, lineComment string, inBlock *bool) bracketCounts {
	var out bracketCounts
	var quote byte
	for k := 0; k < len(s); k++ {
		ch := s[k]
		if *inBlock {
			if ch == '*' && k+1 < len(s) && s[k+1] == '/' {
				*inBlock = false
				k++
			}
			continue
		}
		if quote != 0 {
			switch ch {
			case '\\':
				k++
			case quote:
				quote = 0
			}
			continue
		}
		if lineComment != "" && strings.HasPrefix(s[k:], lineComment) {
			break
		}
		switch ch {
		case '"', '`':
			quote = ch
		case '\'':
			// Only a char literal; lifetimes and quote forms are left alone.
			if k+2 < len(s) && (s[k+2] == '\'' || s[k+1] == '\\') {
				quote = ch
			}
		case '/':
			if open == '{' && k+1 < len(s) && s[k+1] == '*' {
				*inBlock = true
				k++
			}
		case open:
			out.depth++
			out.opened = true
		case close:
			out.depth--
		case '(':
			if open == '{' {
				out.parens++
				out.parenOpened = true
			}
		case ')':
			if open == '{' {
				out.parens--
			}
		}
	}
	return out
}

func (c *compiled) scanIndent(lines []line) []span {
	var spans []span
	for i := 0; i < len(lines); i++ {
		if lines[i].blank {
			continue
		}
		m, ok := c.match(lines[i].text)
		if !ok {
			continue
		}
		base := lines[i].indent
		last := i
		for j := i + 1; j < len(lines); j++ {
			if lines[j].blank {
				continue
			}
			t := strings.TrimSpace(lines[j].text)
			if lines[j].indent > base || (lines[j].indent == base && strings.IndexAny(t[:1], ")]}") == 0) {
				last = j
				continue
			}
			break
		}
		spans = append(spans, span{first: i, last: last, m: m})
		i = last
	}
	return spans
}

func (c *compiled) scanKeywordEnd(lines []line) []span {
	var spans []span
	for i := 0; i < len(lines); i++ {
		if lines[i].blank {
			continue
		}
		m, ok := c.match(lines[i].text)
		if !ok {
			continue
		}
		base := lines[i].indent
		last, lastBody := -1, i
		for j := i + 1; j < len(lines); j++ {
			if lines[j].blank {
				continue
			}
			t := strings.TrimSpace(lines[j].text)
			if lines[j].indent == base && c.end.MatchString(t) {
				last = j
				break
			}
			if lines[j].indent < base {
				break
			}
			if lines[j].indent == base {
				if _, next := c.match(t); next {
					break
				}
			}
			lastBody = j
		}
		if last < 0 {
			last = lastBody
		}
		spans = append(spans, span{first: i, last: last, m: m})
		i = last
	}
	return spans
}

type heading struct {
	idx   int
	level int
	m     match
}

func (c *compiled) headings(lines []line) []heading {
	var out []heading
	if !c.Underline {
		for i, l := range lines {
			if l.blank {
				continue
			}
			if m, ok := c.match(l.text); ok {
				out = append(out, heading{idx: i, level: m.level, m: m})
			}
		}
		return out
	}

	// Underlined titles: the adornment character decides the level in order
	// of first appearance.
	levels := make(map[byte]int)
	for i := 0; i+1 < len(lines); i++ {
		if lines[i].blank || lines[i].indent > 0 {
			continue
		}
		ch, ok := adornment(lines[i+1].text, len(strings.TrimSpace(lines[i].text)))
		if !ok {
			continue
		}
		m, matched := c.match(lines[i].text)
		if !matched {
			continue
		}
		if _, seen := levels[ch]; !seen {
			levels[ch] = len(levels) + 1
		}
		m.level = levels[ch]
		out = append(out, heading{idx: i, level: m.level, m: m})
		i++
	}
	return out
}

func adornment(s string, titleLen int) (byte, bool) {
	s = strings.TrimRight(s, " \t")
	if len(s) < 3 || len(s) < titleLen {
		return 0, false
	}
	ch := s[0]
	if strings.IndexByte("=-~^\"'`#*+_:.", ch) < 0 {
		return 0, false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != ch {
			return 0, false
		}
	}
	return ch, true
}

func (c *compiled) scanHeadings(lines []line) []span {
	hs := c.headings(lines)
	var spans []span
	for k := 0; k < len(hs); {
		h := hs[k]
		next := k + 1
		for next < len(hs) && hs[next].level > h.level {
			next++
		}
		last := len(lines) - 1
		if next < len(hs) {
			last = hs[next].idx - 1
		}
		spans = append(spans, span{first: h.idx, last: last, m: h.m})
		k = next
	}
	return spans
}

func (c *compiled) scanStatements(lines []line) []span {
	var spans []span
	for i := 0; i < len(lines); {
		if lines[i].blank || c.isComment(lines[i].text) {
			i++
			continue
		}
		first, last := i, len(lines)-1
		depth := 0
		var quote byte
	scan:
		for j := i; j < len(lines); j++ {
			s := lines[j].text
			for k := 0; k < len(s); k++ {
				ch := s[k]
				if quote != 0 {
					if ch == quote {
						quote = 0
					}
					continue
				}
				if c.Comment != "" && strings.HasPrefix(s[k:], c.Comment) {
					break
				}
				switch ch {
				case '\'', '"':
					quote = ch
				case '(':
					depth++
				case ')':
					depth--
				case ';':
					if depth <= 0 {
						last = j
						break scan
					}
				}
			}
		}
		m, ok := c.match(lines[first].text)
		if !ok {
			m = match{kind: firstWord(strings.TrimSpace(lines[first].text)), level: 1}
		}
		spans = append(spans, span{first: first, last: last, m: m})
		i = last + 1
	}
	return spans
}

func (c *compiled) isComment(text string) bool {
	t := strings.TrimSpace(text)
	if c.Comment != "" && strings.HasPrefix(t, c.Comment) {
		return true
	}
	if c.Family == FamilyBrace || c.Family == FamilyStatement {
		return strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*")
	}
	return false
}

// attachLeading extends each span upwards over adjacent comment, decorator
// and attribute lines that no earlier span owns.
func (c *compiled) attachLeading(lines []line, spans []span) []span {
	floor := 0
	for i := range spans {
		first := spans[i].first
		for first-1 >= floor && !lines[first-1].blank && c.isPrefixLine(lines[first-1].text) {
			first--
		}
		spans[i].first = first
		floor = spans[i].last + 1
	}
	return spans
}

func (c *compiled) isPrefixLine(text string) bool {
	if c.isComment(text) {
		return true
	}
	t := strings.TrimSpace(text)
	switch c.Family {
	case FamilyBrace, FamilyIndent:
		return strings.HasPrefix(t, "@") || strings.HasPrefix(t, "#[") ||
			(strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"))
	}
	return false
}
