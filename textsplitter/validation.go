package textsplitter

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsBlank reports whether content holds only whitespace.
func IsBlank(content []byte) bool {
	return len(bytes.TrimSpace(content)) == 0
}

// IsSingleLine reports whether the trimmed content fits on one line.
func IsSingleLine(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	return len(trimmed) > 0 && !bytes.ContainsRune(trimmed, '\n')
}

// IsBinary sniffs the leading bytes of content. NUL bytes or a high share
// of control characters mark the content as binary.
func IsBinary(content []byte) bool {
	sample := content
	if len(sample) > binarySampleBytes {
		sample = sample[:binarySampleBytes]
	}
	if len(sample) == 0 {
		return false
	}

	nul := bytes.Count(sample, []byte{0})
	if float64(nul)/float64(len(sample)) >= binaryNULRatio {
		return true
	}

	control := 0
	for _, b := range sample {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' && b != 0x1b {
			control++
		}
	}
	if float64(control)/float64(len(sample)) > binaryControlRatio {
		return true
	}

	// Cut at the sample boundary may split a rune; only judge complete text.
	if len(content) <= binarySampleBytes && !utf8.Valid(sample) {
		return invalidRatio(sample) > binaryControlRatio
	}
	return false
}

func invalidRatio(b []byte) float64 {
	invalid, total := 0, 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		total++
		b = b[size:]
	}
	return float64(invalid) / float64(total)
}

// HasSignificantContent checks if content has meaningful text: enough
// letters or digits relative to the other visible characters.
func HasSignificantContent(content string, minChars int) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < minChars {
		return false
	}

	significantChars, totalNonWhitespaceChars := analyzeContentCharacters(trimmed)
	if totalNonWhitespaceChars == 0 {
		return false
	}

	significanceRatio := float64(significantChars) / float64(totalNonWhitespaceChars)
	return significanceRatio >= minSignificanceRatio && significantChars >= minSignificantChars
}

func analyzeContentCharacters(content string) (int, int) {
	var totalNonWhitespaceChars, significantChars = 0, 0

	for _, r := range content {
		if !unicode.IsSpace(r) {
			totalNonWhitespaceChars++
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				significantChars++
			}
		}
	}

	return significantChars, totalNonWhitespaceChars
}
