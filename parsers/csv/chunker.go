package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sevigo/semchunk/schema"
)

// ErrInvalidCSV is returned when records cannot be read.
var ErrInvalidCSV = errors.New("invalid CSV")

const (
	defaultRowsPerGroup = 50
	defaultGroupChars   = 4000
)

type record struct {
	first, last int
	size        int
}

// Chunk reports the header row and groups of data rows. Groups are bounded
// by the line and character limits in opts.
func (p *CSVPlugin) Chunk(content string, path string, opts *schema.CodeChunkingOptions) ([]schema.Section, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	delimiter := detectDelimiter(content, path)
	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	idx := schema.NewLineIndex(content)
	var rows [][]string
	var records []record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCSV, path, err)
		}
		first, _ := reader.FieldPos(0)
		// FieldPos reports where a field starts; quoted fields may span lines.
		last := max(idx.Line(int(reader.InputOffset())-1), first)
		size := 0
		for _, f := range row {
			size += len(f) + 1
		}
		rows = append(rows, row)
		records = append(records, record{first: first, last: last, size: size})
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var sections []schema.Section
	columns := ""
	data := records
	if hasHeader(rows) {
		columns = strings.Join(rows[0], ",")
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sections = append(sections, schema.Section{
			LineStart:  records[0].first,
			LineEnd:    records[0].last,
			Type:       "header",
			Identifier: "header",
			Category:   schema.CategoryTypeExpression,
			Annotations: map[string]string{
				"columns":   columns,
				"label":     cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(base)),
				"delimiter": string(delimiter),
			},
		})
		data = records[1:]
	}

	maxRows, maxChars := defaultRowsPerGroup, defaultGroupChars
	if opts != nil {
		if opts.MaxLinesPerChunk > 0 {
			maxRows = opts.MaxLinesPerChunk
		}
		if opts.MaxChunkChars > 0 {
			maxChars = opts.MaxChunkChars
		}
	}

	for start := 0; start < len(data); {
		end, chars := start, 0
		for end < len(data) && end-start < maxRows && (end == start || chars+data[end].size <= maxChars) {
			chars += data[end].size
			end++
		}
		group := data[start:end]
		annotations := map[string]string{"rows": strconv.Itoa(len(group))}
		if columns != "" {
			annotations["columns"] = columns
		}
		sections = append(sections, schema.Section{
			LineStart:   group[0].first,
			LineEnd:     group[len(group)-1].last,
			Type:        "rows",
			Identifier:  fmt.Sprintf("rows %d-%d", group[0].first, group[len(group)-1].last),
			Category:    schema.CategoryData,
			Annotations: annotations,
		})
		start = end
	}

	p.logger.Debug("CSV sections extracted", "path", path, "rows", len(data), "sections", len(sections))
	return sections, nil
}

func detectDelimiter(content, path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	firstLine, _, _ := strings.Cut(content, "\n")
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(firstLine, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// hasHeader treats the first row as a header when none of its fields is
// numeric and the second row has at least one numeric field, or when the
// first row has distinct non-empty names.
func hasHeader(rows [][]string) bool {
	seen := make(map[string]bool)
	for _, f := range rows[0] {
		f = strings.TrimSpace(f)
		if f == "" || isNumeric(f) || seen[f] {
			return false
		}
		seen[f] = true
	}
	if len(rows) < 2 {
		return true
	}
	for _, f := range rows[1] {
		if isNumeric(strings.TrimSpace(f)) {
			return true
		}
	}
	return len(rows[0]) > 1
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '-' && r != '/' }) < 0
}
