// Package delimiter chunks files that have no grammar support. Units are
// found by per-language start patterns grouped into families; anything the
// patterns miss falls back to blank-line paragraphs and line windows.
package delimiter

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/schema"
	"github.com/sevigo/semchunk/textsplitter"
)

const (
	defaultMaxNesting = 4

	unitConfidence    = 0.5
	sectionConfidence = 0.6
	gapConfidence     = 0.3
	genericConfidence = 0.2
)

// Chunker is the delimiter tier. It is safe for concurrent use.
type Chunker struct {
	defs       *Definitions
	logger     *slog.Logger
	maxNesting int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxNesting bounds how deep oversized units are re-scanned for nested
// units before falling back to line windows.
func WithMaxNesting(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.maxNesting = n
		}
	}
}

func New(defs *Definitions, logger *slog.Logger, opts ...Option) *Chunker {
	if defs == nil {
		defs = NewDefinitions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chunker{
		defs:       defs,
		logger:     logger.With("component", "delimiter_chunker"),
		maxNesting: defaultMaxNesting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Definitions returns the definition set used by the chunker.
func (c *Chunker) Definitions() *Definitions { return c.defs }

// Supports reports whether a definition exists for the language.
func (c *Chunker) Supports(language string) bool { return c.defs.Has(language) }

// unit is a classified byte range. Units found by a definition are
// re-scanned lazily when oversized; plugin units carry their children.
type unit struct {
	start, end int
	header     int // end of the first line, where nested scans begin
	meta       schema.SemanticMetadata
	def        *compiled
	children   []unit
	gap        bool
}

// Chunk splits the request along the language's delimiter definitions.
// Without definitions, or when none of them match, it returns the generic
// chunking of the file.
func (c *Chunker) Chunk(gov *governor.Governor, req schema.ChunkRequest) ([]schema.CodeChunk, error) {
	defs := c.defs.lookup(req.Language)
	if len(defs) == 0 {
		return c.ChunkGeneric(gov, req)
	}

	e := c.newEmitter(gov, req, schema.SourceDelimiter)
	units := scanUnits(defs, req.Content, 0, len(req.Content), 0)
	if len(units) == 0 {
		c.logger.Debug("No delimiter unit matched, using generic chunker", "path", req.Path, "language", req.Language)
		return c.ChunkGeneric(gov, req)
	}
	if err := e.emitUnits(withGaps(units, 0, len(req.Content), 0, nil), 0); err != nil {
		return e.result(err)
	}
	return e.result(nil)
}

// ChunkSections turns sections reported by a format plugin into chunks.
// Sections nested inside another section become its children and are only
// used when the parent is oversized.
func (c *Chunker) ChunkSections(gov *governor.Governor, req schema.ChunkRequest, sections []schema.Section, origin string) ([]schema.CodeChunk, error) {
	if len(sections) == 0 {
		return c.Chunk(gov, req)
	}
	idx := schema.NewLineIndex(req.Content)
	flat := make([]unit, 0, len(sections))
	for _, s := range sections {
		start, end := idx.LineRange(s.LineStart, s.LineEnd)
		if end <= start {
			continue
		}
		flat = append(flat, unit{start: start, end: end, header: lineEnd(req.Content, start), meta: sectionMetadata(s, origin)})
	}
	units := nest(flat)
	if len(units) == 0 {
		return c.Chunk(gov, req)
	}

	e := c.newEmitter(gov, req, schema.SourceDelimiter)
	if err := e.emitUnits(withGaps(units, 0, len(req.Content), 0, nil), 0); err != nil {
		return e.result(err)
	}
	return e.result(nil)
}

// ChunkGeneric is the last tier: blank-line paragraphs merged up to the
// chunk size, then line windows. It never returns zero chunks for content
// that is not blank.
func (c *Chunker) ChunkGeneric(gov *governor.Governor, req schema.ChunkRequest) ([]schema.CodeChunk, error) {
	e := c.newEmitter(gov, req, schema.SourceGeneric)
	splitter := textsplitter.NewGeneric(
		textsplitter.WithChunkSize(e.params.MaxChunkChars),
		textsplitter.WithMaxLines(e.params.MaxLinesPerChunk),
	)
	for _, p := range splitter.SplitRanges(req.Content, 0, len(req.Content)) {
		if err := gov.CheckTime(); err != nil {
			return e.result(err)
		}
		meta := schema.SemanticMetadata{
			Category:   schema.CategoryStructural,
			Tier:       schema.CategoryStructural.DefaultTier(),
			Confidence: genericConfidence,
			Method:     schema.MethodDelimiter,
			Evidence:   "generic " + p.Method,
		}
		if p.Method != textsplitter.MethodParagraph {
			meta.Degradation = p.Method
		}
		if err := e.emit(p.Start, p.End, meta); err != nil {
			return e.result(err)
		}
	}
	return e.result(nil)
}

func scanUnits(defs []*compiled, text string, start, end, depth int) []unit {
	lines := splitLines(text, start, end)
	var units []unit
	for _, def := range defs {
		for _, s := range def.scan(lines) {
			u := unit{
				start:  lines[s.first].start,
				end:    lines[s.last].end,
				header: lines[min(s.first+headerOffset(lines, s), s.last)].end,
				def:    def,
				meta:   unitMetadata(def, s.m, depth),
			}
			units = append(units, u)
		}
	}
	slices.SortStableFunc(units, func(a, b unit) int { return cmp.Compare(a.start, b.start) })

	// Drop units overlapping an earlier one when several definitions match.
	out := units[:0]
	floor := start
	for _, u := range units {
		if u.start < floor {
			continue
		}
		out = append(out, u)
		floor = u.end
	}
	return out
}

// headerOffset skips the comment and decorator lines attached above a unit
// so that nested scans start after the unit's own start line.
func headerOffset(lines []line, s span) int {
	off := 0
	for i := s.first; i < s.last; i++ {
		t := strings.TrimSpace(lines[i].text)
		if t == "" || strings.HasPrefix(t, "@") || strings.HasPrefix(t, "#[") || strings.HasPrefix(t, "/") ||
			strings.HasPrefix(t, "*") || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "--") || strings.HasPrefix(t, ";") {
			off++
			continue
		}
		break
	}
	return off
}

// nest sorts units and moves units contained in another into its children.
func nest(flat []unit) []unit {
	slices.SortStableFunc(flat, func(a, b unit) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(b.end, a.end)
	})
	var build func(items []unit) []unit
	build = func(items []unit) []unit {
		var out []unit
		for i := 0; i < len(items); {
			parent := items[i]
			j := i + 1
			for j < len(items) && items[j].end <= parent.end {
				j++
			}
			if j > i+1 {
				parent.children = build(items[i+1 : j])
			}
			if len(out) > 0 && parent.start < out[len(out)-1].end {
				// Partial overlap with the previous sibling; keep the first.
				i = j
				continue
			}
			out = append(out, parent)
			i = j
		}
		return out
	}
	return build(flat)
}

// withGaps interleaves units with the uncovered ranges between them.
func withGaps(units []unit, start, end, depth int, parent *schema.SemanticMetadata) []unit {
	gapMeta := schema.SemanticMetadata{
		Category:     schema.CategoryStructural,
		Tier:         schema.CategoryStructural.DefaultTier(),
		Confidence:   gapConfidence,
		Method:       schema.MethodDelimiter,
		Evidence:     "text between units",
		NestingDepth: depth,
	}
	if parent != nil {
		gapMeta = *parent
	}

	out := make([]unit, 0, 2*len(units)+1)
	pos := start
	for _, u := range units {
		if u.start > pos {
			out = append(out, unit{start: pos, end: u.start, meta: gapMeta, gap: true})
		}
		out = append(out, u)
		pos = max(pos, u.end)
	}
	if pos < end {
		out = append(out, unit{start: pos, end: end, meta: gapMeta, gap: true})
	}
	return out
}

func unitMetadata(def *compiled, m match, depth int) schema.SemanticMetadata {
	category := categoryForKind(m.kind)
	if def.Family == FamilyHeading && category == schema.CategoryStructural {
		category = schema.CategoryDocumentation
	}
	return schema.SemanticMetadata{
		Category:     category,
		Tier:         category.DefaultTier(),
		Confidence:   unitConfidence,
		Method:       schema.MethodDelimiter,
		Evidence:     fmt.Sprintf("%s family, definition %s", def.Family, def.Name),
		NodeType:     m.kind,
		Name:         m.name,
		NestingDepth: depth,
		Annotations: map[string]string{
			"family":     string(def.Family),
			"definition": def.Name,
		},
	}
}

func sectionMetadata(s schema.Section, origin string) schema.SemanticMetadata {
	category := s.Category
	if category == "" {
		category = categoryForKind(s.Type)
	}
	annotations := map[string]string{"plugin": origin}
	maps.Copy(annotations, s.Annotations)
	return schema.SemanticMetadata{
		Category:     category,
		Tier:         category.DefaultTier(),
		Confidence:   sectionConfidence,
		Method:       schema.MethodDelimiter,
		Evidence:     origin + " section",
		NodeType:     s.Type,
		Name:         s.Identifier,
		NestingDepth: s.Depth,
		Annotations:  annotations,
	}
}

func lineEnd(text string, pos int) int {
	if idx := strings.IndexByte(text[pos:], '\n'); idx >= 0 {
		return pos + idx
	}
	return len(text)
}

// emitter collects the chunks of one call.
type emitter struct {
	c      *Chunker
	gov    *governor.Governor
	req    schema.ChunkRequest
	source schema.ChunkSource
	lines  *schema.LineIndex
	params textsplitter.Parameters
	chunks []schema.CodeChunk
}

func (c *Chunker) newEmitter(gov *governor.Governor, req schema.ChunkRequest, source schema.ChunkSource) *emitter {
	return &emitter{
		c:      c,
		gov:    gov,
		req:    req,
		source: source,
		lines:  schema.NewLineIndex(req.Content),
		params: textsplitter.Recommend(req.Path, len(req.Content), textsplitter.Parameters{
			MaxChunkChars:    req.Options.MaxChunkChars,
			MinChunkChars:    req.Options.MinChunkChars,
			MaxLinesPerChunk: req.Options.MaxLinesPerChunk,
		}),
	}
}

// result applies the shared breach policy: the chunk limit keeps what was
// gathered, any other error drops it.
func (e *emitter) result(err error) ([]schema.CodeChunk, error) {
	if err == nil {
		e.c.logger.Debug("Delimiter chunking finished", "path", e.req.Path, "source", e.source, "chunks", len(e.chunks))
		return e.chunks, nil
	}
	var limitErr *governor.ChunkLimitExceededError
	if errors.As(err, &limitErr) {
		e.c.logger.Warn("Chunk limit reached, keeping first chunks", "path", e.req.Path, "kept", len(e.chunks), "limit", limitErr.Limit)
		return e.chunks, err
	}
	return nil, err
}

// emitUnits emits a sequence of units and gaps. Insignificant gaps are
// dropped and runs of small neighbours are merged up to the chunk size.
func (e *emitter) emitUnits(units []unit, depth int) error {
	maxChars := e.params.MaxChunkChars
	var run []unit

	flush := func() error {
		defer func() { run = run[:0] }()
		switch len(run) {
		case 0:
			return nil
		case 1:
			return e.emitUnit(run[0], depth)
		}
		// The merged chunk takes the metadata of its first real unit.
		meta := run[0].meta
		var names []string
		picked := !run[0].gap
		for _, u := range run {
			if u.gap {
				continue
			}
			if !picked {
				meta, picked = u.meta, true
			}
			if u.meta.Name != "" {
				names = append(names, u.meta.Name)
			}
		}
		meta = withAnnotation(meta, "merged", strconv.Itoa(len(run)))
		if len(names) > 0 {
			meta = withAnnotation(meta, "names", strings.Join(names, ","))
		}
		return e.emit(run[0].start, run[len(run)-1].end, meta)
	}

	for _, u := range units {
		if err := e.gov.CheckTime(); err != nil {
			return err
		}
		p := textsplitter.Trim(e.req.Content, textsplitter.Piece{Start: u.start, End: u.end})
		if p.Len() == 0 || (u.gap && !textsplitter.HasSignificantContent(p.Text(e.req.Content), 1)) {
			continue
		}
		u.start, u.end = p.Start, p.End

		small := u.end-u.start <= maxChars/4
		if small && len(run) > 0 && u.end-run[0].start <= maxChars {
			run = append(run, u)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if small {
			run = append(run, u)
			continue
		}
		if err := e.emitUnit(u, depth); err != nil {
			return err
		}
	}
	return flush()
}

func (e *emitter) emitUnit(u unit, depth int) error {
	if u.end-u.start <= e.params.MaxChunkChars {
		return e.emit(u.start, u.end, u.meta)
	}

	if !u.gap && depth < e.c.maxNesting {
		if err := e.gov.Step(depth + 1); err != nil {
			return err
		}
		children := u.children
		if children == nil && u.def != nil && u.header < u.end {
			children = scanUnits([]*compiled{u.def}, e.req.Content, u.header, u.end, depth+1)
		}
		if len(children) > 0 {
			parent := u.meta
			parent.Degradation = schema.DegradationChildrenSplit
			for i := range children {
				children[i].meta.Degradation = schema.DegradationChildrenSplit
				children[i].meta = withAnnotation(children[i].meta, "parent", cmp.Or(u.meta.Name, u.meta.NodeType))
			}
			return e.emitUnits(withGaps(children, u.start, u.end, depth+1, &parent), depth+1)
		}
	}
	return e.lineSplit(u.start, u.end, u.meta)
}

func (e *emitter) lineSplit(start, end int, meta schema.SemanticMetadata) error {
	var pieces []textsplitter.Piece
	for _, p := range textsplitter.LineWindows(e.req.Content, start, end, e.params.MaxLinesPerChunk, e.params.MaxChunkChars) {
		if p = textsplitter.Trim(e.req.Content, p); p.Len() > 0 {
			pieces = append(pieces, p)
		}
	}
	for i, p := range pieces {
		m := withAnnotation(meta, "part", fmt.Sprintf("%d/%d", i+1, len(pieces)))
		m.Degradation = p.Method
		if err := e.emit(p.Start, p.End, m); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) emit(start, end int, meta schema.SemanticMetadata) error {
	if err := e.gov.AddChunk(); err != nil {
		return err
	}
	span, err := e.lines.Span(start, end)
	if err != nil {
		return err
	}
	language := strings.ToLower(e.req.Language)
	e.chunks = append(e.chunks, schema.NewCodeChunk(e.req.Path, language, e.req.Content[start:end], span, meta, e.source))
	return nil
}

func withAnnotation(meta schema.SemanticMetadata, key, value string) schema.SemanticMetadata {
	annotations := make(map[string]string, len(meta.Annotations)+1)
	maps.Copy(annotations, meta.Annotations)
	annotations[key] = value
	meta.Annotations = annotations
	return meta
}
