package semantic

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sevigo/semchunk/classify"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/schema"
	"github.com/sevigo/semchunk/textsplitter"
)

const maxNameLength = 128

// walker holds the state of one Chunk call.
type walker struct {
	c      *Chunker
	gov    *governor.Governor
	req    schema.ChunkRequest
	lang   string
	src    []byte
	text   string
	lines  *schema.LineIndex
	params textsplitter.Parameters
	root   *sitter.Node
	chunks []schema.CodeChunk
}

// region is a classified byte range waiting to become one or more chunks.
type region struct {
	start, end  int
	node        *sitter.Node
	res         classify.Result
	nesting     int
	degradation string
	parent      string
}

func newWalker(c *Chunker, gov *governor.Governor, req schema.ChunkRequest, language string) *walker {
	return &walker{
		c:      c,
		gov:    gov,
		req:    req,
		lang:   language,
		src:    []byte(req.Content),
		text:   req.Content,
		lines:  schema.NewLineIndex(req.Content),
		params: limits(req),
	}
}

func (w *walker) visit(node *sitter.Node, depth, nesting int) error {
	if err := w.gov.Step(depth); err != nil {
		return err
	}
	if depth == 0 {
		w.root = node
	}
	// Nothing under a node smaller than the minimum can qualify either.
	if size(node) < w.params.MinChunkChars {
		return nil
	}
	if node.IsNamed() && node.Type() != "ERROR" && depth > 0 {
		res := w.classify(node)
		if w.qualifies(res) {
			return w.emitRegion(w.regionFor(node, res, nesting), depth)
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if err := w.visit(node.NamedChild(i), depth+1, nesting); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) qualifies(res classify.Result) bool {
	return res.Tier <= w.c.boundaryTier && res.Confidence >= w.c.minConfidence
}

func (w *walker) classify(node *sitter.Node) classify.Result {
	nc := classify.NodeContext{
		Type:       node.Type(),
		Language:   w.lang,
		Named:      node.IsNamed(),
		ChildTypes: childTypes(node),
	}
	if parent := node.Parent(); parent != nil {
		nc.Parent = parent.Type()
	}
	if prev := node.PrevSibling(); prev != nil {
		nc.PrevSibling = prev.Type()
	}
	if next := node.NextSibling(); next != nil {
		nc.NextSibling = next.Type()
	}
	return w.c.router.Classify(nc)
}

func (w *walker) regionFor(node *sitter.Node, res classify.Result, nesting int) region {
	return region{
		start:   w.leadingStart(node),
		end:     int(node.EndByte()),
		node:    node,
		res:     res,
		nesting: nesting,
	}
}

// leadingStart extends a node backwards over the comments directly above it.
func (w *walker) leadingStart(node *sitter.Node) int {
	start := int(node.StartByte())
	row := node.StartPoint().Row
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if !prev.IsNamed() && strings.TrimSpace(prev.Content(w.src)) == "" {
			continue
		}
		if !strings.Contains(prev.Type(), "comment") || prev.EndPoint().Row+1 < row {
			break
		}
		start = int(prev.StartByte())
		row = prev.StartPoint().Row
	}
	return start
}

func (w *walker) emitRegion(r region, depth int) error {
	if r.end-r.start <= w.params.MaxChunkChars {
		return w.emit(r.start, r.end, w.metadata(r))
	}

	subs, err := w.definitionsWithin(r, depth)
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		return w.childrenSplit(r, subs, depth)
	}
	return w.lineSplit(r.start, r.end, w.metadata(r))
}

// definitionsWithin finds the callable and type definitions nested in r,
// looking through a bounded number of wrapper nodes.
func (w *walker) definitionsWithin(r region, depth int) ([]region, error) {
	var out []region
	parent := r.node.Type()
	if name := nodeName(r.node, w.src); name != "" {
		parent = name
	}

	var collect func(n *sitter.Node, d, hops int) error
	collect = func(n *sitter.Node, d, hops int) error {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if err := w.gov.Step(d); err != nil {
				return err
			}
			if size(child) < w.params.MinChunkChars {
				continue
			}
			res := w.classify(child)
			if res.Tier == schema.TierCritical && w.qualifies(res) {
				sub := w.regionFor(child, res, r.nesting+1)
				sub.degradation = schema.DegradationChildrenSplit
				sub.parent = parent
				out = append(out, sub)
				continue
			}
			if hops < wrapperDepth {
				if err := collect(child, d+1, hops+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	err := collect(r.node, depth+1, 0)
	return out, err
}

// childrenSplit emits the nested definitions of an oversized region and the
// significant text between them. Runs of small adjacent definitions are
// merged up to the chunk size.
func (w *walker) childrenSplit(r region, subs []region, depth int) error {
	maxChars := w.params.MaxChunkChars
	parentMeta := w.metadata(r)
	parentMeta.Degradation = schema.DegradationChildrenSplit

	var run []region
	flush := func() error {
		defer func() { run = run[:0] }()
		switch len(run) {
		case 0:
			return nil
		case 1:
			return w.emitRegion(run[0], depth+1)
		}
		meta := w.metadata(run[0])
		names := make([]string, 0, len(run))
		for _, sub := range run {
			if name := nodeName(sub.node, w.src); name != "" {
				names = append(names, name)
			}
		}
		meta = withAnnotation(meta, "merged", strconv.Itoa(len(run)))
		if len(names) > 0 {
			meta = withAnnotation(meta, "names", strings.Join(names, ","))
		}
		return w.emit(run[0].start, run[len(run)-1].end, meta)
	}

	emitGap := func(start, end int) error {
		piece := textsplitter.Trim(w.text, textsplitter.Piece{Start: start, End: end})
		if piece.Len() == 0 || !textsplitter.HasSignificantContent(piece.Text(w.text), 1) {
			return nil
		}
		if err := flush(); err != nil {
			return err
		}
		if piece.Len() > maxChars {
			return w.lineSplit(piece.Start, piece.End, parentMeta)
		}
		return w.emit(piece.Start, piece.End, parentMeta)
	}

	pos := r.start
	for _, sub := range subs {
		if sub.start > pos {
			if err := emitGap(pos, sub.start); err != nil {
				return err
			}
		}
		pos = sub.end

		small := sub.end-sub.start <= maxChars/4
		if small && len(run) > 0 && sub.end-run[0].start <= maxChars {
			run = append(run, sub)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if small {
			run = append(run, sub)
			continue
		}
		if err := w.emitRegion(sub, depth+1); err != nil {
			return err
		}
	}
	if pos < r.end {
		if err := emitGap(pos, r.end); err != nil {
			return err
		}
	}
	return flush()
}

// lineSplit cuts [start, end) into line windows; over-long lines are hard cut.
func (w *walker) lineSplit(start, end int, meta schema.SemanticMetadata) error {
	var pieces []textsplitter.Piece
	for _, p := range textsplitter.LineWindows(w.text, start, end, w.params.MaxLinesPerChunk, w.params.MaxChunkChars) {
		if p = textsplitter.Trim(w.text, p); p.Len() > 0 {
			pieces = append(pieces, p)
		}
	}
	for i, p := range pieces {
		m := withAnnotation(meta, "part", fmt.Sprintf("%d/%d", i+1, len(pieces)))
		m.Degradation = p.Method
		if err := w.emit(p.Start, p.End, m); err != nil {
			return err
		}
	}
	return nil
}

// emitTopLevelGaps emits runs of top-level code that no chunk covers, such
// as a script entry block between definitions. Runs made only of package
// clauses, imports and comments are left out. Chunks end up in file order.
func (w *walker) emitTopLevelGaps() error {
	if w.root == nil {
		return nil
	}
	defer func() {
		slices.SortStableFunc(w.chunks, func(a, b schema.CodeChunk) int {
			return cmp.Compare(a.Span.StartByte, b.Span.StartByte)
		})
	}()

	covered := make([][2]int, 0, len(w.chunks))
	for _, ch := range w.chunks {
		covered = append(covered, [2]int{ch.Span.StartByte, ch.Span.EndByte})
	}
	overlaps := func(n *sitter.Node) bool {
		start, end := int(n.StartByte()), int(n.EndByte())
		for _, c := range covered {
			if start < c[1] && c[0] < end {
				return true
			}
		}
		return false
	}

	var run []*sitter.Node
	flush := func() error {
		defer func() { run = run[:0] }()
		var lead *sitter.Node
		var res classify.Result
		for _, n := range run {
			r := w.classify(n)
			switch r.Category {
			case schema.CategoryModule, schema.CategoryDocumentation, schema.CategorySyntax:
				continue
			}
			lead, res = n, r
			break
		}
		if lead == nil {
			return nil
		}
		piece := textsplitter.Trim(w.text, textsplitter.Piece{Start: int(run[0].StartByte()), End: int(run[len(run)-1].EndByte())})
		if piece.Len() < w.params.MinChunkChars || !textsplitter.HasSignificantContent(piece.Text(w.text), 1) {
			return nil
		}
		meta := withAnnotation(w.metadata(region{node: lead, res: res}), "scope", "top-level")
		if piece.Len() > w.params.MaxChunkChars {
			return w.lineSplit(piece.Start, piece.End, meta)
		}
		return w.emit(piece.Start, piece.End, meta)
	}

	for i := 0; i < int(w.root.NamedChildCount()); i++ {
		child := w.root.NamedChild(i)
		if overlaps(child) {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		run = append(run, child)
	}
	return flush()
}

// emitWholeFile covers a file in which no node qualified as a boundary.
func (w *walker) emitWholeFile() error {
	piece := textsplitter.Trim(w.text, textsplitter.Piece{Start: 0, End: len(w.text)})
	if piece.Len() == 0 {
		return nil
	}
	var meta schema.SemanticMetadata
	if w.root != nil {
		meta = w.metadata(region{node: w.root, res: w.classify(w.root)})
	} else {
		meta = schema.SemanticMetadata{Category: schema.CategoryStructural, Tier: schema.CategoryStructural.DefaultTier()}
	}
	meta = withAnnotation(meta, "scope", "file")
	if piece.Len() > w.params.MaxChunkChars {
		return w.lineSplit(piece.Start, piece.End, meta)
	}
	return w.emit(piece.Start, piece.End, meta)
}

func (w *walker) emit(start, end int, meta schema.SemanticMetadata) error {
	if err := w.gov.AddChunk(); err != nil {
		return err
	}
	span, err := w.lines.Span(start, end)
	if err != nil {
		return err
	}
	w.chunks = append(w.chunks, schema.NewCodeChunk(w.req.Path, w.lang, w.text[start:end], span, meta, schema.SourceSemantic))
	return nil
}

func (w *walker) metadata(r region) schema.SemanticMetadata {
	meta := r.res.Metadata(r.node.Type())
	meta.Name = nodeName(r.node, w.src)
	meta.NestingDepth = r.nesting
	meta.Degradation = r.degradation
	meta.Node = &schema.NodeSnapshot{
		Type:       r.node.Type(),
		Named:      r.node.IsNamed(),
		ChildTypes: childTypes(r.node),
	}
	if r.parent != "" {
		meta = withAnnotation(meta, "parent", r.parent)
	}
	return meta
}

func withAnnotation(meta schema.SemanticMetadata, key, value string) schema.SemanticMetadata {
	annotations := make(map[string]string, len(meta.Annotations)+1)
	maps.Copy(annotations, meta.Annotations)
	annotations[key] = value
	meta.Annotations = annotations
	return meta
}

func childTypes(node *sitter.Node) []string {
	n := int(node.NamedChildCount())
	if n == 0 {
		return nil
	}
	types := make([]string, 0, n)
	for i := 0; i < n; i++ {
		types = append(types, node.NamedChild(i).Type())
	}
	return types
}

func size(node *sitter.Node) int {
	return int(node.EndByte() - node.StartByte())
}

// nodeName finds the identifier a definition introduces, if any.
func nodeName(node *sitter.Node, src []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return truncateName(name.Content(src))
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "type_identifier", "field_identifier", "property_identifier", "constant":
			return truncateName(child.Content(src))
		case "type_spec", "function_declarator", "variable_declarator", "const_spec", "var_spec",
			"function_definition", "class_definition", "lexical_declaration":
			if name := nodeName(child, src); name != "" {
				return name
			}
		}
	}
	return ""
}

func truncateName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		return name[:maxNameLength]
	}
	return name
}
