package schema

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"
)

// ErrInvalidSpan is returned when a span's bounds are inverted or negative.
var ErrInvalidSpan = errors.New("invalid span")

// ChunkSource records which chunking tier produced a chunk.
type ChunkSource string

const (
	SourceSemantic  ChunkSource = "semantic"
	SourceDelimiter ChunkSource = "delimiter"
	SourceGeneric   ChunkSource = "generic"
)

// Degradation methods applied to oversized units.
const (
	DegradationChildrenSplit = "children-split"
	DegradationLineSplit     = "line-split"
	DegradationRawSplit      = "raw-split"
)

// Span is a half-open byte range [StartByte, EndByte) with 1-based inclusive
// line bounds and 0-based column bounds.
type Span struct {
	StartByte   int `json:"start_byte"`
	EndByte     int `json:"end_byte"`
	StartLine   int `json:"start_line"`
	EndLine     int `json:"end_line"`
	StartColumn int `json:"start_column"`
	EndColumn   int `json:"end_column"`
}

// NewSpan validates the bounds and returns the span.
func NewSpan(startByte, endByte, startLine, endLine, startCol, endCol int) (Span, error) {
	if startByte < 0 || startByte > endByte {
		return Span{}, fmt.Errorf("%w: bytes [%d, %d)", ErrInvalidSpan, startByte, endByte)
	}
	if startLine < 1 || startLine > endLine {
		return Span{}, fmt.Errorf("%w: lines %d-%d", ErrInvalidSpan, startLine, endLine)
	}
	return Span{
		StartByte:   startByte,
		EndByte:     endByte,
		StartLine:   startLine,
		EndLine:     endLine,
		StartColumn: startCol,
		EndColumn:   endCol,
	}, nil
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.EndByte - s.StartByte }

// SpanForRange computes the span of content[start:end]. Callers that need
// many spans of one text should build a LineIndex once instead.
func SpanForRange(content string, start, end int) (Span, error) {
	return NewLineIndex(content).Span(start, end)
}

// NodeSnapshot is a fully materialized copy of the syntax node a chunk was
// classified from. It never references the parse tree.
type NodeSnapshot struct {
	Type       string   `json:"type"`
	Named      bool     `json:"named"`
	ChildTypes []string `json:"child_types,omitempty"`
}

// SemanticMetadata describes how a chunk was classified.
type SemanticMetadata struct {
	Category     Category          `json:"category"`
	Tier         Tier              `json:"tier"`
	Confidence   float64           `json:"confidence"`
	Method       Method            `json:"method,omitempty"`
	Evidence     string            `json:"evidence,omitempty"`
	NodeType     string            `json:"node_type,omitempty"`
	Name         string            `json:"name,omitempty"`
	Degradation  string            `json:"degradation,omitempty"`
	NestingDepth int               `json:"nesting_depth"`
	Annotations  map[string]string `json:"annotations,omitempty"`

	// Node is only populated in-process and is cleared by Detach.
	Node *NodeSnapshot `json:"-"`
}

// CodeChunk is the unit of output of every chunker.
type CodeChunk struct {
	ID          string           `json:"id"`
	FilePath    string           `json:"file_path"`
	Language    string           `json:"language"`
	Content     string           `json:"content"`
	Span        Span             `json:"span"`
	Metadata    SemanticMetadata `json:"metadata"`
	ContentHash string           `json:"content_hash"`
	BatchID     string           `json:"batch_id,omitempty"`
	Source      ChunkSource      `json:"source"`
}

// NewCodeChunk builds a chunk and derives its content hash and identifier.
func NewCodeChunk(path, language, content string, span Span, meta SemanticMetadata, source ChunkSource) CodeChunk {
	hash := ContentHash(content)
	return CodeChunk{
		ID:          chunkID(path, span, hash),
		FilePath:    path,
		Language:    language,
		Content:     content,
		Span:        span,
		Metadata:    meta,
		ContentHash: hash,
		Source:      source,
	}
}

// WithBatchID stamps the batch id once; a chunk that already carries one is
// returned unchanged.
func (c CodeChunk) WithBatchID(batchID string) CodeChunk {
	if c.BatchID == "" {
		c.BatchID = batchID
	}
	return c
}

// Detach drops every in-process reference so the chunk can cross a process
// boundary as plain data.
func (c CodeChunk) Detach() CodeChunk {
	c.Metadata.Node = nil
	if c.Metadata.Annotations != nil {
		annotations := make(map[string]string, len(c.Metadata.Annotations))
		for k, v := range c.Metadata.Annotations {
			annotations[k] = v
		}
		c.Metadata.Annotations = annotations
	}
	return c
}

// ContentHash returns the hex encoded 128-bit xxh3 digest of content.
func ContentHash(content string) string {
	sum := xxh3.HashString128(content).Bytes()
	return hex.EncodeToString(sum[:])
}

func chunkID(path string, span Span, hash string) string {
	h := xxh3.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strconv.Itoa(span.StartByte))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strconv.Itoa(span.EndByte))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(hash)
	return hex.EncodeToString(h.Sum(nil))
}
