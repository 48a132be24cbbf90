package schema

import (
	"io/fs"
)

// ParserPlugin contributes structural boundaries for a file format that has
// no grammar support. Plugins are consumed by the delimiter tier.
type ParserPlugin interface {
	Name() string
	Extensions() []string
	CanHandle(path string, info fs.FileInfo) bool
	Chunk(content string, path string, opts *CodeChunkingOptions) ([]Section, error)
}

// TextExtractor is implemented by plugins whose files must be decoded to
// text before chunking.
type TextExtractor interface {
	ExtractText(content []byte) (string, error)
}

// Section is one boundary found by a plugin. Lines are 1-based and inclusive.
type Section struct {
	Content     string            `json:"content"`
	LineStart   int               `json:"lineStart"`
	LineEnd     int               `json:"lineEnd"`
	Type        string            `json:"type"`
	Identifier  string            `json:"identifier"`
	Category    Category          `json:"category"`
	Depth       int               `json:"depth"`
	Annotations map[string]string `json:"annotations"`
}

// CodeChunkingOptions are the size limits applied to one file.
type CodeChunkingOptions struct {
	MaxChunkChars    int `json:"max_chunk_chars,omitempty"`
	MinChunkChars    int `json:"min_chunk_chars,omitempty"`
	MaxLinesPerChunk int `json:"max_lines_per_chunk,omitempty"`
}

// ChunkRequest is one file handed to a chunking tier.
type ChunkRequest struct {
	Path     string
	Language string
	Content  string
	Options  CodeChunkingOptions
}
