package schema

import (
	"errors"
	"fmt"
	"os"
)

// ErrNoContent is returned by Load when a source file has no way to produce bytes.
var ErrNoContent = errors.New("source file has no content")

// SourceFile is what file discovery hands to the chunker.
type SourceFile struct {
	Path     string
	Language string
	Content  []byte
	Loader   func() ([]byte, error)
	SizeHint int64
}

// Load returns the inline content, then the loader's, then reads Path from disk.
func (f SourceFile) Load() ([]byte, error) {
	switch {
	case f.Content != nil:
		return f.Content, nil
	case f.Loader != nil:
		data, err := f.Loader()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.Path, err)
		}
		return data, nil
	case f.Path != "":
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}
		return data, nil
	}
	return nil, ErrNoContent
}

// WireFile is the plain form of a SourceFile sent to worker processes.
type WireFile struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Content  []byte `json:"content"`
	SizeHint int64  `json:"size_hint,omitempty"`
}

// Materialize loads the content so the file can be sent as plain data.
func (f SourceFile) Materialize() (WireFile, error) {
	data, err := f.Load()
	if err != nil {
		return WireFile{}, err
	}
	return WireFile{Path: f.Path, Language: f.Language, Content: data, SizeHint: f.SizeHint}, nil
}

// SourceFile converts the wire form back into an inline source file.
func (w WireFile) SourceFile() SourceFile {
	content := w.Content
	if content == nil {
		content = []byte{}
	}
	return SourceFile{Path: w.Path, Language: w.Language, Content: content, SizeHint: w.SizeHint}
}
