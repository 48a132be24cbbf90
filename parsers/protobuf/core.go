// Package protobuf reports messages, services, enums and their members from
// Protocol Buffer definitions.
package protobuf

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

// ProtobufParser implements schema.ParserPlugin for .proto files.
type ProtobufParser struct {
	logger *slog.Logger
}

// NewProtobufParser is the factory function that creates a new Protobuf parser plugin.
func NewProtobufParser(logger *slog.Logger) schema.ParserPlugin {
	return &ProtobufParser{
		logger: logger,
	}
}

func (p *ProtobufParser) Name() string {
	return "protobuf"
}

func (p *ProtobufParser) Extensions() []string {
	return []string{".proto"}
}

func (p *ProtobufParser) CanHandle(path string, info fs.FileInfo) bool {
	if info != nil && info.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".proto")
}
