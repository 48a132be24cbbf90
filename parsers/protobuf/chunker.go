package protobuf

import (
	"fmt"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	"github.com/yoheimuta/go-protoparser/v4/parser"
	"github.com/yoheimuta/go-protoparser/v4/parser/meta"

	"github.com/sevigo/semchunk/schema"
)

type walker struct {
	pkg      string
	sections []schema.Section
}

// Chunk parses the file and reports one section per definition. Nested
// messages, enums, oneofs and rpcs are reported with their depth.
func (p *ProtobufParser) Chunk(content string, path string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	parsed, err := protoparser.Parse(strings.NewReader(content),
		protoparser.WithDebug(false),
		protoparser.WithPermissive(false),
		protoparser.WithFilename(path),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse protobuf file: %w", err)
	}

	w := &walker{}
	for _, element := range parsed.ProtoBody {
		if pkg, ok := element.(*parser.Package); ok {
			w.pkg = pkg.Name
		}
	}
	w.visit(parsed.ProtoBody, "", 0)

	p.logger.Debug("Protobuf definitions extracted", "path", path, "package", w.pkg, "sections", len(w.sections))
	return w.sections, nil
}

func (w *walker) visit(body []parser.Visitee, parent string, depth int) {
	for _, element := range body {
		switch v := element.(type) {
		case *parser.Message:
			name := qualify(parent, v.MessageName)
			fields := 0
			for _, e := range v.MessageBody {
				if _, ok := e.(*parser.Field); ok {
					fields++
				}
			}
			w.add(v.Meta, v.Comments, "message", name, schema.CategoryTypeDefinition, depth,
				map[string]string{"field_count": strconv.Itoa(fields)})
			w.visit(v.MessageBody, name, depth+1)
		case *parser.Enum:
			w.add(v.Meta, v.Comments, "enum", qualify(parent, v.EnumName), schema.CategoryTypeDefinition, depth,
				map[string]string{"value_count": strconv.Itoa(len(v.EnumBody))})
		case *parser.Oneof:
			w.add(v.Meta, v.Comments, "oneof", qualify(parent, v.OneofName), schema.CategoryData, depth,
				map[string]string{"field_count": strconv.Itoa(len(v.OneofFields))})
		case *parser.Service:
			name := qualify(parent, v.ServiceName)
			w.add(v.Meta, v.Comments, "service", name, schema.CategoryTypeDefinition, depth, nil)
			w.visit(v.ServiceBody, name, depth+1)
		case *parser.RPC:
			annotations := map[string]string{}
			if v.RPCRequest != nil {
				annotations["request_type"] = v.RPCRequest.MessageType
				annotations["streams_request"] = strconv.FormatBool(v.RPCRequest.IsStream)
			}
			if v.RPCResponse != nil {
				annotations["response_type"] = v.RPCResponse.MessageType
				annotations["streams_response"] = strconv.FormatBool(v.RPCResponse.IsStream)
			}
			w.add(v.Meta, v.Comments, "rpc", qualify(parent, v.RPCName), schema.CategoryCallable, depth, annotations)
		case *parser.Extend:
			name := qualify(parent, v.MessageType)
			w.add(v.Meta, v.Comments, "extend", name, schema.CategoryTypeDefinition, depth, nil)
		}
	}
}

func (w *walker) add(m meta.Meta, comments []*parser.Comment, kind, name string, category schema.Category, depth int, annotations map[string]string) {
	start := m.Pos.Line
	for _, c := range comments {
		if c != nil && c.Meta.Pos.Line > 0 && c.Meta.Pos.Line < start {
			start = c.Meta.Pos.Line
		}
	}
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations["has_doc"] = strconv.FormatBool(len(comments) > 0)
	if w.pkg != "" {
		annotations["package"] = w.pkg
	}
	w.sections = append(w.sections, schema.Section{
		LineStart:   start,
		LineEnd:     max(m.LastPos.Line, m.Pos.Line),
		Type:        kind,
		Identifier:  name,
		Category:    category,
		Depth:       depth,
		Annotations: annotations,
	})
}

func qualify(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
