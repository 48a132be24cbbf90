package parsers

import (
	"path/filepath"
	"strings"
)

// wellKnownFiles maps extensionless or conventional file names to languages.
var wellKnownFiles = map[string]string{
	"makefile":       "makefile",
	"gnumakefile":    "makefile",
	"dockerfile":     "dockerfile",
	"containerfile":  "dockerfile",
	"gemfile":        "ruby",
	"rakefile":       "ruby",
	"podfile":        "ruby",
	"vagrantfile":    "ruby",
	"jenkinsfile":    "groovy",
	"build.gradle":   "groovy",
	"cmakelists.txt": "cmake",
	"justfile":       "makefile",
	"readme":         "text",
	"license":        "text",
}

// extraExtensions covers languages that have a parser but no delimiter
// definition.
var extraExtensions = map[string]string{
	".html": "html",
	".htm":  "html",
	".toml": "toml",
	".ml":   "ocaml",
	".mli":  "ocaml",
	".exs":  "elixir",
	".txt":  "text",
	".csv":  "csv",
	".tsv":  "csv",
	".pdf":  "pdf",
}

// DetectLanguage maps a path to a language tag using well-known file names,
// then the extension tables of the delimiter definitions and plugins. It
// returns "" when nothing matches.
func (r *Registry) DetectLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if lang, ok := wellKnownFiles[base]; ok {
		return lang
	}
	if strings.HasPrefix(base, "dockerfile.") || strings.HasSuffix(base, ".dockerfile") {
		return "dockerfile"
	}

	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		return ""
	}
	if lang, ok := r.delimiter.Definitions().LanguageForExtension(ext); ok {
		return lang
	}
	if lang, ok := extraExtensions[ext]; ok {
		return lang
	}
	if plugin, err := r.GetParserForExtension(ext); err == nil {
		return plugin.Name()
	}
	return ""
}
