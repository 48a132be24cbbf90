// Package documentloaders discovers source files for the chunking engine.
// Loaders return lazy SourceFiles; content is read only when a file is
// chunked.
package documentloaders

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sevigo/semchunk/schema"
)

// Loader discovers the files of one source.
type Loader interface {
	Load(ctx context.Context) ([]schema.SourceFile, error)
}

// DefaultMaxFileSize is 0: every file is listed and the engine reports the
// oversized ones.
const DefaultMaxFileSize = 0

type options struct {
	logger      *slog.Logger
	maxFileSize int64
	detect      func(path string) string
}

// Option configures a loader.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxFileSize skips files larger than n bytes. Skipped files never reach
// the engine, so they do not show up as too_large in run results.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.maxFileSize = n
	}
}

// WithLanguageDetector fills SourceFile.Language, typically with
// parsers.Registry.DetectLanguage.
func WithLanguageDetector(detect func(path string) string) Option {
	return func(o *options) {
		o.detect = detect
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) language(path string) string {
	if o.detect == nil {
		return ""
	}
	return o.detect(path)
}

// FileSystem walks a directory tree.
type FileSystem struct {
	root string
	opts options
}

func NewFileSystem(root string, opts ...Option) *FileSystem {
	o := buildOptions(opts)
	o.logger = o.logger.With("component", "fs_loader")
	return &FileSystem{root: root, opts: o}
}

// Load lists every chunkable file under the root. Paths are relative to the
// root and use forward slashes, so chunk ids do not depend on where the tree
// is checked out.
func (l *FileSystem) Load(ctx context.Context) ([]schema.SourceFile, error) {
	l.opts.logger.Info("Walking directory", "path", l.root)

	var files []schema.SourceFile
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.opts.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != l.root && shouldSkipDir(d.Name()) {
				l.opts.logger.Debug("Skipping excluded directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			l.opts.logger.Warn("Could not get file info, skipping", "path", path, "error", err)
			return nil
		}
		if shouldSkipFile(path, info.Size(), l.opts.maxFileSize) {
			l.opts.logger.Debug("Skipping excluded file", "path", path, "size", info.Size())
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		full := path
		files = append(files, schema.SourceFile{
			Path:     rel,
			Language: l.opts.language(rel),
			Loader:   func() ([]byte, error) { return os.ReadFile(full) },
			SizeHint: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.opts.logger.Info("Directory walk completed", "path", l.root, "files", len(files))
	return files, nil
}

var skipDirs = []string{
	".git", ".svn", ".hg",
	"vendor", "node_modules", "__pycache__", ".venv",
	"build", "dist", "target", "out", "bin",
	".vscode", ".idea", ".vs",
}

func shouldSkipDir(name string) bool {
	return slices.Contains(skipDirs, name)
}

// binaryExts are never chunked. PDF is absent because it has a text
// extractor.
var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".o": true, ".a": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".tiff": true, ".ico": true, ".webp": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true, ".bz2": true, ".xz": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true, ".flac": true, ".ogg": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true, ".wasm": true, ".class": true, ".jar": true,
}

func shouldSkipFile(path string, size, maxSize int64) bool {
	if maxSize > 0 && size > maxSize {
		return true
	}
	return binaryExts[strings.ToLower(filepath.Ext(path))]
}
