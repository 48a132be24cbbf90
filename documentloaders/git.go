package documentloaders

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/sevigo/semchunk/schema"
)

// Git lists the files committed at HEAD of a local repository. Uncommitted
// changes and ignored files are not visible to it.
type Git struct {
	repoPath string
	opts     options
}

func NewGit(repoPath string, opts ...Option) *Git {
	o := buildOptions(opts)
	o.logger = o.logger.With("component", "git_loader")
	return &Git{repoPath: repoPath, opts: o}
}

func (l *Git) Load(ctx context.Context) ([]schema.SourceFile, error) {
	repo, err := git.PlainOpen(l.repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository %q: %w", l.repoPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD of %q: %w", l.repoPath, err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read HEAD tree: %w", err)
	}

	l.opts.logger.Info("Reading repository tree", "path", l.repoPath, "commit", head.Hash().String()[:12])

	var files []schema.SourceFile
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if inSkippedDir(f.Name) || !f.Mode.IsFile() || shouldSkipFile(f.Name, f.Size, l.opts.maxFileSize) {
			return nil
		}
		if binary, err := f.IsBinary(); err == nil && binary && !strings.EqualFold(path.Ext(f.Name), ".pdf") {
			l.opts.logger.Debug("Skipping binary blob", "path", f.Name)
			return nil
		}
		blob := f
		files = append(files, schema.SourceFile{
			Path:     f.Name,
			Language: l.opts.language(f.Name),
			Loader:   func() ([]byte, error) { return readBlob(blob) },
			SizeHint: f.Size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.opts.logger.Info("Repository tree read", "path", l.repoPath, "files", len(files))
	return files, nil
}

func readBlob(f *object.File) ([]byte, error) {
	r, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", f.Name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func inSkippedDir(name string) bool {
	dirs := strings.Split(path.Dir(name), "/")
	for _, d := range dirs {
		if shouldSkipDir(d) {
			return true
		}
	}
	return false
}
