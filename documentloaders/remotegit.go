package documentloaders

import (
	"context"
	"fmt"

	"github.com/sevigo/semchunk/gitutil"
	"github.com/sevigo/semchunk/schema"
)

// RemoteGit clones a repository and lists the files at its HEAD. The
// checkout is removed before Load returns, so file contents are read
// eagerly.
type RemoteGit struct {
	url    string
	cloner *gitutil.Cloner
	opts   []Option
}

func NewRemoteGit(url string, cloner *gitutil.Cloner, opts ...Option) *RemoteGit {
	if cloner == nil {
		cloner = gitutil.NewCloner(buildOptions(opts).logger)
	}
	return &RemoteGit{url: url, cloner: cloner, opts: opts}
}

func (l *RemoteGit) Load(ctx context.Context) ([]schema.SourceFile, error) {
	dir, cleanup, err := l.cloner.Clone(ctx, l.url)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	files, err := NewGit(dir, l.opts...).Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range files {
		content, err := files[i].Load()
		if err != nil {
			return nil, fmt.Errorf("read %s from %s: %w", files[i].Path, l.url, err)
		}
		files[i].Content = content
		files[i].Loader = nil
	}
	return files, nil
}
