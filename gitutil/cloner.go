// Package gitutil clones remote repositories for one-off chunking runs.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Cloner checks out remote repositories into temporary directories.
type Cloner struct {
	Logger *slog.Logger
	// Depth limits history; 0 clones everything.
	Depth int
	// Branch selects a branch instead of the remote HEAD.
	Branch string
}

func NewCloner(logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{Logger: logger.With("component", "git_cloner"), Depth: 1}
}

// Clone checks out repoURL and returns the local path with a cleanup func
// the caller must run once done with the checkout.
func (c *Cloner) Clone(ctx context.Context, repoURL string) (string, func(), error) {
	tempPath, err := os.MkdirTemp("", "semchunk-repo-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	c.Logger.InfoContext(ctx, "Cloning repository", "url", repoURL, "path", tempPath, "depth", c.Depth)

	cleanup := func() {
		c.Logger.Debug("Removing temporary checkout", "path", tempPath)
		_ = os.RemoveAll(tempPath)
	}

	opts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        c.Depth,
		SingleBranch: c.Branch != "",
	}
	if c.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(c.Branch)
	}
	if _, err := git.PlainCloneContext(ctx, tempPath, false, opts); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to clone repo '%s': %w", repoURL, err)
	}

	c.Logger.InfoContext(ctx, "Repository cloned", "path", tempPath)
	return tempPath, cleanup, nil
}
