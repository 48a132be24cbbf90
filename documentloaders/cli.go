package documentloaders

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sevigo/semchunk/schema"
)

// Command chunks the output of a command as if it were the file at path,
// for example `git show HEAD~1:main.go`. The command runs when the file is
// loaded, not when it is listed.
type Command struct {
	path    string
	command string
	args    []string
	opts    options
}

func NewCommand(path, command string, args ...string) *Command {
	return &Command{path: path, command: command, args: args, opts: buildOptions(nil)}
}

// WithOptions applies loader options such as WithLanguageDetector.
func (l *Command) WithOptions(opts ...Option) *Command {
	l.opts = buildOptions(opts)
	return l
}

func (l *Command) Load(ctx context.Context) ([]schema.SourceFile, error) {
	if l.command == "" {
		return nil, errors.New("command loader: empty command")
	}
	return []schema.SourceFile{{
		Path:     l.path,
		Language: l.opts.language(l.path),
		Loader:   func() ([]byte, error) { return l.run(ctx) },
	}}, nil
}

func (l *Command) run(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, l.command, l.args...)
	output, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("command '%s' failed: %w\nstderr: %s", l.command, err, string(ee.Stderr))
		}
		return nil, err
	}
	return output, nil
}
