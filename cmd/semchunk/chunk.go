package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/coordinator"
	"github.com/sevigo/semchunk/documentloaders"
	"github.com/sevigo/semchunk/gitutil"
	"github.com/sevigo/semchunk/schema"
)

var (
	chunkExecutor  string
	chunkWorkers   int
	chunkFromGit   bool
	chunkRemote    string
	chunkBranch    string
	chunkStats     bool
	chunkMaxChars  int
	chunkFromCmd   string
	chunkCmdAsPath string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [paths...]",
	Short: "Chunk files and directories, writing one JSON chunk per line",
	Args:  cobra.ArbitraryArgs,
	RunE:  runChunk,
}

func init() {
	f := chunkCmd.Flags()
	f.StringVar(&chunkExecutor, "executor", "", "Parallel executor: thread or process")
	f.IntVarP(&chunkWorkers, "workers", "w", 0, "Number of parallel workers (0 uses the config)")
	f.BoolVar(&chunkFromGit, "git", false, "Read directories as git repositories at HEAD")
	f.StringVar(&chunkRemote, "remote", "", "Clone and chunk a remote git repository")
	f.StringVar(&chunkBranch, "branch", "", "Branch to clone with --remote")
	f.BoolVar(&chunkStats, "stats", false, "Print run counters to stderr when done")
	f.IntVar(&chunkMaxChars, "max-chars", 0, "Override the maximum chunk size in characters")
	f.StringVar(&chunkFromCmd, "from-command", "", "Chunk the stdout of a shell-split command")
	f.StringVar(&chunkCmdAsPath, "as", "", "File name used for --from-command output")
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if chunkMaxChars > 0 {
		cfg.MaxChunkChars = chunkMaxChars
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine, err := chunking.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	files, err := discover(ctx, engine, logger, args)
	if err != nil {
		return err
	}
	logger.Info("Discovered files", "count", len(files))

	reg := prometheus.NewRegistry()
	opts := []coordinator.Option{coordinator.WithMetrics(coordinator.NewMetrics(reg))}
	if chunkWorkers > 0 {
		opts = append(opts, coordinator.WithWorkers(chunkWorkers))
	}
	if chunkExecutor != "" {
		opts = append(opts, coordinator.WithExecutor(coordinator.Executor(strings.ToLower(chunkExecutor))))
	}
	if len(cfg.WorkerCommand) == 0 {
		command, err := workerCommand(cfg.LogLevel)
		if err != nil {
			return err
		}
		opts = append(opts, coordinator.WithWorkerCommand(command...))
	}
	coord := coordinator.New(engine, cfg, logger, opts...)

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, chunks := range coord.ChunkMany(ctx, files) {
		for _, chunk := range chunks {
			if err := enc.Encode(chunk); err != nil {
				return fmt.Errorf("write chunk: %w", err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if chunkStats {
		return printStats(cmd, reg)
	}
	return nil
}

// workerCommand re-runs this executable as a worker with the same config
// file and log level, so grammar_dir and custom delimiters match the parent.
func workerCommand(level string) ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate worker executable: %w", err)
	}
	command := []string{exe, "worker", "--log-level", level}
	if configPath != "" {
		path, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		command = append(command, "--config", path)
	}
	return command, nil
}

// discover turns the command arguments into source files. Plain files are
// read lazily from disk; directories go through a loader.
func discover(ctx context.Context, engine *chunking.Engine, logger *slog.Logger, args []string) ([]schema.SourceFile, error) {
	detect := documentloaders.WithLanguageDetector(engine.Registry().DetectLanguage)
	loaderOpts := []documentloaders.Option{documentloaders.WithLogger(logger), detect}

	var loaders []documentloaders.Loader
	if chunkRemote != "" {
		cloner := gitutil.NewCloner(logger)
		cloner.Branch = chunkBranch
		loaders = append(loaders, documentloaders.NewRemoteGit(chunkRemote, cloner, loaderOpts...))
	}
	if chunkFromCmd != "" {
		fields := strings.Fields(chunkFromCmd)
		name := chunkCmdAsPath
		if name == "" {
			name = filepath.Base(fields[0]) + ".out"
		}
		loaders = append(loaders, documentloaders.NewCommand(name, fields[0], fields[1:]...).WithOptions(loaderOpts...))
	}

	if len(args) == 0 && len(loaders) == 0 {
		args = []string{"."}
	}
	var files []schema.SourceFile
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		switch {
		case !info.IsDir():
			path := arg
			files = append(files, schema.SourceFile{
				Path:     filepath.ToSlash(arg),
				Language: engine.Registry().DetectLanguage(arg),
				Loader:   func() ([]byte, error) { return os.ReadFile(path) },
				SizeHint: info.Size(),
			})
		case chunkFromGit:
			loaders = append(loaders, documentloaders.NewGit(arg, loaderOpts...))
		default:
			loaders = append(loaders, documentloaders.NewFileSystem(arg, loaderOpts...))
		}
	}

	for _, l := range loaders {
		found, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, errors.New("no files to chunk")
	}
	return files, nil
}

func printStats(cmd *cobra.Command, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	out := cmd.ErrOrStderr()
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			fmt.Fprintf(out, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
