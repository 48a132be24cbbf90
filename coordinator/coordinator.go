// Package coordinator chunks many files in parallel on goroutines or worker
// processes, with one dedup store and batch id per run.
package coordinator

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/config"
	"github.com/sevigo/semchunk/dedup"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/schema"
)

// Executor selects how files are scheduled.
type Executor string

const (
	ExecutorThread  Executor = config.ExecutorThread
	ExecutorProcess Executor = config.ExecutorProcess
)

type result struct {
	index   int
	path    string
	chunks  []schema.CodeChunk
	err     error
	elapsed time.Duration
}

type executor interface {
	run(ctx context.Context, files []schema.SourceFile, workers int, settings chunking.Settings, results chan<- result) error
}

// Coordinator fans files out over an executor. It is safe to start several
// runs concurrently; they share nothing but the engine's immutable tiers.
type Coordinator struct {
	engine   *chunking.Engine
	logger   *slog.Logger
	defaults runOptions
}

type runOptions struct {
	workers       int
	executor      Executor
	settings      chunking.Settings
	threshold     int
	workerCommand []string
	metrics       *Metrics
}

// Option configures a Coordinator or a single run.
type Option func(*runOptions)

// WithWorkers sets the number of goroutines or worker processes.
func WithWorkers(n int) Option {
	return func(o *runOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithExecutor selects the thread or process executor.
func WithExecutor(e Executor) Option {
	return func(o *runOptions) {
		if e == ExecutorThread || e == ExecutorProcess {
			o.executor = e
		}
	}
}

// WithBudget sets the per-file resource budget.
func WithBudget(b governor.Budget) Option {
	return func(o *runOptions) {
		o.settings.Budget = b
	}
}

// WithParallelThreshold sets the batch size below which files run
// sequentially.
func WithParallelThreshold(n int) Option {
	return func(o *runOptions) {
		if n >= 0 {
			o.threshold = n
		}
	}
}

// WithWorkerCommand sets the command that starts a worker process. The
// command must run ServeWorker on its stdin and stdout, as `semchunk worker`
// does. Without one the process executor fails every file with ErrWorker.
func WithWorkerCommand(args ...string) Option {
	return func(o *runOptions) {
		if len(args) > 0 {
			o.workerCommand = args
		}
	}
}

// WithMetrics records run outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(o *runOptions) {
		o.metrics = m
	}
}

// New creates a coordinator whose run defaults come from cfg. Extra options
// override cfg.
func New(engine *chunking.Engine, cfg *config.Config, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	defaults := runOptions{
		workers:       cfg.Workers,
		executor:      Executor(cfg.Executor),
		settings:      engine.Settings(),
		threshold:     cfg.ParallelThreshold,
		workerCommand: cfg.WorkerCommand,
	}
	if defaults.workers <= 0 {
		defaults.workers = runtime.NumCPU()
	}
	for _, opt := range opts {
		opt(&defaults)
	}
	return &Coordinator{
		engine:   engine,
		logger:   logger.With("component", "coordinator"),
		defaults: defaults,
	}
}

// ChunkMany yields every file exactly once with its deduplicated chunks, in
// completion order. A failed file is logged and yielded with no chunks.
// Stopping the iteration cancels the outstanding work.
func (c *Coordinator) ChunkMany(ctx context.Context, files []schema.SourceFile, opts ...Option) iter.Seq2[string, []schema.CodeChunk] {
	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(string, []schema.CodeChunk) bool) {
		run := &run{
			c:       c,
			metrics: o.metrics,
			store:   dedup.NewStore(),
			batchID: uuid.NewString(),
			done:    make([]bool, len(files)),
		}
		c.logger.Debug("Chunking run started", "files", len(files), "executor", o.executor, "workers", o.workers, "batch_id", run.batchID)

		if len(files) < o.threshold || (o.workers <= 1 && o.executor != ExecutorProcess) {
			run.sequential(ctx, files, o.settings, yield)
			return
		}
		run.parallel(ctx, files, o, yield)
	}
}

// ChunkAll collects ChunkMany into a map keyed by path.
func (c *Coordinator) ChunkAll(ctx context.Context, files []schema.SourceFile, opts ...Option) map[string][]schema.CodeChunk {
	out := make(map[string][]schema.CodeChunk, len(files))
	for path, chunks := range c.ChunkMany(ctx, files, opts...) {
		out[path] = append(out[path], chunks...)
	}
	return out
}

type run struct {
	c       *Coordinator
	metrics *Metrics
	store   *dedup.Store
	batchID string
	done    []bool
}

func (r *run) sequential(ctx context.Context, files []schema.SourceFile, settings chunking.Settings, yield func(string, []schema.CodeChunk) bool) {
	for i, file := range files {
		started := time.Now()
		chunks, err := r.c.engine.CandidatesWith(ctx, file, settings)
		if !r.finish(result{index: i, path: file.Path, chunks: chunks, err: err, elapsed: time.Since(started)}, yield) {
			return
		}
	}
}

func (r *run) parallel(ctx context.Context, files []schema.SourceFile, o runOptions, yield func(string, []schema.CodeChunk) bool) {
	var exec executor = threadExecutor{engine: r.c.engine}
	if o.executor == ExecutorProcess {
		exec = processExecutor{command: o.workerCommand, delimiters: r.c.engine.Registry().CustomDelimiters(), logger: r.c.logger}
	}

	ctx, cancel := context.WithCancel(ctx)
	results := make(chan result, o.workers)
	errc := make(chan error, 1)
	go func() {
		errc <- exec.run(ctx, files, o.workers, o.settings, results)
		close(results)
	}()
	defer func() {
		cancel()
		for range results {
		}
	}()

	for res := range results {
		if !r.finish(res, yield) {
			return
		}
	}

	if err := <-errc; err != nil && ctx.Err() == nil {
		r.c.logger.Error("Executor stopped early", "executor", o.executor, "error", err)
	}
	// Files the executor never reached still appear once.
	for i, file := range files {
		if r.done[i] {
			continue
		}
		res := result{index: i, path: file.Path, err: fmt.Errorf("%w: file not processed", ErrWorker)}
		if ctx.Err() != nil {
			res.err = ctx.Err()
		}
		if !r.finish(res, yield) {
			return
		}
	}
}

// finish deduplicates a result centrally, records it and yields it.
func (r *run) finish(res result, yield func(string, []schema.CodeChunk) bool) bool {
	if r.done[res.index] {
		return true
	}
	r.done[res.index] = true

	if res.err != nil {
		kind := ErrorKind(res.err)
		r.c.logger.Warn("File failed", "path", res.path, "kind", kind, "error", res.err)
		r.metrics.observeFailure(kind, res.elapsed)
		return yield(res.path, nil)
	}

	kept := r.store.Apply(res.chunks, r.batchID)
	r.metrics.observeSuccess(kept, len(res.chunks)-len(kept), res.elapsed)
	r.c.logger.Debug("File chunked", "path", res.path, "chunks", len(kept), "duplicates", len(res.chunks)-len(kept))
	return yield(res.path, kept)
}
