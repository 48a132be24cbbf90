package coordinator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/config"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/delimiter"
	testutils "github.com/sevigo/semchunk/parsers/testing"
	"github.com/sevigo/semchunk/schema"
)

const helperEnv = "SEMCHUNK_HELPER_WORKER"

// TestMain turns the test binary into a chunk worker when the process
// executor starts it.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(runHelperWorker())
	}
	os.Exit(m.Run())
}

func runHelperWorker() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine, err := chunking.New(config.Default(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := ServeWorker(context.Background(), engine, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newTestCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	return newConfiguredCoordinator(t, config.Default(), opts...)
}

func newConfiguredCoordinator(t *testing.T, cfg *config.Config, opts ...Option) *Coordinator {
	t.Helper()
	logger, _ := testutils.NewTestLogger(t)
	engine, err := chunking.New(cfg, logger)
	require.NoError(t, err)
	return New(engine, cfg, logger, append([]Option{WithParallelThreshold(0)}, opts...)...)
}

func cardDefinition() delimiter.Definition {
	return delimiter.Definition{
		Language:   "cards",
		Family:     delimiter.FamilyBrace,
		Pattern:    `^(?P<kind>card)\s+(?P<name>\w+)`,
		Extensions: []string{".cards"},
	}
}

const deck = "card alpha {\n  one\n}\n\ncard beta {\n  two\n}\n"

func sampleFiles(n int) []schema.SourceFile {
	files := make([]schema.SourceFile, 0, n)
	for i := range n {
		content := fmt.Sprintf("package pkg%d\n\n// Value%d returns a fixed number.\nfunc Value%d() int {\n\treturn %d\n}\n\n// Twice%d doubles its input.\nfunc Twice%d(x int) int {\n\treturn x * 2 * %d\n}\n", i, i, i, i, i, i, i+1)
		files = append(files, schema.SourceFile{Path: fmt.Sprintf("pkg%d/value.go", i), Content: []byte(content)})
	}
	return files
}

func chunkIDs(chunks []schema.CodeChunk) []string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	slices.Sort(ids)
	return ids
}

func useHelperWorkers(t *testing.T) Option {
	t.Helper()
	t.Setenv(helperEnv, "1")
	return WithWorkerCommand(os.Args[0])
}

func TestChunkManyYieldsEveryFileOnce(t *testing.T) {
	files := sampleFiles(10)

	for _, executor := range []Executor{ExecutorThread, ExecutorProcess} {
		t.Run(string(executor), func(t *testing.T) {
			opts := []Option{WithExecutor(executor), WithWorkers(4)}
			if executor == ExecutorProcess {
				opts = append(opts, useHelperWorkers(t))
			}
			c := newTestCoordinator(t, opts...)

			seen := make(map[string]int)
			batches := make(map[string]bool)
			for path, chunks := range c.ChunkMany(context.Background(), files) {
				seen[path]++
				assert.Len(t, chunks, 2, path)
				for _, ch := range chunks {
					batches[ch.BatchID] = true
					assert.Nil(t, ch.Metadata.Node)
				}
			}

			require.Len(t, seen, 10)
			for path, n := range seen {
				assert.Equal(t, 1, n, path)
			}
			assert.Len(t, batches, 1, "one batch id per run")
		})
	}
}

func TestParallelEquivalence(t *testing.T) {
	files := sampleFiles(6)
	files = append(files, schema.SourceFile{Path: "docs/guide.md", Content: []byte("# Guide\n\nStart here.\n\n## Install\n\nRun the installer.\n")})
	files = append(files, schema.SourceFile{Path: "lib/greeter.rb", Content: []byte("class Greeter\n  def hi\n    \"hi\"\n  end\nend\n")})

	threaded := newTestCoordinator(t, WithExecutor(ExecutorThread), WithWorkers(3)).ChunkAll(context.Background(), files)
	processed := newTestCoordinator(t, WithExecutor(ExecutorProcess), WithWorkers(3), useHelperWorkers(t)).ChunkAll(context.Background(), files)

	require.Len(t, threaded, len(files))
	require.Len(t, processed, len(files))
	for _, f := range files {
		assert.Equal(t, chunkIDs(threaded[f.Path]), chunkIDs(processed[f.Path]), f.Path)
		assert.NotEmpty(t, threaded[f.Path], f.Path)
	}
}

func TestParallelEquivalenceWithCustomDelimiters(t *testing.T) {
	cfg := config.Default()
	cfg.Delimiters = []delimiter.Definition{cardDefinition()}

	files := sampleFiles(2)
	for i := range 3 {
		files = append(files, schema.SourceFile{Path: fmt.Sprintf("decks/d%d.cards", i), Content: []byte(deck)})
	}

	threaded := newConfiguredCoordinator(t, cfg, WithExecutor(ExecutorThread), WithWorkers(2)).ChunkAll(context.Background(), files)
	// The helper workers run with the default config and only learn the
	// card definition from the requests.
	processed := newConfiguredCoordinator(t, cfg, WithExecutor(ExecutorProcess), WithWorkers(2), useHelperWorkers(t)).ChunkAll(context.Background(), files)

	require.Len(t, processed, len(files))
	for _, f := range files {
		assert.Equal(t, chunkIDs(threaded[f.Path]), chunkIDs(processed[f.Path]), f.Path)
		if strings.HasSuffix(f.Path, ".cards") {
			require.NotEmpty(t, processed[f.Path], f.Path)
			for _, c := range processed[f.Path] {
				assert.Equal(t, schema.SourceDelimiter, c.Source)
				assert.Equal(t, "cards", c.Language)
			}
		}
	}
}

func TestSequentialMatchesParallel(t *testing.T) {
	files := sampleFiles(5)

	sequential := newTestCoordinator(t, WithParallelThreshold(100)).ChunkAll(context.Background(), files)
	parallel := newTestCoordinator(t, WithWorkers(4)).ChunkAll(context.Background(), files)

	require.Len(t, sequential, 5)
	for _, f := range files {
		assert.Equal(t, chunkIDs(sequential[f.Path]), chunkIDs(parallel[f.Path]))
	}
}

func TestDuplicateFilesInOneRun(t *testing.T) {
	files := sampleFiles(1)
	files = append(files, schema.SourceFile{Path: "copy/value.go", Content: files[0].Content})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	c := newTestCoordinator(t, WithWorkers(2), WithMetrics(metrics))
	out := c.ChunkAll(context.Background(), files)

	require.Len(t, out, 2)
	total := len(out[files[0].Path]) + len(out[files[1].Path])
	assert.Equal(t, 2, total, "the copy adds no chunks")
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.duplicates), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.files.WithLabelValues("ok")), 0)

	// A new run starts with a fresh store.
	again := c.ChunkAll(context.Background(), files[1:])
	assert.Len(t, again[files[1].Path], 2)
}

type slowPlugin struct {
	delay time.Duration
}

func (p slowPlugin) Name() string         { return "slow" }
func (p slowPlugin) Extensions() []string { return []string{".slow"} }
func (p slowPlugin) CanHandle(path string, _ fs.FileInfo) bool {
	return filepath.Ext(path) == ".slow"
}

func (p slowPlugin) Chunk(content, _ string, _ *schema.CodeChunkingOptions) ([]schema.Section, error) {
	time.Sleep(p.delay)
	return []schema.Section{{Content: content, LineStart: 1, LineEnd: strings.Count(content, "\n"), Type: "block"}}, nil
}

func TestTimeoutContinuesBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestCoordinator(t, WithWorkers(2), WithBudget(governor.Budget{Timeout: 200 * time.Millisecond}), WithMetrics(metrics))
	require.NoError(t, c.engine.Registry().RegisterParser(slowPlugin{delay: 400 * time.Millisecond}))

	files := append(sampleFiles(4), schema.SourceFile{Path: "stuck.slow", Content: []byte("one\ntwo\nthree\n")})
	out := c.ChunkAll(context.Background(), files)

	require.Len(t, out, 5)
	assert.Empty(t, out["stuck.slow"])
	for _, f := range files[:4] {
		assert.NotEmpty(t, out[f.Path], f.Path)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.files.WithLabelValues(KindTimeout)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.files.WithLabelValues("ok")), 0)
}

func TestFailedFilesYieldEmpty(t *testing.T) {
	files := []schema.SourceFile{
		{Path: "ok.go", Content: sampleFiles(1)[0].Content},
		{Path: "missing.go"},
		{Path: "blob.go", Content: []byte("\x00\x01\x02\x00\x00binary\x00")},
		{Path: "broken.go", Loader: func() ([]byte, error) { return nil, fs.ErrPermission }},
	}

	out := newTestCoordinator(t, WithWorkers(2)).ChunkAll(context.Background(), files)
	require.Len(t, out, 4)
	assert.NotEmpty(t, out["ok.go"])
	assert.Empty(t, out["missing.go"])
	assert.Empty(t, out["blob.go"])
	assert.Empty(t, out["broken.go"])
}

func TestBreakStopsRun(t *testing.T) {
	c := newTestCoordinator(t, WithWorkers(2))

	count := 0
	for range c.ChunkMany(context.Background(), sampleFiles(20)) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestProcessExecutorWithoutCommand(t *testing.T) {
	c := newTestCoordinator(t, WithExecutor(ExecutorProcess), WithWorkers(2), WithWorkerCommand(filepath.Join(t.TempDir(), "no-such-worker")))

	out := c.ChunkAll(context.Background(), sampleFiles(3))
	require.Len(t, out, 3)
	for path, chunks := range out {
		assert.Empty(t, chunks, path)
	}
}

func TestProcessExecutorRequiresWorkerCommand(t *testing.T) {
	c := newTestCoordinator(t, WithExecutor(ExecutorProcess), WithWorkers(2))

	out := c.ChunkAll(context.Background(), sampleFiles(3))
	require.Len(t, out, 3)
	for path, chunks := range out {
		assert.Empty(t, chunks, path)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&governor.ResourceTimeoutError{Limit: time.Second}, KindTimeout},
		{fmt.Errorf("wrapped: %w", &governor.DepthExceededError{Limit: 1, Depth: 2}), KindDepth},
		{&governor.ChunkLimitExceededError{Limit: 3}, KindChunkLimit},
		{fmt.Errorf("%w: a.bin", chunking.ErrBinaryContent), KindBinary},
		{fmt.Errorf("%w: big", chunking.ErrFileTooLarge), KindTooLarge},
		{fmt.Errorf("read x: %w", fs.ErrNotExist), KindNotFound},
		{&FileError{Path: "a.go", Kind: KindTimeout, Message: "late"}, KindTimeout},
		{context.Canceled, KindCancelled},
		{fmt.Errorf("boom"), KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), fmt.Sprint(tt.err))
	}

	remote := &FileError{Path: "a.go", Kind: KindBinary, Message: "binary content: a.go"}
	assert.ErrorIs(t, remote, chunking.ErrBinaryContent)
	assert.ErrorIs(t, &FileError{Kind: KindDepth}, governor.ErrBudgetExceeded)
}

func TestServeWorker(t *testing.T) {
	logger, _ := testutils.NewTestLogger(t)
	engine, err := chunking.New(config.Default(), logger)
	require.NoError(t, err)

	files := sampleFiles(1)
	var in strings.Builder
	fmt.Fprintf(&in, `{"file":{"path":%q,"content":%q},"settings":{}}`+"\n", files[0].Path, encodeBase64(files[0].Content))
	in.WriteString(`{"file":{"path":"blob.go","content":"AAECAAA="},"settings":{}}` + "\n")

	var out strings.Builder
	require.NoError(t, ServeWorker(context.Background(), engine, strings.NewReader(in.String()), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"path":"pkg0/value.go"`)
	assert.Contains(t, lines[0], `"chunks":[`)
	assert.Contains(t, lines[1], `"kind":"binary"`)
}

func TestServeWorkerRegistersDelimiters(t *testing.T) {
	logger, _ := testutils.NewTestLogger(t)
	engine, err := chunking.New(config.Default(), logger)
	require.NoError(t, err)

	var in strings.Builder
	enc := json.NewEncoder(&in)
	for i := range 2 {
		require.NoError(t, enc.Encode(workerRequest{
			File:       schema.WireFile{Path: fmt.Sprintf("d%d.cards", i), Content: []byte(deck)},
			Delimiters: []delimiter.Definition{cardDefinition()},
		}))
	}

	var out strings.Builder
	require.NoError(t, ServeWorker(context.Background(), engine, strings.NewReader(in.String()), &out))

	dec := json.NewDecoder(strings.NewReader(out.String()))
	for i := range 2 {
		var resp workerResponse
		require.NoError(t, dec.Decode(&resp))
		assert.Equal(t, fmt.Sprintf("d%d.cards", i), resp.Path)
		assert.Empty(t, resp.Kind)
		require.NotEmpty(t, resp.Chunks)
		assert.Equal(t, schema.SourceDelimiter, resp.Chunks[0].Source)
	}
	assert.Equal(t, []delimiter.Definition{cardDefinition()}, engine.Registry().CustomDelimiters())
}

func TestServeWorkerRejectsBrokenDefinition(t *testing.T) {
	logger, _ := testutils.NewTestLogger(t)
	engine, err := chunking.New(config.Default(), logger)
	require.NoError(t, err)

	def := cardDefinition()
	def.Pattern = "card ("
	var in strings.Builder
	require.NoError(t, json.NewEncoder(&in).Encode(workerRequest{
		File:       schema.WireFile{Path: "d.cards", Content: []byte(deck)},
		Delimiters: []delimiter.Definition{def},
	}))

	var out strings.Builder
	require.NoError(t, ServeWorker(context.Background(), engine, strings.NewReader(in.String()), &out))

	var resp workerResponse
	require.NoError(t, json.Unmarshal([]byte(out.String()), &resp))
	assert.Equal(t, KindOther, resp.Kind)
	assert.Empty(t, resp.Chunks)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
