package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/delimiter"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semchunk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ExecutorThread, cfg.Executor)
	assert.Equal(t, governor.DefaultBudget(), cfg.Budget())
	assert.Equal(t, DefaultParallelThreshold, cfg.ParallelThreshold)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Positive(t, cfg.Workers)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
workers: 4
executor: process
timeout: 5s
max_depth: 64
max_chunks: 50
max_chunk_chars: 2000
max_lines_per_chunk: 60
log_level: debug
worker_command: ["semchunk", "worker"]
delimiters:
  - language: toy
    family: brace
    pattern: '^(?P<kind>card)\s+(?P<name>\w+)'
    extensions: [".toy"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ExecutorProcess, cfg.Executor)
	assert.Equal(t, governor.Budget{Timeout: 5 * time.Second, MaxDepth: 64, MaxChunks: 50}, cfg.Budget())
	assert.Equal(t, 2000, cfg.ChunkingOptions().MaxChunkChars)
	assert.Equal(t, 60, cfg.ChunkingOptions().MaxLinesPerChunk)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, []string{"semchunk", "worker"}, cfg.WorkerCommand)
	require.Len(t, cfg.Delimiters, 1)
	assert.Equal(t, delimiter.FamilyBrace, cfg.Delimiters[0].Family)
	assert.Equal(t, []string{".toy"}, cfg.Delimiters[0].Extensions)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "workers: 2\nexecutor: thread\n")
	t.Setenv("SEMCHUNK_WORKERS", "8")
	t.Setenv("SEMCHUNK_EXECUTOR", "PROCESS")
	t.Setenv("SEMCHUNK_TIMEOUT", "250ms")
	t.Setenv("SEMCHUNK_MAX_FILE_BYTES", "1024")
	t.Setenv("SEMCHUNK_WORKER_COMMAND", "/usr/bin/semchunk worker")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, ExecutorProcess, cfg.Executor)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, int64(1024), cfg.MaxFileBytes)
	assert.Equal(t, []string{"/usr/bin/semchunk", "worker"}, cfg.WorkerCommand)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown executor", body: "executor: fiber\n"},
		{name: "negative workers", body: "workers: -1\n"},
		{name: "min above max", body: "max_chunk_chars: 100\nmin_chunk_chars: 200\n"},
		{name: "bad log level", body: "log_level: loud\n"},
		{name: "unknown family", body: "delimiters:\n  - language: toy\n    family: spiral\n    pattern: x\n"},
		{name: "missing pattern", body: "delimiters:\n  - language: toy\n    family: brace\n"},
		{name: "broken pattern", body: "delimiters:\n  - language: toy\n    family: brace\n    pattern: '('\n"},
		{name: "malformed yaml", body: "workers: [\n"},
		{name: "bad env number", body: "", env: map[string]string{"SEMCHUNK_MAX_CHUNKS": "many"}},
		{name: "bad env duration", body: "", env: map[string]string{"SEMCHUNK_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStatementDefinitionNeedsNoPattern(t *testing.T) {
	cfg := Default()
	cfg.Delimiters = []delimiter.Definition{{Language: "plsql", Family: delimiter.FamilyStatement}}
	assert.NoError(t, cfg.Validate())
}
