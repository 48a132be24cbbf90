package coordinator

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/governor"
	"github.com/sevigo/semchunk/parsers/delimiter"
	"github.com/sevigo/semchunk/schema"
)

// watchdogGrace is added to the per-file timeout before a silent worker is
// killed.
const watchdogGrace = 5 * time.Second

type workerRequest struct {
	File     schema.WireFile   `json:"file"`
	Settings chunking.Settings `json:"settings"`
	// Delimiters are the parent's custom definitions. Workers register each
	// one the first time they see it.
	Delimiters []delimiter.Definition `json:"delimiters,omitempty"`
}

type workerResponse struct {
	Path   string             `json:"path"`
	Chunks []schema.CodeChunk `json:"chunks,omitempty"`
	Kind   string             `json:"kind,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// ServeWorker answers newline-delimited JSON requests from r on w until r is
// exhausted. Every request carries one file, the limits to apply and the
// custom delimiter definitions of the parent; every response carries its
// detached chunks or the error kind and message.
func ServeWorker(ctx context.Context, engine *chunking.Engine, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	registered := make(map[string]bool)

	for {
		var req workerRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		resp := workerResponse{Path: req.File.Path}
		var chunks []schema.CodeChunk
		err := registerDelimiters(engine, req.Delimiters, registered)
		if err == nil {
			chunks, err = engine.CandidatesWith(ctx, req.File.SourceFile(), req.Settings)
		}
		if err != nil {
			resp.Kind = ErrorKind(err)
			resp.Error = err.Error()
		} else {
			resp.Chunks = chunks
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

func registerDelimiters(engine *chunking.Engine, defs []delimiter.Definition, registered map[string]bool) error {
	for _, def := range defs {
		key, err := json.Marshal(def)
		if err != nil {
			return err
		}
		if registered[string(key)] {
			continue
		}
		if err := engine.Registry().RegisterDelimiters(def); err != nil {
			return fmt.Errorf("register delimiter for %s: %w", def.Language, err)
		}
		registered[string(key)] = true
	}
	return nil
}

// processExecutor chunks files in worker subprocesses. Only WireFiles go
// out and only detached chunks come back.
type processExecutor struct {
	command    []string
	delimiters []delimiter.Definition
	logger     *slog.Logger
}

func (x processExecutor) run(ctx context.Context, files []schema.SourceFile, workers int, settings chunking.Settings, results chan<- result) error {
	if len(x.command) == 0 {
		return fmt.Errorf("%w: no worker command", ErrWorker)
	}

	type job struct {
		index int
		file  schema.SourceFile
	}
	jobs := make(chan job)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- job{index: i, file: f}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for id := range workers {
		g.Go(func() error {
			var proc *workerProcess
			defer func() {
				if proc != nil {
					proc.stop()
				}
			}()

			for j := range jobs {
				started := time.Now()
				r := result{index: j.index, path: j.file.Path}
				if proc == nil {
					p, err := startWorker(ctx, x.command, x.logger.With("worker", id))
					if err != nil {
						r.err = err
						_ = send(ctx, results, r)
						return err
					}
					proc = p
				}

				chunks, err := proc.chunk(j.file, settings, x.delimiters)
				if proc.broken.Load() {
					proc.stop()
					proc = nil
				}
				r.chunks, r.err, r.elapsed = chunks, err, time.Since(started)
				if err := send(ctx, results, r); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

type workerProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder
	logger *slog.Logger

	// broken is set once the process can no longer answer requests.
	broken   atomic.Bool
	stopOnce sync.Once
}

func startWorker(ctx context.Context, command []string, logger *slog.Logger) (*workerProcess, error) {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorker, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorker, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", ErrWorker, command[0], err)
	}
	logger.Debug("Worker process started", "pid", cmd.Process.Pid)
	return &workerProcess{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(bufio.NewReader(stdout)),
		logger: logger,
	}, nil
}

// chunk sends one file and waits for its answer. A worker that stays silent
// past the file's timeout plus a grace period is killed.
func (p *workerProcess) chunk(file schema.SourceFile, settings chunking.Settings, delimiters []delimiter.Definition) ([]schema.CodeChunk, error) {
	if settings.TooLarge(file.SizeHint) {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", chunking.ErrFileTooLarge, file.Path, file.SizeHint, settings.MaxFileBytes)
	}
	wire, err := file.Materialize()
	if err != nil {
		return nil, err
	}

	budget := settings.Budget.Normalized()
	var timedOut bool
	var mu sync.Mutex
	if budget.Timeout > 0 {
		watchdog := time.AfterFunc(budget.Timeout+watchdogGrace, func() {
			mu.Lock()
			timedOut = true
			mu.Unlock()
			p.kill()
		})
		defer watchdog.Stop()
	}

	if err := p.enc.Encode(workerRequest{File: wire, Settings: settings, Delimiters: delimiters}); err != nil {
		p.broken.Store(true)
		return nil, &FileError{Path: file.Path, Kind: KindWorker, Message: "send request: " + err.Error()}
	}
	var resp workerResponse
	if err := p.dec.Decode(&resp); err != nil {
		p.broken.Store(true)
		mu.Lock()
		defer mu.Unlock()
		if timedOut {
			return nil, &governor.ResourceTimeoutError{Limit: budget.Timeout, Elapsed: budget.Timeout + watchdogGrace}
		}
		return nil, &FileError{Path: file.Path, Kind: KindWorker, Message: "read response: " + err.Error()}
	}
	if resp.Path != file.Path {
		p.broken.Store(true)
		return nil, &FileError{Path: file.Path, Kind: KindWorker, Message: fmt.Sprintf("response for %q out of order", resp.Path)}
	}
	if resp.Kind != "" {
		return nil, &FileError{Path: file.Path, Kind: resp.Kind, Message: resp.Error}
	}
	return resp.Chunks, nil
}

func (p *workerProcess) kill() {
	p.broken.Store(true)
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// stop closes stdin so the worker drains and exits, then reaps it.
func (p *workerProcess) stop() {
	p.stopOnce.Do(func() {
		_ = p.stdin.Close()
		done := make(chan struct{})
		go func() {
			_ = p.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(watchdogGrace):
			p.kill()
			<-done
		}
		p.logger.Debug("Worker process stopped")
	})
}
