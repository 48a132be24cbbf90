package coordinator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/schema"
)

// threadExecutor chunks files on a bounded goroutine pool sharing one
// engine.
type threadExecutor struct {
	engine *chunking.Engine
}

func (x threadExecutor) run(ctx context.Context, files []schema.SourceFile, workers int, settings chunking.Settings, results chan<- result) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			started := time.Now()
			chunks, err := x.engine.CandidatesWith(ctx, file, settings)
			return send(ctx, results, result{index: i, path: file.Path, chunks: chunks, err: err, elapsed: time.Since(started)})
		})
	}
	return g.Wait()
}

func send(ctx context.Context, results chan<- result, r result) error {
	select {
	case results <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
