package coordinator

import (
	"context"
	"errors"
	"io/fs"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/governor"
)

// Error kinds reported in logs, metrics and the worker protocol.
const (
	KindTimeout    = "timeout"
	KindDepth      = "depth_exceeded"
	KindChunkLimit = "chunk_limit"
	KindBinary     = "binary"
	KindTooLarge   = "too_large"
	KindExtraction = "extraction"
	KindNotFound   = "not_found"
	KindWorker     = "worker"
	KindCancelled  = "cancelled"
	KindOther      = "other"
)

// ErrWorker is returned when a worker process fails outside of chunking.
var ErrWorker = errors.New("chunk worker failed")

// FileError is a per-file failure that crossed a process boundary.
type FileError struct {
	Path    string
	Kind    string
	Message string
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Message
}

// Is matches the sentinels the kind stands for, so callers can treat local
// and remote failures alike.
func (e *FileError) Is(target error) bool {
	switch e.Kind {
	case KindTimeout, KindDepth, KindChunkLimit:
		return target == governor.ErrBudgetExceeded
	case KindBinary:
		return target == chunking.ErrBinaryContent
	case KindTooLarge:
		return target == chunking.ErrFileTooLarge
	case KindExtraction:
		return target == chunking.ErrExtraction
	case KindWorker:
		return target == ErrWorker
	}
	return false
}

// ErrorKind names the class of a per-file error.
func ErrorKind(err error) string {
	var (
		fileErr    *FileError
		timeoutErr *governor.ResourceTimeoutError
		depthErr   *governor.DepthExceededError
		limitErr   *governor.ChunkLimitExceededError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fileErr):
		return fileErr.Kind
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &depthErr):
		return KindDepth
	case errors.As(err, &limitErr):
		return KindChunkLimit
	case errors.Is(err, chunking.ErrBinaryContent):
		return KindBinary
	case errors.Is(err, chunking.ErrFileTooLarge):
		return KindTooLarge
	case errors.Is(err, chunking.ErrExtraction):
		return KindExtraction
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, ErrWorker):
		return KindWorker
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindOther
}
