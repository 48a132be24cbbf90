package textsplitter

import "errors"

// Methods recorded on pieces.
const (
	MethodParagraph = "paragraph"
	MethodLineSplit = "line-split"
	MethodRawSplit  = "raw-split"
	MethodRecursive = "recursive"
)

const (
	defaultChunkSize  = 1500
	defaultMaxLines   = 80
	minChunkSize      = 16
	maxChunkSize      = 64000
	binarySampleBytes = 8000

	minSignificanceRatio = 0.25
	minSignificantChars  = 3
	binaryNULRatio       = 0.001
	binaryControlRatio   = 0.30
)

var ErrInvalidChunkSize = errors.New("invalid chunk size")
