package textsplitter

// options holds configuration settings for the splitters.
type options struct {
	chunkSize  int
	maxLines   int
	separators []string
}

func defaultOptions() options {
	return options{
		chunkSize:  defaultChunkSize,
		maxLines:   defaultMaxLines,
		separators: []string{"\n\n", "\n", " ", ""},
	}
}

// Option is a function type for configuring the splitter.
type Option func(*options)

// WithChunkSize sets the largest piece, in bytes.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithMaxLines caps the number of lines in a line window.
func WithMaxLines(lines int) Option {
	return func(o *options) {
		if lines > 0 {
			o.maxLines = lines
		}
	}
}

// WithSeparators replaces the recursive separator ladder. The empty string
// means a hard cut and is appended when missing.
func WithSeparators(seps ...string) Option {
	return func(o *options) {
		if len(seps) == 0 {
			return
		}
		o.separators = append([]string(nil), seps...)
		if o.separators[len(o.separators)-1] != "" {
			o.separators = append(o.separators, "")
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
