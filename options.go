package gdsii

import (
	"go.uber.org/zap"

	"github.com/tsawler/gdsii/format"
)

// Options holds configuration for opening a library.
type Options struct {
	// Logging
	logger *zap.Logger

	// Parsing
	eager bool // parse every structure during Open

	// Compressed input
	allowCompressed     bool
	maxDecompressedSize int64
}

// Option configures Open.
type Option func(*Options)

// defaultOptions returns the default open options.
func defaultOptions() Options {
	return Options{
		logger:              zap.NewNop(),
		eager:               false,
		allowCompressed:     false,
		maxDecompressedSize: format.DefaultMaxSize,
	}
}

// Logger sets the logger used while indexing and parsing. A nil logger
// disables logging.
func Logger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}

// Eager parses every structure during Open. Structure failures are kept
// on the structure and reported by later queries.
func Eager() Option {
	return func(o *Options) {
		o.eager = true
	}
}

// Compressed accepts gzip, zstd and LZ4 input, inflating at most maxSize
// bytes. maxSize <= 0 keeps the default limit.
func Compressed(maxSize int64) Option {
	return func(o *Options) {
		o.allowCompressed = true
		if maxSize > 0 {
			o.maxDecompressedSize = maxSize
		}
	}
}
