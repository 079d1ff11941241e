package repository

import "log/slog"

// DefaultConcurrentStreams is the upload/download parallelism used when
// WithConcurrentStreams is not given. Each stream occupies one pooled
// session while it runs.
const DefaultConcurrentStreams = 5

// Option configures a Repository.
type Option func(*Repository)

// WithChunkSize splits files larger than n bytes into parts of at most n
// bytes each. Zero (the default) stores every file as a single blob.
func WithChunkSize(n int64) Option {
	return func(r *Repository) {
		r.chunkSize = n
	}
}

// WithCompression enables zstd compression of uploaded parts. Restore
// follows the manifest, so snapshots written with and without compression
// can coexist in one repository.
func WithCompression(enabled bool) Option {
	return func(r *Repository) {
		r.compress = enabled
	}
}

// WithConcurrentStreams caps how many files transfer at once.
func WithConcurrentStreams(n int) Option {
	return func(r *Repository) {
		r.streams = n
	}
}

// WithLogger sets a logger for snapshot progress.
// If nil, logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}
