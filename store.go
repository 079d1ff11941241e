package sftpblob

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meigma/sftpblob/sshpool"
)

// Store is an SFTP-backed blob store. It owns the session pool and hands
// out path-scoped containers; all remote traffic flows through leased
// sessions. A Store is safe for concurrent use.
type Store struct {
	pool   *sshpool.Pool
	logger *slog.Logger

	// poolOpts are assembled by options before the pool exists.
	poolOpts []sshpool.Option
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// New validates the configuration and creates the store. No connection is
// opened until the first operation; a missing host or credential fails
// here.
func New(cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	poolOpts := s.poolOpts
	if s.logger != nil {
		poolOpts = append(poolOpts, sshpool.WithLogger(s.logger))
	}
	pool, err := sshpool.New(cfg, poolOpts...)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// Container returns a container scoped to path, creating the remote
// directory levels that do not exist yet. Construction failures wrap
// ErrContainerInit.
func (s *Store) Container(ctx context.Context, path BlobPath) (*Container, error) {
	base := joinRemote(s.pool.Config().Location, path.String())

	sess, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerInit, base, err)
	}
	err = sess.MkdirAll(ctx, base)
	sess.Release()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerInit, base, err)
	}

	s.log().Debug("container ready", "path", base)
	return &Container{store: s, path: path, base: base}, nil
}

// DeletePath removes the directory at path. The operation is single
// level: a path whose container still holds blobs fails with ErrRemoteIO,
// and callers delete the contained blobs first.
func (s *Store) DeletePath(ctx context.Context, path BlobPath) error {
	sess, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()
	return sess.RemoveDirectory(joinRemote(s.pool.Config().Location, path.String()))
}

// Close tears down every idle session. Sessions currently owned by open
// streams are closed by their own release paths.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// String describes the store endpoint as user@host:location.
func (s *Store) String() string {
	cfg := s.pool.Config()
	return fmt.Sprintf("%s@%s:%s", cfg.User, cfg.Host, cfg.Location)
}
