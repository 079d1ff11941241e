package sftpblob

import (
	"log/slog"

	"golang.org/x/crypto/ssh"

	"github.com/meigma/sftpblob/sshpool"
)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a logger for the store and its session pool.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithHostKeyCallback overrides host key verification, replacing both the
// known-hosts file and the insecure default.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(s *Store) error {
		s.poolOpts = append(s.poolOpts, sshpool.WithHostKeyCallback(cb))
		return nil
	}
}
