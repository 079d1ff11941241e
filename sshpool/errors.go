package sshpool

import "errors"

// Sentinel errors for pool and session operations.
var (
	// ErrMissingHost is returned when the configuration has no host.
	ErrMissingHost = errors.New("sshpool: missing host")

	// ErrMissingCredentials is returned when neither a password nor a
	// private key is configured.
	ErrMissingCredentials = errors.New("sshpool: missing credentials")

	// ErrConnect is returned when dialing, authentication, host key
	// verification, or SFTP channel negotiation fails.
	ErrConnect = errors.New("sshpool: connect failed")

	// ErrRemoteIO is returned when a file operation fails on the remote
	// side (missing path, permission denied, directory not empty).
	ErrRemoteIO = errors.New("sshpool: remote i/o failure")

	// ErrClosed is returned when acquiring from a closed pool.
	ErrClosed = errors.New("sshpool: pool closed")
)
