package sftpblob

import (
	"errors"

	"github.com/meigma/sftpblob/sshpool"
)

// Sentinel errors specific to the sftpblob package.
var (
	// ErrContainerInit is returned when a container cannot ensure its
	// directory during construction.
	ErrContainerInit = errors.New("sftpblob: container init failed")
)

// Errors re-exported from sshpool.
var (
	// ErrMissingHost is returned when the configuration has no host.
	ErrMissingHost = sshpool.ErrMissingHost

	// ErrMissingCredentials is returned when neither a password nor a
	// private key is configured.
	ErrMissingCredentials = sshpool.ErrMissingCredentials

	// ErrConnect is returned when dialing, authentication, host key
	// verification, or SFTP channel negotiation fails.
	ErrConnect = sshpool.ErrConnect

	// ErrRemoteIO is returned when a file operation fails on the remote
	// side (missing path, permission denied, directory not empty).
	ErrRemoteIO = sshpool.ErrRemoteIO

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = sshpool.ErrClosed
)
