package sftpblob

import "github.com/meigma/sftpblob/sshpool"

// Config describes the remote endpoint and session pool behavior.
type Config = sshpool.Config

// Pool configuration defaults, re-exported from sshpool.
const (
	DefaultPort          = sshpool.DefaultPort
	DefaultLocation      = sshpool.DefaultLocation
	DefaultSessionExpiry = sshpool.DefaultSessionExpiry
	DefaultSweepInterval = sshpool.DefaultSweepInterval
)

// Metadata describes one blob in a container listing.
type Metadata struct {
	// Name is the blob's file name within its container.
	Name string

	// Size is the blob's length in bytes.
	Size int64
}
