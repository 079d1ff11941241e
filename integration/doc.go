//go:build integration

// Package integration provides integration tests for the sftpblob library.
//
// These tests require Docker and spin up a real OpenSSH/SFTP server using
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
