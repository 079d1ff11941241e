package sshpool

import "time"

// SetMkdirRetryDelay shortens the directory creation retry pause for tests.
// The returned func restores the previous value.
func SetMkdirRetryDelay(d time.Duration) (restore func()) {
	old := mkdirRetryDelay
	mkdirRetryDelay = d
	return func() { mkdirRetryDelay = old }
}

// SessionAlive exposes the session's local liveness flag to tests.
func SessionAlive(s *Session) bool {
	return s.alive()
}
