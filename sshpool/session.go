package sshpool

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Directory creation retry policy. Concurrent creators can race on the same
// path segment, so a failed mkdir is retried with a fixed pause rather than
// treated as fatal.
const mkdirAttempts = 5

// mkdirRetryDelay is a variable so tests can shorten the pause.
var mkdirRetryDelay = time.Second

// conn is one SSH transport with an SFTP channel open on it. The dead flag
// is set by a watcher goroutine when the connection shuts down, so liveness
// checks never issue remote calls.
type conn struct {
	client *ssh.Client
	sftp   *sftp.Client
	dead   atomic.Bool
}

func (c *conn) watch() {
	_ = c.sftp.Wait()
	c.dead.Store(true)
}

// close tears down the channel then the transport. Errors from an already
// closed peer are discarded.
func (c *conn) close() {
	_ = c.sftp.Close()
	_ = c.client.Close()
}

// Session is one pooled SSH+SFTP connection. A session is exclusively owned
// by one caller between Acquire and Release and must not be shared; file
// operations are methods on the leased session.
type Session struct {
	id       string
	pool     *Pool
	conn     *conn
	lastUsed time.Time
}

// ID returns the session's identifier, used for log correlation.
func (s *Session) ID() string { return s.id }

// Release returns the session to its pool for reuse. Releasing twice is
// harmless; liveness is not checked until the next Acquire.
func (s *Session) Release() {
	s.pool.put(s)
}

// Close tears down the session's connection. Safe to call on an already
// closed session.
func (s *Session) Close() {
	if s.conn != nil {
		s.conn.close()
	}
}

// alive reports whether the connection is still up. Purely local: the
// watcher goroutine flips the flag when the connection shuts down.
func (s *Session) alive() bool {
	return s.conn != nil && !s.conn.dead.Load()
}

// touch refreshes the idle-expiry clock.
func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// revive makes the session usable again after it sat in the pool. A live
// session only gets its clock refreshed; a dead one is torn down and fully
// reopened. This is the single recovery path for sessions dropped by the
// remote side.
func (s *Session) revive(ctx context.Context) error {
	if s.alive() {
		s.touch()
		return nil
	}
	if s.conn != nil {
		s.conn.close()
	}
	c, err := dial(ctx, s.pool.cfg, s.pool.hostKey)
	if err != nil {
		return err
	}
	s.conn = c
	s.touch()
	return nil
}

// dial opens a transport, authenticates, and negotiates the SFTP channel.
// All failures wrap ErrConnect.
func dial(ctx context.Context, cfg Config, hostKey ssh.HostKeyCallback) (*conn, error) {
	clientCfg, err := cfg.clientConfig(hostKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	d := net.Dialer{Timeout: cfg.DialTimeout}
	netConn, err := d.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnect, cfg.addr(), err)
	}

	// The handshake below does not take a context, so cancel it by
	// closing the socket out from under it.
	stop := context.AfterFunc(ctx, func() { _ = netConn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, cfg.addr(), clientCfg)
	if !stop() {
		_ = netConn.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, ctx.Err())
	}
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("%w: handshake with %s: %w", ErrConnect, cfg.addr(), err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: open sftp channel: %w", ErrConnect, err)
	}

	c := &conn{client: client, sftp: sftpClient}
	go c.watch()
	return c, nil
}

// newSession opens a fresh connection for the given pool.
func newSession(ctx context.Context, p *Pool) (*Session, error) {
	c, err := dial(ctx, p.cfg, p.hostKey)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:   uuid.NewString(),
		pool: p,
		conn: c,
	}
	s.touch()
	return s, nil
}

// --- Remote File Operations ---

// ReadDir lists the entries of a remote directory.
func (s *Session) ReadDir(path string) ([]os.FileInfo, error) {
	infos, err := s.conn.sftp.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrRemoteIO, path, err)
	}
	return infos, nil
}

// Stat probes a single remote path.
func (s *Session) Stat(path string) (os.FileInfo, error) {
	info, err := s.conn.sftp.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrRemoteIO, path, err)
	}
	return info, nil
}

// MkdirAll creates a directory path one level at a time, probing each level
// before creating it. Creation at a level is retried up to mkdirAttempts
// times with a fixed pause, absorbing races with concurrent creators of the
// same path. Not transactional: a failure partway leaves earlier levels
// created.
func (s *Session) MkdirAll(ctx context.Context, path string) error {
	walk := ""
	if strings.HasPrefix(path, "/") {
		walk = "/"
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		if walk == "" || walk == "/" {
			walk += seg
		} else {
			walk += "/" + seg
		}
		if err := s.ensureDir(ctx, walk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) ensureDir(ctx context.Context, dir string) error {
	if _, err := s.conn.sftp.Stat(dir); err == nil {
		return nil
	}
	var last error
	for attempt := 0; attempt < mkdirAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(mkdirRetryDelay):
			}
		}
		err := s.conn.sftp.Mkdir(dir)
		if err == nil {
			return nil
		}
		last = err
		// A concurrent creator may have won the race.
		if _, err := s.conn.sftp.Stat(dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: create directory %s: %w", ErrRemoteIO, dir, last)
}

// RemoveDirectory removes a single empty directory. The remote primitive is
// not recursive: a non-empty directory fails.
func (s *Session) RemoveDirectory(path string) error {
	if err := s.conn.sftp.RemoveDirectory(path); err != nil {
		return fmt.Errorf("%w: remove directory %s: %w", ErrRemoteIO, path, err)
	}
	return nil
}

// Remove deletes a remote file.
func (s *Session) Remove(path string) error {
	if err := s.conn.sftp.Remove(path); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrRemoteIO, path, err)
	}
	return nil
}

// OpenRead opens a download stream. The returned stream owns the session:
// closing it closes the remote file and then releases the session, so the
// caller must not Release separately.
func (s *Session) OpenRead(path string) (io.ReadCloser, error) {
	f, err := s.conn.sftp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrRemoteIO, path, err)
	}
	return &readStream{File: f, sess: s}, nil
}

// OpenWrite opens an upload stream, creating or truncating the remote file.
// Session ownership transfers to the stream as with OpenRead.
func (s *Session) OpenWrite(path string) (io.WriteCloser, error) {
	f, err := s.conn.sftp.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrRemoteIO, path, err)
	}
	return &writeStream{File: f, sess: s}, nil
}

// readStream embeds the SFTP file so io.Copy keeps its WriteTo fast path.
// Close releases the owning session exactly once, even when closing the
// remote file failed; a broken session is revived on its next lease.
type readStream struct {
	*sftp.File
	sess *Session
	once sync.Once
	err  error
}

func (r *readStream) Close() error {
	r.once.Do(func() {
		r.err = r.File.Close()
		r.sess.Release()
	})
	return r.err
}

// writeStream mirrors readStream for uploads, keeping the ReadFrom fast path.
type writeStream struct {
	*sftp.File
	sess *Session
	once sync.Once
	err  error
}

func (w *writeStream) Close() error {
	w.once.Do(func() {
		w.err = w.File.Close()
		w.sess.Release()
	})
	return w.err
}
