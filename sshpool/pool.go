package sshpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Pool hands out SSH+SFTP sessions under an exclusive lease.
//
// The pool is unbounded: when no idle session is available, Acquire opens a
// new one rather than queueing, so concurrency is limited only by what the
// remote host accepts. Idle sessions are revived lazily on Acquire and
// evicted by a background sweep once they sit unused past the expiry.
type Pool struct {
	cfg     Config
	hostKey ssh.HostKeyCallback
	logger  *slog.Logger

	mu     sync.Mutex
	idle   []*Session
	closed bool
	sweep  *time.Timer
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets a logger for session lifecycle events.
// If nil, logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithHostKeyCallback overrides host key verification, replacing both the
// known-hosts file and the insecure default.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(p *Pool) {
		p.hostKey = cb
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Pool) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// New validates the configuration and starts the idle sweep. No connection
// is opened until the first Acquire.
func New(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Pool{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(p)
	}
	p.sweep = time.AfterFunc(p.cfg.SweepInterval, p.sweepIdle)
	return p, nil
}

// Config returns the pool's configuration with defaults applied.
func (p *Pool) Config() Config {
	return p.cfg
}

// Acquire leases a session. It pops one idle session and revives it, or
// opens a new one when the pool is empty. The session must be given back
// with Release (or by closing a stream that owns it).
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	var s *Session
	if len(p.idle) > 0 {
		s = p.idle[0]
		p.idle = p.idle[1:]
	}
	p.mu.Unlock()

	if s != nil {
		revived := !s.alive()
		if err := s.revive(ctx); err != nil {
			s.Close()
			return nil, err
		}
		if revived {
			p.log().Debug("session revived", "session", s.ID())
		}
		return s, nil
	}

	s, err := newSession(ctx, p)
	if err != nil {
		return nil, err
	}
	p.log().Debug("session opened", "session", s.ID())
	return s, nil
}

// put returns a session to the idle collection. Sessions already present
// are left alone, guarding against double release from a stream close path
// and an explicit cleanup path both firing. After Close the session is torn
// down instead of pooled.
func (p *Pool) put(s *Session) {
	if s == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.Close()
		return
	}
	for _, held := range p.idle {
		if held == s {
			p.mu.Unlock()
			return
		}
	}
	p.idle = append(p.idle, s)
	p.mu.Unlock()
}

// Idle reports the number of sessions currently pooled.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// sweepIdle drops sessions idle past the expiry or already dead. Only the
// sessions present when the sweep starts are examined, so sessions released
// mid-sweep wait for the next pass. The sweep reschedules itself until the
// pool closes.
func (p *Pool) sweepIdle() {
	defer p.reschedule()

	var victims []*Session

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	now := time.Now()
	for n := len(p.idle); n > 0; n-- {
		s := p.idle[0]
		p.idle = p.idle[1:]
		if now.Sub(s.lastUsed) < p.cfg.SessionExpiry && s.alive() {
			p.idle = append(p.idle, s)
			continue
		}
		victims = append(victims, s)
	}
	p.mu.Unlock()

	for _, s := range victims {
		s.Close()
		p.log().Debug("session evicted", "session", s.ID())
	}
}

// reschedule re-arms the sweep timer unless the pool closed mid-sweep.
func (p *Pool) reschedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.sweep.Reset(p.cfg.SweepInterval)
	}
}

// Close drains the idle collection and tears every session down. Sessions
// currently leased are not reachable; their release paths will close them.
// Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	victims := p.idle
	p.idle = nil
	p.sweep.Stop()
	p.mu.Unlock()

	for _, s := range victims {
		s.Close()
	}
	p.log().Debug("pool closed", "sessions", len(victims))
}
