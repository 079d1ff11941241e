// Package sshtest runs an in-process SSH server with an SFTP subsystem,
// serving the local filesystem. Tests point it at a temp directory and
// exercise the real wire protocol without external processes or Docker.
package sshtest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Credentials every test server accepts.
const (
	User     = "blobtest"
	Password = "hunter2"
)

// Server is an in-process SSH+SFTP server bound to a loopback port.
type Server struct {
	ln      net.Listener
	config  *ssh.ServerConfig
	hostPub ssh.PublicKey

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	closed     bool
	authorized ssh.PublicKey

	dials atomic.Int32
	wg    sync.WaitGroup
}

// Start launches a server and registers its shutdown with tb.Cleanup.
func Start(tb testing.TB) *Server {
	tb.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		tb.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		tb.Fatalf("host key signer: %v", err)
	}

	s := &Server{
		conns:   make(map[net.Conn]struct{}),
		hostPub: signer.PublicKey(),
	}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == User && string(pass) == Password {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown user %q", meta.User())
		},
		PublicKeyCallback: func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.mu.Lock()
			authorized := s.authorized
			s.mu.Unlock()
			if meta.User() == User && authorized != nil && bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("key not authorized for %q", meta.User())
		},
	}
	s.config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop()
	tb.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Host returns the listen address without the port.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listen port.
func (s *Server) Port() int {
	_, portStr, _ := net.SplitHostPort(s.Addr())
	port, _ := strconv.Atoi(portStr)
	return port
}

// HostKey returns the server's public host key.
func (s *Server) HostKey() ssh.PublicKey {
	return s.hostPub
}

// Dials reports how many connections the server has accepted, letting tests
// assert whether an operation reused a session or opened a new one.
func (s *Server) Dials() int {
	return int(s.dials.Load())
}

// DropConns force-closes every live connection, simulating a network drop
// or a remote-side idle disconnect.
func (s *Server) DropConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close stops the listener and tears down all connections.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.ln.Close()
	s.DropConns()
	s.wg.Wait()
}

// InstallClientKey generates a client keypair, authorizes its public half,
// and writes the private half in PEM form under dir. It returns the key
// file path for use as a PrivateKeyPath.
func (s *Server) InstallClientKey(tb testing.TB, dir string) string {
	tb.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		tb.Fatalf("generate client key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		tb.Fatalf("marshal client key: %v", err)
	}
	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		tb.Fatalf("write client key: %v", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		tb.Fatalf("client public key: %v", err)
	}
	s.mu.Lock()
	s.authorized = sshPub
	s.mu.Unlock()
	return path
}

// WriteKnownHosts writes a known_hosts file under dir covering this
// server's address and host key, and returns its path.
func (s *Server) WriteKnownHosts(tb testing.TB, dir string) string {
	tb.Helper()

	line := knownhosts.Line([]string{s.Addr()}, s.hostPub)
	path := filepath.Join(dir, "known_hosts")
	if err := os.WriteFile(path, []byte(line+"\n"), 0o600); err != nil {
		tb.Fatalf("write known_hosts: %v", err)
	}
	return path
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.dials.Add(1)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = c.Close()
			return
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(c)
	}
}

func (s *Server) handle(c net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.Close()
	}()

	sconn, chans, reqs, err := ssh.NewServerConn(c, s.config)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "only session channels supported")
			continue
		}
		channel, channelReqs, err := newChan.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go s.session(channel, channelReqs)
	}
}

// session answers the subsystem request and hands the channel to an SFTP
// server rooted in the process filesystem.
func (s *Server) session(channel ssh.Channel, reqs <-chan *ssh.Request) {
	defer s.wg.Done()
	defer channel.Close()

	for req := range reqs {
		// Subsystem payload is a length-prefixed string.
		if req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp" {
			_ = req.Reply(true, nil)
			srv, err := sftp.NewServer(channel)
			if err != nil {
				return
			}
			_ = srv.Serve()
			_ = srv.Close()
			return
		}
		_ = req.Reply(false, nil)
	}
}
