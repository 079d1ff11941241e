package sshpool

import (
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Defaults applied by [Config.withDefaults].
const (
	DefaultPort          = 22
	DefaultLocation      = "."
	DefaultSessionExpiry = 60 * time.Second
	DefaultSweepInterval = time.Minute
)

// Config describes the remote endpoint and pool behavior.
//
// Host is required, together with at least one credential (Password or
// PrivateKeyPath). Everything else has a working default. A missing or
// wrong User is the remote server's call and surfaces as ErrConnect.
type Config struct {
	// Host is the remote host name or address.
	Host string

	// Port is the SSH port. Defaults to 22.
	Port int

	// User is the account to authenticate as.
	User string

	// Password enables password authentication when non-empty.
	Password string

	// PrivateKeyPath points at a PEM-encoded private key file and enables
	// public key authentication when non-empty. The key is loaded on each
	// session open, not at pool construction.
	PrivateKeyPath string

	// PrivateKeyPassphrase decrypts an encrypted private key.
	PrivateKeyPassphrase string

	// KnownHostsPath points at an OpenSSH known_hosts file used to verify
	// the remote host key. When empty, host key verification is disabled.
	KnownHostsPath string

	// Location is the remote root directory all paths are resolved
	// against. Defaults to ".", the account's home directory.
	Location string

	// SessionExpiry is how long a session may sit idle in the pool before
	// the sweep evicts it. Defaults to 60 seconds.
	SessionExpiry time.Duration

	// SweepInterval is how often the idle sweep runs. Defaults to one
	// minute.
	SweepInterval time.Duration

	// DialTimeout bounds the TCP dial of a new session. Zero means no
	// limit beyond the caller's context.
	DialTimeout time.Duration
}

// validate checks the construction-time preconditions. Credential material
// is only checked for presence here; bad key files surface as ErrConnect
// when a session opens.
func (c Config) validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.Password == "" && c.PrivateKeyPath == "" {
		return ErrMissingCredentials
	}
	return nil
}

// withDefaults fills zero fields with the package defaults.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Location == "" {
		c.Location = DefaultLocation
	}
	if c.SessionExpiry == 0 {
		c.SessionExpiry = DefaultSessionExpiry
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// addr returns the dial address in host:port form.
func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// clientConfig assembles the ssh.ClientConfig for one session open.
// hostKey overrides the known-hosts / insecure default when non-nil.
func (c Config) clientConfig(hostKey ssh.HostKeyCallback) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}
	if c.PrivateKeyPath != "" {
		signer, err := loadSigner(c.PrivateKeyPath, c.PrivateKeyPassphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if hostKey == nil {
		if c.KnownHostsPath != "" {
			cb, err := knownhosts.New(c.KnownHostsPath)
			if err != nil {
				return nil, err
			}
			hostKey = cb
		} else {
			hostKey = ssh.InsecureIgnoreHostKey() //nolint:gosec // verification is opt-in via KnownHostsPath
		}
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         c.DialTimeout,
	}, nil
}

// loadSigner reads and parses a PEM private key file.
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(pem)
}
