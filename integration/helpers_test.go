//go:build integration

package integration

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joeshaw/envdecode"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/sftpblob"
)

// --- SFTP Container Setup ---

// serverConfig controls the test server container. Populated from the
// environment so CI can pin a different image or credentials.
type serverConfig struct {
	Image    string `env:"SFTPBLOB_TEST_IMAGE,default=atmoz/sftp:alpine"`
	User     string `env:"SFTPBLOB_TEST_USER,default=demo"`
	Password string `env:"SFTPBLOB_TEST_PASSWORD,default=secret"`
	// Dir is the writable directory inside the user's chroot.
	Dir string `env:"SFTPBLOB_TEST_DIR,default=upload"`
}

type sftpServer struct {
	cfg  serverConfig
	host string
	port int
}

var (
	serverOnce sync.Once
	server     *sftpServer
	serverErr  error
)

// getServer returns the shared SFTP server, starting the container if needed.
// The container is shared across all tests for performance.
func getServer(tb testing.TB) *sftpServer {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	serverOnce.Do(func() {
		ctx := context.Background()
		server, serverErr = startSFTPContainer(ctx)
	})

	if serverErr != nil {
		tb.Fatalf("start sftp container: %v", serverErr)
	}

	return server
}

// startSFTPContainer starts an OpenSSH/SFTP container and resolves its address.
func startSFTPContainer(ctx context.Context) (*sftpServer, error) {
	var cfg serverConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image: cfg.Image,
		// user:password:uid:gid:dir creates the account and a writable
		// directory inside its chroot.
		Cmd:          []string{fmt.Sprintf("%s:%s:::%s", cfg.User, cfg.Password, cfg.Dir)},
		ExposedPorts: []string{"22/tcp"},
		WaitingFor:   wait.ForListeningPort("22/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start sftp container: %w", err)
	}

	// Note: Container cleanup is handled by testcontainers Reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve sftp host: %w", err)
	}

	port, err := container.MappedPort(ctx, "22/tcp")
	if err != nil {
		return nil, fmt.Errorf("resolve sftp port: %w", err)
	}

	return &sftpServer{cfg: cfg, host: host, port: port.Int()}, nil
}

// --- Test Store Factory ---

// newTestStore creates a store rooted at a unique directory on the shared
// server, so tests don't see each other's blobs.
func newTestStore(tb testing.TB, opts ...sftpblob.Option) *sftpblob.Store {
	tb.Helper()

	srv := getServer(tb)
	store, err := sftpblob.New(sftpblob.Config{
		Host:     srv.host,
		Port:     srv.port,
		User:     srv.cfg.User,
		Password: srv.cfg.Password,
		Location: fmt.Sprintf("%s/%s", srv.cfg.Dir, uniqueName(tb)),
	}, opts...)
	require.NoError(tb, err, "create test store")

	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// uniqueName derives a filesystem-safe name from the test name.
func uniqueName(tb testing.TB) string {
	name := strings.NewReplacer("/", "-", " ", "_").Replace(tb.Name())
	return fmt.Sprintf("%s-%s", name, randomHex(4))
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%x", buf)
}

// --- Test Data Helpers ---

// createTestFiles writes test files to a directory.
func createTestFiles(tb testing.TB, dir string, files map[string][]byte) {
	tb.Helper()
	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		require.NoError(tb, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(tb, os.WriteFile(fullPath, content, 0o644))
	}
}

// makeCompressibleContent creates content that benefits from compression.
func makeCompressibleContent(size int) []byte {
	pattern := []byte("This is a repeating pattern for compression testing. ")
	result := make([]byte, 0, size)
	for len(result) < size {
		result = append(result, pattern...)
	}
	return result[:size]
}

// makeRandomContent creates random binary content.
func makeRandomContent(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// --- Standard Test Fixtures ---

// smallFixture is a simple flat set of 3 small files.
var smallFixture = map[string][]byte{
	"hello.txt":   []byte("Hello, World!"),
	"readme.md":   []byte("# Test Fixture\n\nThis is a test."),
	"config.json": []byte(`{"version": 1, "name": "test"}`),
}

// nestedFixture contains nested directories.
var nestedFixture = map[string][]byte{
	"root.txt":        []byte("root file"),
	"dir1/a.txt":      []byte("file a in dir1"),
	"dir1/b.txt":      []byte("file b in dir1"),
	"dir1/sub/c.txt":  []byte("file c in dir1/sub"),
	"dir2/x.txt":      []byte("file x in dir2"),
	"dir2/deep/y.txt": []byte("file y in dir2/deep"),
	"dir2/deep/z.txt": []byte("file z in dir2/deep"),
	"empty/info":      []byte(""),
}

// --- Assertion Helpers ---

// assertDirContents verifies that a directory contains the expected files.
func assertDirContents(tb testing.TB, dir string, expected map[string][]byte) {
	tb.Helper()

	for path, expectedContent := range expected {
		fullPath := filepath.Join(dir, path)
		gotContent, err := os.ReadFile(fullPath)
		require.NoError(tb, err, "ReadFile(%q)", fullPath)
		require.Equal(tb, expectedContent, gotContent, "content mismatch for %q", path)
	}
}
