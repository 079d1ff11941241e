package repository_test

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sftpblob"
	"github.com/meigma/sftpblob/internal/sshtest"
	"github.com/meigma/sftpblob/repository"
)

// testRepo bundles a repository with the local directory backing the
// remote container, so tests can inspect or corrupt stored blobs.
type testRepo struct {
	repo      *repository.Repository
	store     *sftpblob.Store
	container string
}

func newTestRepo(t *testing.T, opts ...repository.Option) *testRepo {
	t.Helper()

	srv := sshtest.Start(t)
	root := t.TempDir()

	store, err := sftpblob.New(sftpblob.Config{
		Host:     srv.Host(),
		Port:     srv.Port(),
		User:     sshtest.User,
		Password: sshtest.Password,
		Location: root,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo, err := repository.New(context.Background(), store, sftpblob.ParsePath("repo"), opts...)
	require.NoError(t, err)

	return &testRepo{repo: repo, store: store, container: filepath.Join(root, "repo")}
}

// writeTestFiles materializes a file map under dir.
func writeTestFiles(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, content, 0o644))
	}
}

// assertDirContents verifies dir holds exactly the expected files.
func assertDirContents(t *testing.T, dir string, expected map[string][]byte) {
	t.Helper()
	for path, want := range expected {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
		require.NoError(t, err, "read restored %q", path)
		assert.Equal(t, want, got, "content mismatch for %q", path)
	}
}

func makeRandomContent(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func testFixture(t *testing.T) map[string][]byte {
	return map[string][]byte{
		"state.json":       []byte(`{"generation": 7}`),
		"empty.marker":     {},
		"data/segment.bin": makeRandomContent(t, 100<<10),
		"data/deep/x.txt":  []byte("nested file"),
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []repository.Option
	}{
		{"plain", nil},
		{"compressed", []repository.Option{repository.WithCompression(true)}},
		{"chunked", []repository.Option{repository.WithChunkSize(16 << 10)}},
		{"compressed chunked", []repository.Option{
			repository.WithCompression(true),
			repository.WithChunkSize(16 << 10),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := newTestRepo(t, tt.opts...)
			ctx := context.Background()
			files := testFixture(t)

			src := t.TempDir()
			writeTestFiles(t, src, files)

			m, err := tr.repo.Snapshot(ctx, "nightly", src)
			require.NoError(t, err)
			require.Len(t, m.Files, len(files))

			dest := t.TempDir()
			require.NoError(t, tr.repo.Restore(ctx, "nightly", dest))
			assertDirContents(t, dest, files)
		})
	}
}

func TestSnapshotChunking(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t, repository.WithChunkSize(4<<10))
	ctx := context.Background()

	src := t.TempDir()
	writeTestFiles(t, src, map[string][]byte{
		"big.bin":   makeRandomContent(t, 10<<10), // 3 chunks of 4 KiB
		"exact.bin": makeRandomContent(t, 8<<10),  // exactly 2 chunks
		"small.bin": makeRandomContent(t, 100),    // 1 chunk
		"empty.bin": {},                           // still 1 part
	})

	m, err := tr.repo.Snapshot(ctx, "chunky", src)
	require.NoError(t, err)

	chunks := make(map[string]int)
	for _, entry := range m.Files {
		chunks[entry.Path] = entry.Chunks
	}
	assert.Equal(t, 3, chunks["big.bin"])
	assert.Equal(t, 2, chunks["exact.bin"])
	assert.Equal(t, 1, chunks["small.bin"])
	assert.Equal(t, 1, chunks["empty.bin"])

	// Every part exists remotely under the blob's name.
	for _, entry := range m.Files {
		for i := range entry.Chunks {
			part := fmt.Sprintf("%s.part%d", entry.Blob, i)
			_, err := os.Stat(filepath.Join(tr.container, part))
			assert.NoError(t, err, "missing part %s for %s", part, entry.Path)
		}
	}
}

func TestSnapshotManifest(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	src := t.TempDir()
	writeTestFiles(t, src, map[string][]byte{"a.txt": []byte("alpha")})

	m, err := tr.repo.Snapshot(ctx, "first", src)
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "first", m.Name)
	assert.False(t, m.CreatedAt.IsZero())
	require.Len(t, m.Files, 1)

	entry := m.Files[0]
	assert.Equal(t, "a.txt", entry.Path)
	assert.Equal(t, int64(5), entry.Size)
	assert.Equal(t, "sha256", string(entry.Digest.Algorithm()))
	assert.False(t, entry.Compressed)

	loaded, err := tr.repo.Manifest(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, m.Files, loaded.Files)
}

func TestSnapshotEmptyDirectory(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	m, err := tr.repo.Snapshot(ctx, "nothing", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, m.Files)

	dest := t.TempDir()
	require.NoError(t, tr.repo.Restore(ctx, "nothing", dest))
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSnapshotDuplicateName(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	src := t.TempDir()
	writeTestFiles(t, src, map[string][]byte{"a": []byte("x")})

	_, err := tr.repo.Snapshot(ctx, "taken", src)
	require.NoError(t, err)

	_, err = tr.repo.Snapshot(ctx, "taken", src)
	require.ErrorIs(t, err, repository.ErrSnapshotExists)
}

func TestSnapshotInvalidName(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := tr.repo.Snapshot(ctx, name, t.TempDir())
		assert.ErrorIs(t, err, repository.ErrInvalidName, "name %q", name)
	}
}

func TestSnapshotsListsOnlyManifests(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	src := t.TempDir()
	writeTestFiles(t, src, map[string][]byte{"a": []byte("x")})

	_, err := tr.repo.Snapshot(ctx, "beta", src)
	require.NoError(t, err)
	_, err = tr.repo.Snapshot(ctx, "alpha", src)
	require.NoError(t, err)

	// A stray non-manifest blob in the same container is not a snapshot.
	require.NoError(t, os.WriteFile(filepath.Join(tr.container, "stray.bin"), []byte("noise"), 0o644))

	names, err := tr.repo.Snapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	err := tr.repo.Restore(context.Background(), "ghost", t.TempDir())
	require.ErrorIs(t, err, repository.ErrSnapshotNotFound)
}

func TestRestoreDetectsCorruption(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	content := makeRandomContent(t, 2048)
	src := t.TempDir()
	writeTestFiles(t, src, map[string][]byte{"payload.bin": content})

	m, err := tr.repo.Snapshot(ctx, "fragile", src)
	require.NoError(t, err)
	require.Len(t, m.Files, 1)
	part := fmt.Sprintf("%s.part0", m.Files[0].Blob)

	t.Run("flipped content", func(t *testing.T) {
		// Same length, different bytes: only the digest can tell.
		garbage := makeRandomContent(t, len(content))
		require.NoError(t, os.WriteFile(filepath.Join(tr.container, part), garbage, 0o644))

		err := tr.repo.Restore(ctx, "fragile", t.TempDir())
		require.ErrorIs(t, err, repository.ErrCorrupt)
	})

	t.Run("truncated content", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(tr.container, part), content[:100], 0o644))

		err := tr.repo.Restore(ctx, "fragile", t.TempDir())
		require.ErrorIs(t, err, repository.ErrCorrupt)
	})
}

func TestRestoreRejectsUnsafeManifest(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	evil := repository.Manifest{
		ID:   "evil",
		Name: "evil",
		Files: []repository.FileEntry{
			{Path: "../escape", Size: 1, Blob: "blob-x", Chunks: 1},
		},
	}
	raw, err := json.Marshal(evil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(tr.container, "snap-evil.json"), raw, 0o644))

	err = tr.repo.Restore(ctx, "evil", t.TempDir())
	require.ErrorIs(t, err, repository.ErrInvalidManifest)
}

func TestDeleteSnapshot(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	ctx := context.Background()

	src := t.TempDir()
	writeTestFiles(t, src, map[string][]byte{
		"a.bin": makeRandomContent(t, 1024),
		"b.bin": makeRandomContent(t, 1024),
	})

	keep, err := tr.repo.Snapshot(ctx, "keep", src)
	require.NoError(t, err)
	doomed, err := tr.repo.Snapshot(ctx, "doomed", src)
	require.NoError(t, err)

	require.NoError(t, tr.repo.DeleteSnapshot(ctx, "doomed"))

	names, err := tr.repo.Snapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)

	err = tr.repo.Restore(ctx, "doomed", t.TempDir())
	require.ErrorIs(t, err, repository.ErrSnapshotNotFound)

	// The doomed snapshot's data blobs are gone; the kept one's remain.
	for _, entry := range doomed.Files {
		_, err := os.Stat(filepath.Join(tr.container, entry.Blob+".part0"))
		assert.True(t, os.IsNotExist(err), "blob %s should be deleted", entry.Blob)
	}
	for _, entry := range keep.Files {
		_, err := os.Stat(filepath.Join(tr.container, entry.Blob+".part0"))
		assert.NoError(t, err, "blob %s should survive", entry.Blob)
	}

	require.ErrorIs(t, tr.repo.DeleteSnapshot(ctx, "doomed"), repository.ErrSnapshotNotFound)
}

func TestRestorePreservesMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not preserved on windows")
	}

	tr := newTestRepo(t)
	ctx := context.Background()

	src := t.TempDir()
	script := filepath.Join(src, "run.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))

	_, err := tr.repo.Snapshot(ctx, "modes", src)
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, tr.repo.Restore(ctx, "modes", dest))

	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	srv := sshtest.Start(t)
	store, err := sftpblob.New(sftpblob.Config{
		Host:     srv.Host(),
		Port:     srv.Port(),
		User:     sshtest.User,
		Password: sshtest.Password,
		Location: t.TempDir(),
	})
	require.NoError(t, err)
	defer store.Close()

	_, err = repository.New(context.Background(), store, sftpblob.RootPath(),
		repository.WithConcurrentStreams(0))
	require.Error(t, err)

	_, err = repository.New(context.Background(), store, sftpblob.RootPath(),
		repository.WithChunkSize(-1))
	require.Error(t, err)
}
