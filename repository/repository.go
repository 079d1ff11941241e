package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/sftpblob"
)

// Repository reads and writes snapshots in one container of a blob store.
type Repository struct {
	container *sftpblob.Container
	chunkSize int64
	compress  bool
	streams   int
	logger    *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Repository) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// New binds a repository to the container at path, creating the remote
// directory if needed.
func New(ctx context.Context, store *sftpblob.Store, path sftpblob.BlobPath, opts ...Option) (*Repository, error) {
	r := &Repository{streams: DefaultConcurrentStreams}
	for _, opt := range opts {
		opt(r)
	}
	if r.streams < 1 {
		return nil, errors.New("repository: concurrent streams must be positive")
	}
	if r.chunkSize < 0 {
		return nil, errors.New("repository: chunk size must be non-negative")
	}

	container, err := store.Container(ctx, path)
	if err != nil {
		return nil, err
	}
	r.container = container
	return r, nil
}

// Snapshot uploads every regular file under srcDir as a new snapshot named
// name and returns its manifest. Irregular entries (symlinks, sockets) are
// skipped. The upload is not transactional: a failure can leave orphan
// blobs behind, but never a manifest, so the snapshot does not exist until
// Snapshot returns nil.
func (r *Repository) Snapshot(ctx context.Context, name, srcDir string) (*Manifest, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if r.container.Exists(ctx, manifestBlob(name)) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, name)
	}

	items, err := r.collect(srcDir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries := make([]FileEntry, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.streams)
	for i, item := range items {
		g.Go(func() error {
			entry, err := r.uploadFile(gctx, item)
			if err != nil {
				return err
			}
			entries[i] = entry
			r.log().Debug("file uploaded", "path", item.rel, "bytes", item.size, "chunks", entry.Chunks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Manifest{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		ChunkSize: r.chunkSize,
		Files:     entries,
	}
	if err := r.writeManifest(ctx, m); err != nil {
		return nil, err
	}
	r.log().Info("snapshot complete", "name", name, "files", len(entries), "elapsed", time.Since(start))
	return m, nil
}

// Restore downloads the named snapshot into destDir, verifying every
// file's size and digest. Existing files are overwritten.
func (r *Repository) Restore(ctx context.Context, name, destDir string) error {
	m, err := r.loadManifest(ctx, name)
	if err != nil {
		return err
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.streams)
	for _, entry := range m.Files {
		g.Go(func() error {
			if err := r.restoreFile(gctx, entry, destDir); err != nil {
				return err
			}
			r.log().Debug("file restored", "path", entry.Path, "bytes", entry.Size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.log().Info("restore complete", "name", name, "files", len(m.Files), "elapsed", time.Since(start))
	return nil
}

// Snapshots lists the snapshot names present in the repository, sorted.
func (r *Repository) Snapshots(ctx context.Context) ([]string, error) {
	blobs, err := r.container.List(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for blob := range blobs {
		name, ok := strings.CutPrefix(blob, manifestPrefix)
		if !ok {
			continue
		}
		name, ok = strings.CutSuffix(name, manifestSuffix)
		if !ok {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Manifest loads the named snapshot's manifest.
func (r *Repository) Manifest(ctx context.Context, name string) (*Manifest, error) {
	return r.loadManifest(ctx, name)
}

// DeleteSnapshot removes the snapshot's data blobs best-effort, then its
// manifest. Once the manifest is gone the snapshot no longer exists, even
// if some unreachable data blobs were left behind.
func (r *Repository) DeleteSnapshot(ctx context.Context, name string) error {
	m, err := r.loadManifest(ctx, name)
	if err != nil {
		return err
	}
	for _, entry := range m.Files {
		for i := range entry.Chunks {
			if !r.container.Delete(ctx, chunkName(entry.Blob, i)) {
				r.log().Debug("data blob not deleted", "blob", chunkName(entry.Blob, i))
			}
		}
	}
	if !r.container.Delete(ctx, manifestBlob(name)) {
		return fmt.Errorf("repository: snapshot %s: manifest not deleted", name)
	}
	r.log().Info("snapshot deleted", "name", name, "files", len(m.Files))
	return nil
}

// walkItem is one regular file found under the snapshot source directory.
type walkItem struct {
	rel  string
	abs  string
	size int64
	mode fs.FileMode
}

func (r *Repository) collect(srcDir string) ([]walkItem, error) {
	var items []walkItem
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			r.log().Debug("skipping irregular entry", "path", p)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		items = append(items, walkItem{
			rel:  filepath.ToSlash(rel),
			abs:  p,
			size: info.Size(),
			mode: info.Mode().Perm(),
		})
		return nil
	})
	return items, err
}

// uploadFile streams one local file into its parts, digesting the original
// bytes as they pass through.
func (r *Repository) uploadFile(ctx context.Context, item walkItem) (FileEntry, error) {
	f, err := os.Open(item.abs)
	if err != nil {
		return FileEntry{}, err
	}
	defer f.Close()

	chunks := 1
	limit := int64(math.MaxInt64)
	if r.chunkSize > 0 {
		limit = r.chunkSize
		chunks = int((item.size + r.chunkSize - 1) / r.chunkSize)
		if chunks < 1 {
			chunks = 1
		}
	}

	blob := "blob-" + uuid.NewString()
	digester := digest.Canonical.Digester()
	src := io.TeeReader(f, digester.Hash())

	for i := range chunks {
		if err := r.uploadPart(ctx, chunkName(blob, i), io.LimitReader(src, limit)); err != nil {
			return FileEntry{}, fmt.Errorf("upload %s: %w", item.rel, err)
		}
	}

	return FileEntry{
		Path:       item.rel,
		Size:       item.size,
		Mode:       uint32(item.mode),
		Digest:     digester.Digest(),
		Blob:       blob,
		Chunks:     chunks,
		Compressed: r.compress,
	}, nil
}

// uploadPart writes one part blob, compressing when configured. Each part
// is a self-contained zstd frame so parts can be restored independently.
func (r *Repository) uploadPart(ctx context.Context, name string, src io.Reader) error {
	w, err := r.container.Create(ctx, name)
	if err != nil {
		return err
	}

	var copyErr error
	if r.compress {
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			_ = w.Close()
			return err
		}
		_, copyErr = io.Copy(enc, src)
		if err := enc.Close(); copyErr == nil {
			copyErr = err
		}
	} else {
		_, copyErr = io.Copy(w, src)
	}

	if err := w.Close(); copyErr == nil {
		copyErr = err
	}
	return copyErr
}

func (r *Repository) restoreFile(ctx context.Context, entry FileEntry, destDir string) error {
	if !validEntryPath(entry.Path) {
		return fmt.Errorf("%w: unsafe path %q", ErrInvalidManifest, entry.Path)
	}
	if entry.Blob == "" || entry.Chunks < 1 {
		return fmt.Errorf("%w: entry %q", ErrInvalidManifest, entry.Path)
	}

	local := filepath.Join(destDir, filepath.FromSlash(entry.Path))
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	mode := fs.FileMode(entry.Mode)
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	digester := digest.Canonical.Digester()
	out := io.MultiWriter(f, digester.Hash())
	var written int64
	for i := range entry.Chunks {
		n, err := r.downloadPart(ctx, chunkName(entry.Blob, i), entry.Compressed, out)
		written += n
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("restore %s: %w", entry.Path, err)
		}
	}
	if err := f.Close(); err != nil {
		return err
	}

	if written != entry.Size || digester.Digest() != entry.Digest {
		return fmt.Errorf("%w: %s", ErrCorrupt, entry.Path)
	}
	return nil
}

func (r *Repository) downloadPart(ctx context.Context, name string, compressed bool, dst io.Writer) (int64, error) {
	rc, err := r.container.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	if !compressed {
		return io.Copy(dst, rc)
	}
	dec, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return 0, err
	}
	defer dec.Close()
	return io.Copy(dst, dec)
}

func (r *Repository) loadManifest(ctx context.Context, name string) (*Manifest, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !r.container.Exists(ctx, manifestBlob(name)) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	rc, err := r.container.Open(ctx, manifestBlob(name))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, name, err)
	}
	return &m, nil
}

func (r *Repository) writeManifest(ctx context.Context, m *Manifest) error {
	w, err := r.container.Create(ctx, manifestBlob(m.Name))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	encErr := enc.Encode(m)
	if err := w.Close(); encErr == nil {
		encErr = err
	}
	return encErr
}
