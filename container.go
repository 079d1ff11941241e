package sftpblob

import (
	"context"
	"io"
)

// Container exposes blob CRUD scoped to one remote directory. Containers
// are cheap handles: all state lives in the store, and every call leases a
// session for just its own duration (or, for streams, until the stream is
// closed).
type Container struct {
	store *Store
	path  BlobPath
	base  string
}

// Path returns the container's path below the store root.
func (c *Container) Path() BlobPath {
	return c.path
}

// blobPath resolves a blob name against the container directory.
func (c *Container) blobPath(name string) string {
	return joinRemote(c.base, name)
}

// List returns the container's blobs keyed by name. Directories and
// special entries are excluded: only regular files are blobs.
func (c *Container) List(ctx context.Context) (map[string]Metadata, error) {
	sess, err := c.store.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	infos, err := sess.ReadDir(c.base)
	if err != nil {
		return nil, err
	}
	blobs := make(map[string]Metadata, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		blobs[info.Name()] = Metadata{Name: info.Name(), Size: info.Size()}
	}
	return blobs, nil
}

// Exists reports whether a blob named name is present. Any failure reads
// as false, including a lost connection; callers needing to distinguish
// failure causes should use List or Open instead.
func (c *Container) Exists(ctx context.Context, name string) bool {
	sess, err := c.store.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer sess.Release()

	_, err = sess.Stat(c.blobPath(name))
	return err == nil
}

// Delete removes the blob named name, reporting the outcome as a boolean
// under the same soft-fail policy as Exists: any failure reads as false
// and is never propagated.
func (c *Container) Delete(ctx context.Context, name string) bool {
	sess, err := c.store.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer sess.Release()

	return sess.Remove(c.blobPath(name)) == nil
}

// Open returns a reader over the blob's content. The reader owns a pooled
// session until closed, so callers must close it promptly.
func (c *Container) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	sess, err := c.store.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	r, err := sess.OpenRead(c.blobPath(name))
	if err != nil {
		sess.Release()
		return nil, err
	}
	return r, nil
}

// Create returns a writer that creates or replaces the blob named name.
// Like Open, the writer owns a pooled session until closed; the blob's
// content is not complete until Close returns.
func (c *Container) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	sess, err := c.store.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	w, err := sess.OpenWrite(c.blobPath(name))
	if err != nil {
		sess.Release()
		return nil, err
	}
	return w, nil
}
