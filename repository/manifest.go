package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
)

// Manifest blob naming. Manifests live beside the data blobs they describe,
// distinguished only by this prefix and suffix.
const (
	manifestPrefix = "snap-"
	manifestSuffix = ".json"
)

// Manifest records the contents of one snapshot.
type Manifest struct {
	// ID uniquely identifies this snapshot across renames.
	ID string `json:"id"`

	// Name is the caller-chosen snapshot name.
	Name string `json:"name"`

	// CreatedAt is the UTC creation time.
	CreatedAt time.Time `json:"created_at"`

	// ChunkSize is the chunking threshold the snapshot was written with,
	// zero when chunking was disabled.
	ChunkSize int64 `json:"chunk_size,omitempty"`

	// Files lists every file in the snapshot.
	Files []FileEntry `json:"files"`
}

// FileEntry describes one file within a snapshot.
type FileEntry struct {
	// Path is the file's slash-separated path relative to the snapshot root.
	Path string `json:"path"`

	// Size is the original content length in bytes.
	Size int64 `json:"size"`

	// Mode carries the file's permission bits.
	Mode uint32 `json:"mode"`

	// Digest is the SHA-256 digest of the original (uncompressed) content.
	Digest digest.Digest `json:"digest"`

	// Blob is the base name the file's parts are stored under.
	Blob string `json:"blob"`

	// Chunks is the number of parts, at least 1.
	Chunks int `json:"chunks"`

	// Compressed marks parts as zstd-compressed.
	Compressed bool `json:"compressed"`
}

// manifestBlob returns the blob name a snapshot's manifest is stored under.
func manifestBlob(name string) string {
	return manifestPrefix + name + manifestSuffix
}

// chunkName returns the blob name of one part of a file.
func chunkName(blob string, i int) string {
	return fmt.Sprintf("%s.part%d", blob, i)
}

// validName accepts snapshot names usable as a blob name component.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// validEntryPath rejects manifest paths that would escape the restore root.
func validEntryPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
