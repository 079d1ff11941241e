package repository

import "errors"

// Sentinel errors for snapshot operations.
var (
	// ErrInvalidName is returned when a snapshot name is empty or contains
	// path separators.
	ErrInvalidName = errors.New("repository: invalid snapshot name")

	// ErrSnapshotExists is returned when creating a snapshot under a name
	// that is already taken.
	ErrSnapshotExists = errors.New("repository: snapshot already exists")

	// ErrSnapshotNotFound is returned when no manifest exists for the name.
	ErrSnapshotNotFound = errors.New("repository: snapshot not found")

	// ErrInvalidManifest is returned when a manifest cannot be decoded or
	// describes entries that are not safe to restore.
	ErrInvalidManifest = errors.New("repository: invalid manifest")

	// ErrCorrupt is returned when restored content does not match the
	// manifest's size or digest.
	ErrCorrupt = errors.New("repository: content digest mismatch")
)
