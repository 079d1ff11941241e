package sftpblob

import "strings"

// BlobPath addresses a container as an ordered list of path segments below
// the store's root location. The zero value addresses the root itself.
//
// BlobPath values are immutable: Add returns a new path and leaves the
// receiver unchanged, so a path can be shared freely across goroutines.
type BlobPath struct {
	segs []string
}

// RootPath returns the path addressing the store root.
func RootPath() BlobPath {
	return BlobPath{}
}

// ParsePath converts a slash-separated string to a BlobPath.
//
// Empty segments are dropped, so leading, trailing, and doubled slashes are
// all tolerated: "/a//b/" parses the same as "a/b". The empty string parses
// to the root path.
func ParsePath(s string) BlobPath {
	parts := strings.Split(s, "/")
	segs := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	if len(segs) == 0 {
		return BlobPath{}
	}
	return BlobPath{segs: segs}
}

// Add returns a copy of p with one more segment appended.
func (p BlobPath) Add(segment string) BlobPath {
	segs := make([]string, len(p.segs), len(p.segs)+1)
	copy(segs, p.segs)
	return BlobPath{segs: append(segs, segment)}
}

// Segments returns a copy of the path's segments.
func (p BlobPath) Segments() []string {
	segs := make([]string, len(p.segs))
	copy(segs, p.segs)
	return segs
}

// IsRoot reports whether p addresses the store root.
func (p BlobPath) IsRoot() bool {
	return len(p.segs) == 0
}

// String renders the path slash-joined. The root renders as "".
func (p BlobPath) String() string {
	return strings.Join(p.segs, "/")
}

// joinRemote resolves path elements against a base location using forward
// slashes regardless of the local OS. Empty elements are skipped; a base of
// "" or "." resolves elements relative to the remote working directory, so
// "./x" never appears on the wire.
func joinRemote(base string, elems ...string) string {
	path := base
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, e := range elems {
		if e == "" {
			continue
		}
		switch {
		case path == "" || path == ".":
			path = e
		case strings.HasSuffix(path, "/"):
			path += e
		default:
			path += "/" + e
		}
	}
	if path == "" {
		return "."
	}
	return path
}
