// Package repository layers directory snapshots on top of an SFTP blob
// store.
//
// Snapshot walks a local directory and uploads every regular file as one
// or more blobs, optionally zstd-compressed and optionally split into
// fixed-size chunks, then writes a JSON manifest naming each file with its
// content digest. Restore downloads per the manifest, reassembles and
// decompresses the chunks, and verifies every file's digest before
// reporting success. Uploads and downloads run concurrently up to a
// configured stream limit.
package repository
