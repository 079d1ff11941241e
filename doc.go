// Package sftpblob provides a blob store backed by an SFTP server.
//
// Blobs are plain remote files grouped into containers, one directory per
// container under a configured root location. All traffic runs over a pool
// of authenticated SSH sessions (see the sshpool subpackage): sessions are
// leased for one operation at a time, revived transparently when the remote
// side drops them, and evicted once they sit idle past a configured expiry.
//
// # Quick Start
//
// Open a store and write a blob:
//
//	store, err := sftpblob.New(sftpblob.Config{
//	    Host:     "backup.example.com",
//	    User:     "backup",
//	    Password: os.Getenv("SFTP_PASSWORD"),
//	    Location: "/srv/blobs",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	c, err := store.Container(ctx, sftpblob.ParsePath("snapshots/daily"))
//	if err != nil {
//	    return err
//	}
//	w, err := c.Create(ctx, "state.bin")
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(w, src); err != nil {
//	    w.Close()
//	    return err
//	}
//	return w.Close()
//
// Read it back:
//
//	r, err := c.Open(ctx, "state.bin")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	data, err := io.ReadAll(r)
//
// Exists and Delete report outcomes as booleans and never fail: any error,
// including a lost connection, reads as "absent" or "not deleted". Callers
// needing to distinguish failure causes should use List, Open, or Create.
//
// The repository subpackage layers directory snapshots (compression,
// chunking, digest verification) on top of this store.
package sftpblob
