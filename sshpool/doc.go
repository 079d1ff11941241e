// Package sshpool manages a pool of authenticated SSH sessions with an
// SFTP channel open on each.
//
// Opening a session is expensive (TCP dial, key exchange, auth, channel
// negotiation) and a session supports only one in-flight operation, so the
// pool hands sessions out under an exclusive lease: Acquire pops an idle
// session or opens a new one, Release returns it for reuse. Sessions that
// died while idle are revived transparently on the next Acquire, and a
// background sweep drops sessions that sit idle past the configured expiry.
package sshpool
