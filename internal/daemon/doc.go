// Package daemon runs the long-lived converto HTTP service.
//
// It wires configuration, the history store, and the transformation pipeline
// into a single lifecycle with flock-based locking to prevent multiple
// instances. The HTTP surface authenticates bearer tokens against the
// configured token table, streams single artifacts or zip archives back to
// the caller, and exposes history listings plus a dependency status view.
//
// Keep orchestration here: transformation semantics live in pipeline and
// its collaborators while the daemon focuses on startup, shutdown, and
// request plumbing.
package daemon
