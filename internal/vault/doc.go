// Package vault is the coordination layer between callers and file
// persistence.
//
// A Vault holds the authoritative in-memory metadata map (one entry per
// tracked file, keyed by file ID) and funnels every persistence
// operation through a files.Service. Status transitions follow
//
//	pending -> uploading -> success | error
//
// with entries inserted optimistically before their save completes.
//
// # Batch semantics
//
// AddFiles isolates failures per file: each input gets its own
// AddResult and its own terminal status, and one failure never aborts
// the rest. RemoveFiles attempts every key and reports partial failure
// as a joined error; entries whose delete failed remain tracked so the
// caller can retry.
package vault
