// Package credentials keeps the session credential (an opaque bearer token).
//
// A Store pairs a durable Persister with an in-process mirror. Set and Clear
// update both layers before returning, so a request dispatched right after
// them always observes the new value; Get never touches the durable layer.
//
// Persisters:
//   - SQLitePersister: the "token" key of the local metadata table (default).
//   - FilePersister:   a small JSON file replaced atomically via renameio.
//
// Only the session controller writes to a Store; everything else reads it.
package credentials
