// Package storage defines the key-value capability keygate uses to cache
// the credential map and to invalidate cached downstream tokens.
//
// Backends (memory, redis, postgres) implement Store. The store is a
// best-effort cache, not a source of truth: callers must tolerate write
// and delete failures.
package storage
