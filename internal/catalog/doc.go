// Package catalog holds the read-only reference catalog the resolver matches
// against.
//
// Loaders read the catalog in bulk (JSON documents or a SQLite database) and
// build an Index, which validates entry identifiers once and precomputes the
// URL lookup keys and slug buckets used by deterministic matching. An Index is
// immutable after construction and safe for concurrent readers.
package catalog
