// Package cache persists resolution results so repeated queries skip the
// expensive stages.
//
// A Store owns one directory holding three JSON partition documents:
//
//   - url_cache.json: canonical URL → outcome, for deterministic matches and
//     rejections.
//   - evidence_cache.json: EvidenceKey → outcome, for decisions that scored or
//     arbitrated a candidate set.
//   - live_entity_cache.json: catalog ID → live entity snapshot.
//
// The URL and evidence documents carry the catalog and policy version they were
// written under. Opening the store with different versions empties both; the
// live entity partition expires by TTL instead. Every mutation rewrites the
// affected document atomically. An exclusive file lock on <dir>/.lock keeps a
// single writer per directory.
package cache
