// Package pipeline composes the resolution stages into one Resolver.
//
// Resolve runs, in order: URL canonicalisation and the URL cache, identity
// production, deterministic matching, fuzzy scoring, candidate planning, the
// evidence cache, and arbitration. Each stage either ends the resolution with
// a decision.Outcome or hands its result to the next one. The stage notes are
// collected into the outcome's Trail.
//
// Open builds a Resolver and its collaborators from configuration.
package pipeline
