// Package matching holds the decision policy and the two catalog matching
// stages that run before arbitration.
//
// DeterministicMatcher resolves a query URL by exact lookup keys or a unique
// slug. FuzzyScorer ranks catalog entries by a weighted blend of title,
// creator, slug, and domain signals and applies the threshold and gap rules.
// Both depend only on the catalog index and the Policy, never on I/O.
package matching
