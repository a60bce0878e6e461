// Package services defines shared utilities consumed by the resolver stages and
// their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers, stage names, and the
//     URL under resolution for logging and tracing.
//   - Structured error markers plus the Wrap helper so collaborator failures
//     can be told apart from genuine faults with errors.Is.
//
// Use these helpers when wiring new collaborators so failure handling stays
// uniform: anything marked ErrCollaboratorUnavailable or ErrTimeout degrades a
// decision instead of failing the run.
package services
