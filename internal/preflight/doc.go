// Package preflight provides readiness checks for the files and external
// services the resolver depends on.
//
// `modanalyzer config validate --check` runs RunAll and prints one line per
// check. Each collaborator check is gated by its config: the llm oracle is only
// contacted when it is the selected provider, the live source only when enabled.
package preflight
