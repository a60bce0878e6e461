// Package main hosts the modanalyzer CLI.
//
// The Cobra command tree resolves mod page URLs against the reference
// catalog (one at a time or from a batch file), inspects and clears the
// decision cache, reports catalog statistics, and scaffolds configuration.
// Commands load configuration once through commandContext and build the
// resolver with pipeline.Open; all decision logic lives in internal packages.
package main
