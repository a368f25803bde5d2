// =============================================================================
// PLC Text Generator - Main Entry Point
// =============================================================================
//
// This is the main entry point for the PLC Text Generator CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   plcgen generate       - Render the template and write the sheet files
//   plcgen validate       - Check template and datasets without writing
//   plcgen version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/                : CLI command definitions (Cobra)
//   - internal/render     : Substitution, subtypes, word unpacking, adapters, groups
//   - internal/converter  : One generation run and post-processing
//   - internal/...        : Configuration, template and dataset loading, validation
//   - pkg/utils           : Output files, backups, encodings, summaries
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/plc-text-generator/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
