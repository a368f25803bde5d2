// =============================================================================
// PLC Text Generator - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which renders the template
// against the datasets and writes one file per sheet.
//
// COMMAND USAGE:
//   plcgen generate [flags]
//
// FLAGS:
//   --dry-run : Render and validate without writing files
//   --sample  : Cap every type to sample_limit records
//   --sheet   : Render only the named sheet
//   --watch   : Rerun whenever the template or the data change
//
// EXIT STATUS:
//   Non-zero only for configuration-fatal errors. Data problems are logged
//   and reported in the run summary.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
	"github.com/ginjaninja78/plc-text-generator/internal/converter"
	"github.com/ginjaninja78/plc-text-generator/internal/errs"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// generateFlags holds the flags of the generate command.
var generateFlags struct {
	dryRun bool
	sample bool
	sheet  string
	watch  bool
}

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

// generateCmd represents the 'generate' command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render the template and write the sheet files",
	Long: `The generate command loads the template and the datasets named in the
configuration, renders every sheet and writes it to the output directory.

An existing output file is backed up to backup_dir/<timestamp>/ before it is
replaced. A summary of the run is written to output_dir/logs.

Problems in the data (missing datasets, failed lookups, failed rules,
unresolved placeholders) never stop the run; they are logged and summarized.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, err := loadConfig()
		if err != nil {
			return err
		}

		options := converter.Options{
			DryRun:     generateFlags.dryRun,
			Sheet:      generateFlags.sheet,
			SampleMode: generateFlags.sample,
		}

		if !generateFlags.watch {
			return runGenerate(mainConfig, options)
		}
		return watchGenerate(cmd.Context(), mainConfig, options)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the generate command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(&generateFlags.dryRun, "dry-run", false, "Render and validate without writing files")
	generateCmd.Flags().BoolVar(&generateFlags.sample, "sample", false, "Render at most sample_limit records per type")
	generateCmd.Flags().StringVar(&generateFlags.sheet, "sheet", "", "Render only this sheet")
	generateCmd.Flags().BoolVar(&generateFlags.watch, "watch", false, "Rerun whenever the template or the data change")
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// runGenerate performs one run and prints its outcome.
func runGenerate(mainConfig *config.MainConfig, options converter.Options) error {
	result := converter.New(mainConfig, logger, options).Run()

	if errs.IsFatal(result.Error) {
		return result.Error
	}

	for _, sheet := range result.Sheets {
		switch {
		case sheet.Skipped:
			continue
		case sheet.Error != nil:
			fmt.Printf("  ✗ %s: %v\n", sheet.Name, sheet.Error)
		case options.DryRun:
			fmt.Printf("  ~ %s (%d lines, %d unresolved, not written)\n", sheet.Name, sheet.Lines, sheet.Unresolved)
		default:
			fmt.Printf("  ✓ %s -> %s (%d lines, %d unresolved)\n", sheet.Name, sheet.OutputFile, sheet.Lines, sheet.Unresolved)
		}
	}
	fmt.Println(result.String())
	if result.SummaryFile != "" {
		fmt.Printf("Summary written to %s\n", result.SummaryFile)
	}

	return nil
}

// watchGenerate runs once, then reruns after every change of the template
// or the data until interrupted. Fatal errors of reruns are logged, not
// returned, so that a broken save can be fixed without restarting.
func watchGenerate(parent context.Context, mainConfig *config.MainConfig, options converter.Options) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runGenerate(mainConfig, options); err != nil {
		logger.Error("generation failed", zap.Error(err))
	}

	watcher := &converter.Watcher{
		Paths:  []string{mainConfig.TemplatePath, mainConfig.DataPath},
		Logger: logger,
	}
	logger.Info("watching for changes, press Ctrl+C to stop",
		zap.String("template", mainConfig.TemplatePath),
		zap.String("data", mainConfig.DataPath))

	return watcher.Run(ctx, func() {
		if err := runGenerate(mainConfig, options); err != nil {
			logger.Error("generation failed", zap.Error(err))
		}
	})
}
