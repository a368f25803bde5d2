// =============================================================================
// PLC Text Generator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It loads the configuration, the
// template and the datasets exactly like 'generate' and reports:
//   - template lines whose type has no schema
//   - placeholders outside a type's vocabulary
//   - packed-word types used in Output or Singleton groups
//   - packed-word runs that would be reassembled incompletely
//
// COMMAND USAGE:
//   plcgen validate [--report file] [--strict]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/plc-text-generator/internal/converter"
	"github.com/ginjaninja78/plc-text-generator/internal/validation"
)

var validateFlags struct {
	report string
	strict bool
}

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the template and datasets without writing output",
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := converter.New(mainConfig, logger, converter.Options{DryRun: true}).Validate()
		if err != nil {
			return err
		}

		fmt.Println(validation.FormatErrors(result.Errors))
		fmt.Printf("Errors: %d, warnings: %d\n", result.ErrorCount, result.WarningCount)

		if validateFlags.report != "" {
			if err := validation.WriteErrorLog(result.Errors, validateFlags.report); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", validateFlags.report)
		}

		if validateFlags.strict && (result.ErrorCount > 0 || result.WarningCount > 0) {
			return fmt.Errorf("validation found %d error(s) and %d warning(s)", result.ErrorCount, result.WarningCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.report, "report", "", "Write the diagnostics to this file")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "Exit non-zero if any diagnostic is found")
}
