// =============================================================================
// PLC Text Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'generate', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (plcgen)
//   ├── generateCmd (plcgen generate)
//   ├── validateCmd (plcgen validate)
//   └── versionCmd (plcgen version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Building the zap logger before any subcommand runs
//   3. Flushing the logger afterwards
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// logger is built in PersistentPreRunE and shared by all subcommands.
var logger = zap.NewNop()

// logLevel is the level of logger. The log_level of the configuration is
// applied to it once the configuration is loaded, unless --verbose is set.
var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "plcgen",
	Short: "PLC Text Generator - Render PLC and HMI source text from tag lists",
	Long: `PLC Text Generator renders PLC source files, HMI tag imports and similar
line-oriented artifacts from a template and a set of tabular datasets.

Key Features:
  - Templates as XLSX workbooks or YAML documents
  - Declarative per-type schemas for datasets (fields, formats, subtypes, joins)
  - Packed-word reassembly of single-bit tag rows
  - Rule predicates per template line
  - Timestamped backups of overwritten files

Example Usage:
  plcgen generate                    # Render every sheet of the template
  plcgen generate --sheet OB35       # Render one sheet
  plcgen generate --watch            # Rerun on template or data changes
  plcgen validate --config ./my.yaml # Report template and data problems`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}
		zapConfig.Level = logLevel

		built, err := zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = built
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the main configuration and applies its log level.
func loadConfig() (*config.MainConfig, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if !verbose {
		level, err := zapcore.ParseLevel(mainConfig.LogLevel)
		if err != nil {
			logger.Warn("unknown log_level, keeping info", zap.String("log_level", mainConfig.LogLevel))
		} else {
			logLevel.SetLevel(level)
		}
	}

	logger.Debug("configuration loaded", zap.String("config", cfgFile))
	return mainConfig, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	// --config flag: Allows the user to specify a custom configuration file.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
