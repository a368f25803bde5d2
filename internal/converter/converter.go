// =============================================================================
// PLC Text Generator - Converter Module
// =============================================================================
//
// This module contains one generation run. It orchestrates the pipeline from
// configuration to written sheet files.
//
// GENERATION PIPELINE:
//   1. Load the template (workbook or YAML)
//   2. Load the datasets and declare the schema field kinds
//   3. Build one adapter per schema and the group renderer
//   4. Validate template and datasets
//   5. Render every selected sheet
//   6. Post-process the rendered text
//   7. Write the sheet files (with backups)
//   8. Write the run summary
//
// ERROR HANDLING:
//   Steps 1 to 3 fail the run with a Fatal error. Everything after is
//   isolated: a failing adapter drops its own output, a sheet that cannot be
//   written is reported and the remaining sheets are still written.
//
// =============================================================================

package converter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
	"github.com/ginjaninja78/plc-text-generator/internal/dataset"
	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/render"
	"github.com/ginjaninja78/plc-text-generator/internal/rulegate"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
	"github.com/ginjaninja78/plc-text-generator/internal/validation"
	"github.com/ginjaninja78/plc-text-generator/internal/xlsxparser"
	"github.com/ginjaninja78/plc-text-generator/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and the summary file.
	RunID string

	// Sheets holds one entry per template sheet, in template order.
	Sheets []SheetResult

	// Diagnostics are the template, dataset and output findings.
	Diagnostics []*validation.ValidationError

	// SummaryFile is the written run summary. Empty on dry runs.
	SummaryFile string

	// Success indicates whether every selected sheet was rendered and written.
	Success bool

	// Error contains the error that stopped the run or the first sheet
	// failure. Use errs.IsFatal to tell them apart.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// SheetResult is the outcome of one sheet.
type SheetResult struct {
	Name string

	// OutputFile is the written file, or the file a dry run would write.
	OutputFile string

	// BackupFile is the copy of the replaced file, if there was one.
	BackupFile string

	// Text is the rendered and post-processed sheet.
	Text string

	// Lines is the number of rendered lines.
	Lines int

	// Unresolved is the number of lines still containing '{'.
	Unresolved int

	// Skipped is set for ignored sheets and sheets outside the --sheet filter.
	Skipped bool

	// Error is set if the sheet could not be written.
	Error error
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	SheetsRendered  int
	SheetsSkipped   int
	LinesRendered   int
	UnresolvedLines int
	ProcessingTime  time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options selects what a run does.
type Options struct {
	// DryRun renders and validates without writing files.
	DryRun bool

	// Sheet restricts the run to one sheet (case-insensitive). Empty renders all.
	Sheet string

	// SampleMode caps every adapter to sample_limit records, on top of the
	// sample_mode setting of the configuration.
	SampleMode bool
}

// Converter runs generations for one configuration.
type Converter struct {
	config  *config.MainConfig
	options Options
	logger  *zap.Logger
}

// session is everything loaded for one run.
type session struct {
	template    *types.Template
	provider    *dataset.Provider
	renderer    *render.Renderer
	validator   *validation.Validator
	transformer *Transformer
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - mainConfig: The loaded main configuration.
//   - logger: The run logger; nil discards logs.
//   - options: What the run does.
//
// RETURNS:
//   - A new Converter instance.
func New(mainConfig *config.MainConfig, logger *zap.Logger, options Options) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		config:  mainConfig,
		options: options,
		logger:  logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the generation pipeline.
//
// RETURNS:
//   - A Result struct containing the outcome of the run.
func (c *Converter) Run() Result {
	startTime := time.Now()
	result := Result{RunID: uuid.New().String()}
	logger := c.logger.With(zap.String("run_id", result.RunID))

	logger.Info("generation started",
		zap.String("template", c.config.TemplatePath),
		zap.String("data", c.config.DataPath),
		zap.Bool("dry_run", c.options.DryRun),
		zap.Bool("sample", c.sampleMode()))

	// =========================================================================
	// STEPS 1-4: LOAD, BUILD AND VALIDATE
	// =========================================================================

	s, err := c.prepare(logger)
	if err != nil {
		result.Error = err
		return result
	}

	report := s.validator.ValidateAll(s.template)
	result.Diagnostics = append(result.Diagnostics, report.Errors...)
	logDiagnostics(logger, report.Errors)

	sink := utils.NewFileManager(c.config.OutputDir, c.config.BackupDir, c.config.Encoding, c.config.LineEnding)
	if !c.options.DryRun {
		if err := sink.EnsureDirectories(); err != nil {
			result.Error = errs.Wrap(errs.Fatal, "converter", "prepare output", err)
			return result
		}
	}

	// =========================================================================
	// STEPS 5-7: RENDER, POST-PROCESS AND WRITE EACH SHEET
	// =========================================================================

	matched := false
	for _, sheet := range s.template.Sheets {
		sr := SheetResult{Name: sheet.Name}
		sheetLogger := logger.With(zap.String("sheet", sheet.Name))

		if sheet.IgnoreSheet || !c.selected(sheet) {
			sr.Skipped = true
			result.Stats.SheetsSkipped++
			result.Sheets = append(result.Sheets, sr)
			sheetLogger.Debug("sheet skipped", zap.Bool("ignored", sheet.IgnoreSheet))
			continue
		}
		matched = true

		text := s.transformer.Transform(sheet.Name, s.renderer.RenderSheet(sheet))
		unresolved := validation.UnresolvedPlaceholders(sheet.Name, text)
		if len(unresolved) > 0 {
			sheetLogger.Warn("unresolved placeholders in sheet",
				zap.Int("lines", len(unresolved)),
				zap.Error(errs.ErrUnresolvedPlaceholder))
			result.Diagnostics = append(result.Diagnostics, unresolved...)
		}

		sr.Text = text
		sr.Lines = strings.Count(text, "\n")
		sr.Unresolved = len(unresolved)
		sr.OutputFile = sink.OutputPath(c.fileName(sheet))

		if !c.options.DryRun {
			written, err := sink.WriteSheet(filepath.Base(sr.OutputFile), text)
			if err != nil {
				sr.Error = errs.Wrap(errs.SoftFail, "converter", "write sheet "+sheet.Name, err)
				sheetLogger.Error("failed to write sheet", zap.Error(err))
				if result.Error == nil {
					result.Error = sr.Error
				}
			} else {
				sr.BackupFile = written.BackupPath
				sheetLogger.Info("sheet written",
					zap.String("file", written.Path),
					zap.Int("lines", sr.Lines),
					zap.Int("bytes", written.Bytes))
			}
		}

		if sr.Error == nil {
			result.Stats.SheetsRendered++
			result.Stats.LinesRendered += sr.Lines
			result.Stats.UnresolvedLines += sr.Unresolved
		}
		result.Sheets = append(result.Sheets, sr)
	}

	if c.options.Sheet != "" && !matched {
		logger.Warn("sheet not found in template", zap.String("sheet", c.options.Sheet))
	}

	// =========================================================================
	// STEP 8: SUMMARY
	// =========================================================================

	result.Stats.ProcessingTime = time.Since(startTime)

	if !c.options.DryRun {
		path, err := sink.WriteSummaryLog(c.summary(result, startTime))
		if err != nil {
			logger.Warn("failed to write run summary", zap.Error(err))
		} else {
			result.SummaryFile = path
		}
	}

	result.Success = result.Error == nil
	logger.Info("generation finished",
		zap.Int("sheets", result.Stats.SheetsRendered),
		zap.Int("skipped", result.Stats.SheetsSkipped),
		zap.Int("lines", result.Stats.LinesRendered),
		zap.Int("unresolved", result.Stats.UnresolvedLines),
		zap.Int("diagnostics", len(result.Diagnostics)),
		zap.Duration("elapsed", result.Stats.ProcessingTime))

	return result
}

// Validate loads everything a run needs and reports the template and dataset
// diagnostics without rendering.
//
// RETURNS:
//   - The validation result.
//   - A Fatal error if the run could not be prepared.
func (c *Converter) Validate() (*validation.ValidationResult, error) {
	s, err := c.prepare(c.logger)
	if err != nil {
		return nil, err
	}
	return s.validator.ValidateAll(s.template), nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// prepare loads the template and datasets and builds the renderer.
func (c *Converter) prepare(logger *zap.Logger) (*session, error) {
	if _, err := utils.LookupEncoding(c.config.Encoding); err != nil {
		return nil, errs.Fatalf(errs.ErrInvalidConfig, "encoding: %v", err)
	}

	transformer, err := NewTransformer(c.config.PostProcess)
	if err != nil {
		return nil, errs.Fatalf(errs.ErrInvalidConfig, "%v", err)
	}

	tmpl, err := LoadTemplate(c.config.TemplatePath)
	if err != nil {
		return nil, err
	}
	logger.Debug("template loaded", zap.Int("sheets", len(tmpl.Sheets)))

	provider, err := dataset.Load(c.config.DataPath, c.config.CSV, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("datasets loaded", zap.Strings("datasets", provider.Names()))

	limit := 0
	if c.sampleMode() {
		limit = c.config.SampleLimit
	}

	gate := rulegate.New()
	adapters := make([]*render.Adapter, 0, len(c.config.Schemas))
	for _, sc := range c.config.Schemas {
		schema, err := render.SchemaFromConfig(sc)
		if err != nil {
			return nil, errs.Fatalf(errs.ErrInvalidConfig, "%v", err)
		}
		provider.Declare(schema.Dataset, schema.IndexField, schema.FieldKinds())
		adapters = append(adapters, render.NewAdapter(schema, provider, gate, render.AdapterOptions{
			SampleLimit: limit,
			Logger:      logger,
		}))
	}

	renderer := render.NewRenderer(adapters, render.RendererOptions{
		Separator: c.config.Separator,
		Globals:   c.config.Globals,
		Logger:    logger,
	})

	validator := validation.NewValidatorWithOptions(renderer, provider, validation.ValidationOptions{
		Globals: c.config.Globals,
	})

	return &session{
		template:    tmpl,
		provider:    provider,
		renderer:    renderer,
		validator:   validator,
		transformer: transformer,
	}, nil
}

// LoadTemplate reads a workbook or YAML template by extension.
//
// RETURNS:
//   - The template.
//   - A Fatal classified error if the template cannot be loaded.
func LoadTemplate(path string) (*types.Template, error) {
	var (
		tmpl *types.Template
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		tmpl, err = xlsxparser.ParseTemplate(path)
	case ".yaml", ".yml":
		tmpl, err = config.LoadTemplateYAML(path)
	default:
		return nil, errs.Fatalf(errs.ErrInvalidTemplate, "unsupported template type %s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.Fatal, "converter", "load template", err)
	}
	return tmpl, nil
}

// sampleMode reports whether adapters are capped.
func (c *Converter) sampleMode() bool {
	return c.config.SampleMode || c.options.SampleMode
}

// selected applies the --sheet filter.
func (c *Converter) selected(sheet *types.Sheet) bool {
	return c.options.Sheet == "" || strings.EqualFold(c.options.Sheet, sheet.Name)
}

// fileName returns the output file name of a sheet.
func (c *Converter) fileName(sheet *types.Sheet) string {
	if sheet.FileName != "" {
		return sheet.FileName
	}
	return sheet.Name + c.config.OutputExtension
}

// summary converts a result for the summary log.
func (c *Converter) summary(result Result, start time.Time) utils.RunSummary {
	summary := utils.RunSummary{
		RunID:     result.RunID,
		StartTime: start,
		EndTime:   start.Add(result.Stats.ProcessingTime),
		DryRun:    c.options.DryRun,
	}
	for _, sr := range result.Sheets {
		ss := utils.SheetSummary{
			Name:       sr.Name,
			OutputFile: sr.OutputFile,
			BackupFile: sr.BackupFile,
			Lines:      sr.Lines,
			Unresolved: sr.Unresolved,
			Skipped:    sr.Skipped,
		}
		if sr.Error != nil {
			ss.Error = sr.Error.Error()
		}
		summary.Sheets = append(summary.Sheets, ss)
	}
	for _, d := range result.Diagnostics {
		summary.Diagnostics = append(summary.Diagnostics, d.Error())
	}
	return summary
}

// logDiagnostics logs validation findings at warn level.
func logDiagnostics(logger *zap.Logger, diagnostics []*validation.ValidationError) {
	for _, d := range diagnostics {
		fields := []zap.Field{
			zap.String("rule", d.Rule),
			zap.String("severity", d.Severity),
		}
		if d.Sheet != "" {
			fields = append(fields, zap.String("sheet", d.Sheet))
		}
		if d.Type != "" {
			fields = append(fields, zap.String("type", d.Type))
		}
		if d.Line > 0 {
			fields = append(fields, zap.Int("line", d.Line))
		}
		if d.Value != "" {
			fields = append(fields, zap.String("value", d.Value))
		}
		logger.Warn(d.Message, fields...)
	}
}

// String renders a one-line outcome for the CLI.
func (r Result) String() string {
	if r.Error != nil && errs.IsFatal(r.Error) {
		return fmt.Sprintf("run %s failed: %v", r.RunID, r.Error)
	}
	return fmt.Sprintf("run %s: %d sheet(s), %d line(s), %d unresolved, %d diagnostic(s)",
		r.RunID, r.Stats.SheetsRendered, r.Stats.LinesRendered, r.Stats.UnresolvedLines, len(r.Diagnostics))
}
