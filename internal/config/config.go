// =============================================================================
// PLC Text Generator - Configuration Module
// =============================================================================
//
// This module is responsible for loading the main configuration file. Besides
// the folder settings it carries the declarative schema table: one entry per
// record schema, which the render package turns into one generic adapter.
//
// CONFIGURATION FILE (config.yaml):
//   template_path : Template workbook (.xlsx) or YAML template
//   data_path     : Dataset workbook (.xlsx) or folder of <dataset>.csv files
//   output_dir    : Where one text file per sheet is written
//   schemas       : Adapter table, rendered in declaration order
//
// Relative paths are resolved against the directory of the config file.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// DefaultSeparator joins the Items of a line when separator is not set.
const DefaultSeparator = " "

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// TemplatePath is the template source. Missing is fatal.
	TemplatePath string `yaml:"template_path"`

	// DataPath is the dataset workbook or CSV folder. Missing is fatal.
	DataPath string `yaml:"data_path"`

	// CSV contains settings used when DataPath is a folder.
	CSV CSVSettings `yaml:"csv"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir receives one file per rendered sheet.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// BackupDir receives timestamped copies of files about to be overwritten.
	// Default: "<output_dir>/backup"
	BackupDir string `yaml:"backup_dir"`

	// OutputExtension is appended to sheet names without a FILE directive.
	// Default: ".txt"
	OutputExtension string `yaml:"output_extension"`

	// Encoding of the output files.
	// Valid values: "UTF-8", "UTF-8-BOM", "Windows-1252", "ISO-8859-1", "UTF-16LE"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// LineEnding is "lf" or "crlf".
	// Default: "lf"
	LineEnding string `yaml:"line_ending"`

	// =========================================================================
	// RENDER SETTINGS
	// =========================================================================

	// Separator joins the Items of a line before substitution. An explicit
	// "" joins the Items without separator.
	// Default: " "
	Separator string `yaml:"separator"`

	// SampleMode caps every adapter to SampleLimit records.
	SampleMode bool `yaml:"sample_mode"`

	// SampleLimit is the record cap used in sample mode.
	// Default: 10
	SampleLimit int `yaml:"sample_limit"`

	// Globals are constant placeholders available to header and footer lines.
	Globals map[string]string `yaml:"globals"`

	// PostProcess lists per-sheet text transformations.
	PostProcess []PostProcessRule `yaml:"post_process"`

	// Schemas is the adapter table. Order is the adapter registration order.
	Schemas []SchemaConfig `yaml:"schemas"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// baseDir is the directory of the loaded config file.
	baseDir string
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV dataset files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the CSV files.
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// HeaderRows is the number of header rows; multi-row headers are merged.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`
}

// =============================================================================
// POST-PROCESSING STRUCTURE
// =============================================================================

// PostProcessRule applies Actions to every sheet whose name matches Sheet.
type PostProcessRule struct {
	// Sheet is a glob pattern on the sheet name. Empty matches every sheet.
	Sheet string `yaml:"sheet"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "truncate_comments"   : Cut comment text after Find (default "//") to Value runes
	//   - "trim_trailing_space" : Remove trailing blanks of every line
	//   - "uppercase"           : Convert to uppercase
	//   - "replace"             : Replace Find with Value
	//   - "regex_replace"       : Replace the Find pattern with Value
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is the marker, substring or pattern, depending on Type.
	Find string `yaml:"find,omitempty"`
}

// =============================================================================
// SCHEMA TABLE STRUCTURES
// =============================================================================

// SchemaConfig declares one record schema and how its fields are exposed.
type SchemaConfig struct {
	// Type is the schema key matched against TemplateLine.Type.
	Type string `yaml:"type"`

	// Dataset is the worksheet or CSV file name holding the rows.
	// Default: Type
	Dataset string `yaml:"dataset"`

	// IndexField names the field used by cross-dataset lookups and in logs.
	// Default: "Index"
	IndexField string `yaml:"index_field"`

	// Fields are the placeholders of this schema.
	Fields []FieldConfig `yaml:"fields"`

	// Subtype selects the classifier strategy.
	Subtype SubtypeConfig `yaml:"subtype"`

	// Joins expose fields of other datasets resolved by index.
	Joins []JoinConfig `yaml:"joins"`

	// Words enables packed-word unpacking for this schema.
	Words *WordsConfig `yaml:"words,omitempty"`
}

// FieldConfig declares one field and the formats it may be rendered with.
type FieldConfig struct {
	// Name is the dataset column and placeholder name.
	Name string `yaml:"name"`

	// Kind is "string", "int", "nullint" or "float".
	Kind string `yaml:"kind"`

	// Formats lists the placeholder variants. "" registers {Name};
	// "000" registers {Name:000} (zero padded to 3), "e" scientific, "g" general.
	// Default: [""]
	Formats []string `yaml:"formats"`
}

// SubtypeConfig selects how a record's subtype is derived.
type SubtypeConfig struct {
	// Kind is "blank", "fixed", "composed" or "conditional".
	// Default: "blank"
	Kind string `yaml:"kind"`

	// Field is used by "fixed" and "conditional".
	Field string `yaml:"field,omitempty"`

	// Fields are used by "composed".
	Fields []string `yaml:"fields,omitempty"`

	// Literal is returned by "conditional" when Field is not blank.
	Literal string `yaml:"literal,omitempty"`
}

// JoinConfig resolves Field against another dataset's index and exposes
// the looked-up record's Take field as placeholder As.
type JoinConfig struct {
	Field   string `yaml:"field"`
	Dataset string `yaml:"dataset"`
	Take    string `yaml:"take"`
	As      string `yaml:"as"`
}

// WordsConfig configures the packed-word unpacker.
type WordsConfig struct {
	KindField        string `yaml:"kind_field"`
	AddressField     string `yaml:"address_field"`
	BitField         string `yaml:"bit_field"`
	TagField         string `yaml:"tag_field"`
	DescriptionField string `yaml:"description_field"`
	Int16Kind        string `yaml:"int16_kind"`
	Int32Kind        string `yaml:"int32_kind"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - A Fatal classified error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errs.Fatalf(errs.ErrConfigNotFound, "failed to read config file: %v", err)
	}

	config, err := Parse(data, filepath.Dir(configPath))
	if err != nil {
		return nil, err
	}

	if err := validatePaths(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Parse unmarshals and validates a configuration without touching the
// filesystem. Relative paths are resolved against baseDir.
func Parse(data []byte, baseDir string) (*MainConfig, error) {
	// Preset before unmarshaling so that an explicit empty separator survives.
	config := MainConfig{Separator: DefaultSeparator}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errs.Fatalf(errs.ErrInvalidConfig, "failed to parse config file: %v", err)
	}
	config.baseDir = baseDir

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, errs.Fatalf(errs.ErrInvalidConfig, "%v", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.BackupDir == "" {
		config.BackupDir = filepath.Join(config.OutputDir, "backup")
	}
	config.TemplatePath = config.resolve(config.TemplatePath)
	config.DataPath = config.resolve(config.DataPath)
	config.OutputDir = config.resolve(config.OutputDir)
	config.BackupDir = config.resolve(config.BackupDir)

	if config.OutputExtension == "" {
		config.OutputExtension = ".txt"
	}
	if !strings.HasPrefix(config.OutputExtension, ".") {
		config.OutputExtension = "." + config.OutputExtension
	}
	if config.Encoding == "" {
		config.Encoding = "UTF-8"
	}
	if config.LineEnding == "" {
		config.LineEnding = "lf"
	}
	if config.SampleLimit <= 0 {
		config.SampleLimit = 10
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// CSV settings defaults.
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.Encoding == "" {
		config.CSV.Encoding = "UTF-8"
	}
	if config.CSV.HeaderRows == 0 {
		config.CSV.HeaderRows = 1
	}

	for i := range config.Schemas {
		applySchemaDefaults(&config.Schemas[i])
	}
}

// applySchemaDefaults sets default values for one schema entry.
func applySchemaDefaults(schema *SchemaConfig) {
	if schema.Dataset == "" {
		schema.Dataset = schema.Type
	}
	if schema.IndexField == "" {
		schema.IndexField = "Index"
	}
	if schema.Subtype.Kind == "" {
		schema.Subtype.Kind = "blank"
	}
	for i := range schema.Fields {
		if len(schema.Fields[i].Formats) == 0 {
			schema.Fields[i].Formats = []string{""}
		}
	}
	if w := schema.Words; w != nil {
		if w.KindField == "" {
			w.KindField = "DataType"
		}
		if w.AddressField == "" {
			w.AddressField = "Address"
		}
		if w.BitField == "" {
			w.BitField = "BitAddr"
		}
		if w.TagField == "" {
			w.TagField = "Tag"
		}
		if w.DescriptionField == "" {
			w.DescriptionField = "Description"
		}
		if w.Int16Kind == "" {
			w.Int16Kind = "INT_B"
		}
		if w.Int32Kind == "" {
			w.Int32Kind = "DINT_B"
		}
	}
}

// formatPattern matches the supported format directives: "", "0".."000...", "e", "g".
var formatPattern = regexp.MustCompile(`^(0+|e|E|g|G|)$`)

// validateMainConfig checks the configuration for structural errors.
func validateMainConfig(config *MainConfig) error {
	if config.TemplatePath == "" {
		return fmt.Errorf("template_path is required")
	}
	if config.DataPath == "" {
		return fmt.Errorf("data_path is required")
	}

	switch strings.ToLower(config.LineEnding) {
	case "lf", "crlf":
	default:
		return fmt.Errorf("line_ending must be lf or crlf, got %q", config.LineEnding)
	}

	seen := make(map[string]bool)
	for i, schema := range config.Schemas {
		if schema.Type == "" {
			return fmt.Errorf("schemas[%d]: type is required", i)
		}
		if seen[schema.Type] {
			return fmt.Errorf("schemas[%d]: duplicate type %q", i, schema.Type)
		}
		seen[schema.Type] = true

		for _, field := range schema.Fields {
			if field.Name == "" {
				return fmt.Errorf("schema %s: field without name", schema.Type)
			}
			if _, ok := types.ParseValueKind(field.Kind); !ok {
				return fmt.Errorf("schema %s: field %s: unknown kind %q", schema.Type, field.Name, field.Kind)
			}
			for _, format := range field.Formats {
				if !formatPattern.MatchString(format) {
					return fmt.Errorf("schema %s: field %s: unsupported format %q", schema.Type, field.Name, format)
				}
			}
		}

		switch strings.ToLower(schema.Subtype.Kind) {
		case "blank":
		case "fixed", "conditional":
			if schema.Subtype.Field == "" {
				return fmt.Errorf("schema %s: subtype %s needs a field", schema.Type, schema.Subtype.Kind)
			}
		case "composed":
			if len(schema.Subtype.Fields) < 2 {
				return fmt.Errorf("schema %s: composed subtype needs at least two fields", schema.Type)
			}
		default:
			return fmt.Errorf("schema %s: unknown subtype kind %q", schema.Type, schema.Subtype.Kind)
		}

		for _, join := range schema.Joins {
			if join.Field == "" || join.Dataset == "" || join.Take == "" || join.As == "" {
				return fmt.Errorf("schema %s: join needs field, dataset, take and as", schema.Type)
			}
		}
	}

	return nil
}

// validatePaths checks that the template and data sources exist and creates
// the output folders.
func validatePaths(config *MainConfig) error {
	if _, err := os.Stat(config.TemplatePath); err != nil {
		return errs.Fatalf(errs.ErrTemplateNotFound, "%s", config.TemplatePath)
	}
	if _, err := os.Stat(config.DataPath); err != nil {
		return errs.Fatalf(errs.ErrDataNotFound, "%s", config.DataPath)
	}

	for _, dir := range []string{config.OutputDir, config.BackupDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.Fatalf(errs.ErrInvalidConfig, "failed to create directory %s: %v", dir, err)
		}
	}

	return nil
}

// resolve makes path absolute relative to the config file directory.
func (c *MainConfig) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// Schema returns the schema entry for a type key.
func (c *MainConfig) Schema(typeKey string) (*SchemaConfig, bool) {
	for i := range c.Schemas {
		if c.Schemas[i].Type == typeKey {
			return &c.Schemas[i], true
		}
	}
	return nil, false
}
