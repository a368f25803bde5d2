// =============================================================================
// PLC Text Generator - File Manager Utility
// =============================================================================
//
// This module is the output sink of a generation run:
//   - Sheet files are written to the output directory
//   - An existing file is copied to a timestamped backup folder first
//   - Text is encoded and line endings are converted on the way out
//   - A summary log is written per run
//
// BACKUP STRATEGY:
//   - All backups of one run share backup_dir/<YYYYMMDD_HHMMSS>/
//   - Backups are copies; the new file then replaces the original
//   - A failed backup leaves the original untouched and skips the write
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a generation run.
type FileManager struct {
	// OutputDir is the directory where sheet files are placed.
	OutputDir string

	// BackupDir receives copies of files about to be overwritten.
	BackupDir string

	// LogDir receives the run summaries.
	// Default: <OutputDir>/logs
	LogDir string

	// Encoding of the written sheet files, see LookupEncoding.
	Encoding string

	// LineEnding is "lf" or "crlf".
	LineEnding string

	// Now returns the current time. Tests replace it.
	Now func() time.Time

	backupStamp string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, backupDir, encoding, lineEnding string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		BackupDir:  backupDir,
		LogDir:     filepath.Join(outputDir, "logs"),
		Encoding:   encoding,
		LineEnding: lineEnding,
		Now:        time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.BackupDir, fm.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputPath returns the path a sheet file is written to. Directory parts of
// fileName are dropped so that no sheet writes outside OutputDir.
func (fm *FileManager) OutputPath(fileName string) string {
	return filepath.Join(fm.OutputDir, filepath.Base(filepath.Clean("/"+fileName)))
}

// =============================================================================
// SHEET OUTPUT
// =============================================================================

// WrittenFile describes one written sheet file.
type WrittenFile struct {
	// Path is the written file.
	Path string

	// BackupPath is the copy of the replaced file, empty if none existed.
	BackupPath string

	// Bytes is the encoded size.
	Bytes int
}

// WriteSheet encodes text and writes it to OutputDir/fileName, backing up an
// existing file first.
//
// PARAMETERS:
//   - fileName: The output file name of the sheet.
//   - text: The rendered sheet, lines terminated by "\n".
//
// RETURNS:
//   - The written file.
//   - An error if encoding, backup or writing fails.
func (fm *FileManager) WriteSheet(fileName, text string) (WrittenFile, error) {
	path := fm.OutputPath(fileName)
	written := WrittenFile{Path: path}

	data, err := EncodeText(fm.applyLineEnding(text), fm.Encoding)
	if err != nil {
		return written, err
	}

	if FileExists(path) {
		backup, err := fm.backupFile(path)
		if err != nil {
			return written, err
		}
		written.BackupPath = backup
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return written, fmt.Errorf("failed to write %s: %w", path, err)
	}
	written.Bytes = len(data)

	return written, nil
}

// applyLineEnding converts "\n" line ends to the configured style.
func (fm *FileManager) applyLineEnding(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.EqualFold(fm.LineEnding, "crlf") {
		return strings.ReplaceAll(text, "\n", "\r\n")
	}
	return text
}

// backupFile copies path into the run's backup folder.
func (fm *FileManager) backupFile(path string) (string, error) {
	if fm.backupStamp == "" {
		fm.backupStamp = fm.now().Format("20060102_150405")
	}

	dir := filepath.Join(fm.BackupDir, fm.backupStamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	backupPath := filepath.Join(dir, filepath.Base(path))
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return backupPath, nil
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a generation run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	Sheets    []SheetSummary

	// Diagnostics are preformatted validation messages.
	Diagnostics []string
}

// SheetSummary contains information about one sheet of a run.
type SheetSummary struct {
	Name       string
	OutputFile string
	BackupFile string
	Lines      int
	Unresolved int
	Skipped    bool
	Error      string
}

// WriteSummaryLog writes a run summary to LogDir.
//
// PARAMETERS:
//   - summary: The run summary.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary RunSummary) (string, error) {
	if err := os.MkdirAll(fm.LogDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := summary.StartTime.Format("20060102_150405")
	short := summary.RunID
	if len(short) > 8 {
		short = short[:8]
	}
	summaryPath := filepath.Join(fm.LogDir, fmt.Sprintf("generation_summary_%s_%s.txt", timestamp, short))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	written, skipped, lines, unresolved, failed := 0, 0, 0, 0, 0
	for _, s := range summary.Sheets {
		switch {
		case s.Skipped:
			skipped++
		case s.Error != "":
			failed++
		default:
			written++
			lines += s.Lines
			unresolved += s.Unresolved
		}
	}

	fmt.Fprintf(writer, "PLC Text Generator - Generation Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Dry Run:        %t\n\n"+
		"Statistics:\n"+
		"  Sheets Rendered:    %d\n"+
		"  Sheets Skipped:     %d\n"+
		"  Sheets Failed:      %d\n"+
		"  Lines Rendered:     %d\n"+
		"  Unresolved Lines:   %d\n"+
		"  Diagnostics:        %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.DryRun,
		written, skipped, failed, lines, unresolved,
		len(summary.Diagnostics))

	if len(summary.Sheets) > 0 {
		writer.WriteString("Sheets:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, s := range summary.Sheets {
			fmt.Fprintf(writer, "  Sheet:        %s\n", s.Name)
			switch {
			case s.Skipped:
				writer.WriteString("  Status:       skipped\n\n")
				continue
			case s.Error != "":
				fmt.Fprintf(writer, "  Error:        %s\n\n", s.Error)
				continue
			}
			if s.OutputFile != "" {
				fmt.Fprintf(writer, "  Output:       %s\n", s.OutputFile)
			}
			if s.BackupFile != "" {
				fmt.Fprintf(writer, "  Backup:       %s\n", s.BackupFile)
			}
			fmt.Fprintf(writer, "  Lines:        %d\n", s.Lines)
			fmt.Fprintf(writer, "  Unresolved:   %d\n\n", s.Unresolved)
		}
	}

	if len(summary.Diagnostics) > 0 {
		writer.WriteString("Diagnostics:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for i, d := range summary.Diagnostics {
			fmt.Fprintf(writer, "  %d. %s\n", i+1, d)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a regular file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
