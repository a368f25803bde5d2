package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func newTestManager(t *testing.T, encoding, lineEnding string) *FileManager {
	dir := t.TempDir()
	fm := NewFileManager(filepath.Join(dir, "out"), filepath.Join(dir, "backup"), encoding, lineEnding)
	fm.Now = fixedClock
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func TestWriteSheetBacksUpExistingFile(t *testing.T) {
	fm := newTestManager(t, "UTF-8", "lf")

	first, err := fm.WriteSheet("OB35.awl", "A I0.0\n")
	require.NoError(t, err)
	assert.Empty(t, first.BackupPath)
	assert.Equal(t, 7, first.Bytes)

	second, err := fm.WriteSheet("OB35.awl", "A I0.1\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.BackupDir, "20260314_092653", "OB35.awl"), second.BackupPath)

	backup, err := os.ReadFile(second.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "A I0.0\n", string(backup))

	current, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, "A I0.1\n", string(current))
}

func TestWriteSheetLineEndingsAndEncoding(t *testing.T) {
	fm := newTestManager(t, "Windows-1252", "crlf")

	written, err := fm.WriteSheet("alarms.txt", "Café\nTür\r\n")
	require.NoError(t, err)

	data, err := os.ReadFile(written.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte{'C', 'a', 'f', 0xE9, '\r', '\n', 'T', 0xFC, 'r', '\r', '\n'}, data)
}

func TestWriteSheetUTF16(t *testing.T) {
	fm := newTestManager(t, "UTF-16LE", "lf")

	written, err := fm.WriteSheet("a.txt", "A\n")
	require.NoError(t, err)

	data, err := os.ReadFile(written.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFE, 'A', 0, '\n', 0}, data)
}

func TestWriteSheetUnknownEncoding(t *testing.T) {
	fm := newTestManager(t, "EBCDIC", "lf")
	_, err := fm.WriteSheet("a.txt", "A\n")
	assert.Error(t, err)
	assert.False(t, FileExists(fm.OutputPath("a.txt")))
}

func TestOutputPathStaysInOutputDir(t *testing.T) {
	fm := NewFileManager("/out", "/backup", "", "")
	assert.Equal(t, filepath.Join("/out", "x.txt"), fm.OutputPath("../../x.txt"))
	assert.Equal(t, filepath.Join("/out", "x.txt"), fm.OutputPath("sub/x.txt"))
}

func TestWriteSummaryLog(t *testing.T) {
	fm := newTestManager(t, "UTF-8", "lf")
	start := fixedClock()

	path, err := fm.WriteSummaryLog(RunSummary{
		RunID:     "0f8fad5b-d9cb-469f-a165-70867728950e",
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
		Sheets: []SheetSummary{
			{Name: "OB35", OutputFile: "/out/OB35.awl", Lines: 12, Unresolved: 1},
			{Name: "_Scratch", Skipped: true},
			{Name: "FC10", Error: "disk full"},
		},
		Diagnostics: []string{"[WARNING] sheet OB35, line 3: unresolved"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.LogDir, "generation_summary_20260314_092653_0f8fad5b.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Run ID:         0f8fad5b-d9cb-469f-a165-70867728950e")
	assert.Contains(t, text, "Duration:       1.5s")
	assert.Contains(t, text, "Sheets Rendered:    1")
	assert.Contains(t, text, "Sheets Skipped:     1")
	assert.Contains(t, text, "Sheets Failed:      1")
	assert.Contains(t, text, "Lines Rendered:     12")
	assert.Contains(t, text, "Error:        disk full")
	assert.Contains(t, text, "1. [WARNING] sheet OB35, line 3: unresolved")
	assert.True(t, strings.HasSuffix(text, "End of Summary\n"))
}

func TestDecodingReader(t *testing.T) {
	r, err := NewDecodingReader(strings.NewReader("Caf\xe9"), "Windows-1252")
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Café", string(out))

	r, err = NewDecodingReader(strings.NewReader("\xef\xbb\xbfTag"), "Windows-1252")
	require.NoError(t, err)
	out, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Tag", string(out))

	_, err = NewDecodingReader(strings.NewReader(""), "klingon")
	assert.Error(t, err)
}
