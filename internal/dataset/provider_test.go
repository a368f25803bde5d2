package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
	"github.com/ginjaninja78/plc-text-generator/internal/errs"
	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

var csvSettings = config.CSVSettings{Delimiter: ",", Encoding: "UTF-8", HeaderRows: 1}

func alarmsTable() *Table {
	return &Table{
		Name:    "Alarms",
		Headers: []string{"Index", "Tag", "StatIndex", "HiLimit"},
		Rows: []map[string]string{
			{"Index": "1", "Tag": "TT_101", "StatIndex": "7", "HiLimit": "120.5"},
			{"Index": "2", "Tag": "TT_102", "StatIndex": "", "HiLimit": "12,5"},
			{"Index": "x", "Tag": "TT_103", "StatIndex": "n/a", "HiLimit": ""},
		},
	}
}

func TestProviderTypedRows(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewProvider([]*Table{alarmsTable()}, zap.New(core))
	p.Declare("Alarms", "Index", map[string]types.ValueKind{
		"Index":     types.KindInt,
		"StatIndex": types.KindNullInt,
		"HiLimit":   types.KindFloat,
	})

	rows, ok := p.Rows("Alarms")
	require.True(t, ok)
	require.Len(t, rows, 3)

	assert.Equal(t, types.IntValue(1), rows[0].Get("Index"))
	assert.Equal(t, types.NullInt(7, true), rows[0].Get("StatIndex"))
	assert.Equal(t, types.FloatValue(120.5), rows[0].Get("HiLimit"))
	assert.Equal(t, types.StringValue("TT_101"), rows[0].Get("Tag"))

	assert.False(t, rows[1].Get("StatIndex").Valid)
	assert.Equal(t, types.FloatValue(12.5), rows[1].Get("HiLimit"))

	assert.False(t, rows[2].Get("Index").Valid)
	assert.False(t, rows[2].Get("StatIndex").Valid)
	assert.Equal(t, "TT_103", rows[2].Text("Tag"))

	assert.Equal(t, 2, logs.FilterMessage("value does not match declared kind, using null").Len())
}

func TestProviderLookup(t *testing.T) {
	status := &Table{
		Name:    "Status",
		Headers: []string{"Nr", "Tag"},
		Rows: []map[string]string{
			{"Nr": "7", "Tag": "ST_007"},
			{"Nr": "8.0", "Tag": "ST_008"},
			{"Nr": "7", "Tag": "duplicate"},
		},
	}
	p := NewProvider([]*Table{alarmsTable(), status}, nil)
	p.Declare("Status", "Nr", nil)

	rec, ok := p.Lookup("Status", 7)
	require.True(t, ok)
	assert.Equal(t, "ST_007", rec.Text("Tag"))

	rec, ok = p.Lookup("Status", 8)
	require.True(t, ok)
	assert.Equal(t, "ST_008", rec.Text("Tag"))

	_, ok = p.Lookup("Status", 9)
	assert.False(t, ok)

	rec, ok = p.Lookup("Alarms", 2)
	require.True(t, ok)
	assert.Equal(t, "TT_102", rec.Text("Tag"))

	_, ok = p.Lookup("Nope", 1)
	assert.False(t, ok)
}

func TestProviderMissingAndCaseInsensitive(t *testing.T) {
	p := NewProvider([]*Table{alarmsTable()}, nil)

	_, ok := p.Rows("FOO")
	assert.False(t, ok)

	rows, ok := p.Rows("alarms")
	assert.True(t, ok)
	assert.Len(t, rows, 3)
	assert.Equal(t, []string{"Alarms"}, p.Names())

	table, ok := p.Table("ALARMS")
	require.True(t, ok)
	assert.True(t, table.HasField("HiLimit"))
	assert.False(t, table.HasField("LoLimit"))
}

func TestDeclareKeepsFirstKind(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewProvider([]*Table{alarmsTable()}, zap.New(core))
	p.Declare("Alarms", "", map[string]types.ValueKind{"Index": types.KindInt})
	p.Declare("Alarms", "", map[string]types.ValueKind{"Index": types.KindString, "Tag": types.KindString})

	rows, _ := p.Rows("Alarms")
	assert.Equal(t, types.KindInt, rows[0].Get("Index").Kind)
	assert.Equal(t, 1, logs.FilterMessage("conflicting field kinds, keeping the first").Len())
}

func TestConvertValue(t *testing.T) {
	v, ok := ConvertValue(" 12 ", types.KindInt)
	assert.True(t, ok)
	assert.Equal(t, types.IntValue(12), v)

	v, ok = ConvertValue("1e3", types.KindNullInt)
	assert.True(t, ok)
	assert.Equal(t, types.NullInt(1000, true), v)

	v, ok = ConvertValue("1.5", types.KindInt)
	assert.False(t, ok)
	assert.False(t, v.Valid)

	v, ok = ConvertValue("", types.KindFloat)
	assert.True(t, ok)
	assert.False(t, v.Valid)

	v, ok = ConvertValue(" raw ", types.KindString)
	assert.True(t, ok)
	assert.Equal(t, " raw ", v.Str)
}

func TestLoadCSVFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alarms.csv"), []byte("Index,Tag\n1,TT_101\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Words.CSV"), []byte("Address,BitAddr\nMW0,Bit00\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	p, err := Load(dir, csvSettings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alarms", "Words"}, p.Names())

	rows, ok := p.Rows("Words")
	require.True(t, ok)
	assert.Equal(t, "Bit00", rows[0].Text("BitAddr"))
}

func TestLoadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Alarms"))
	require.NoError(t, f.SetSheetRow("Alarms", "A1", &[]interface{}{"Index", "Tag"}))
	require.NoError(t, f.SetSheetRow("Alarms", "A2", &[]interface{}{1, "TT_101"}))
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	p, err := Load(path, csvSettings, nil)
	require.NoError(t, err)
	p.Declare("Alarms", "Index", map[string]types.ValueKind{"Index": types.KindInt})

	rec, ok := p.Lookup("Alarms", 1)
	require.True(t, ok)
	assert.Equal(t, "TT_101", rec.Text("Tag"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"), csvSettings, nil)
	assert.True(t, errors.Is(err, errs.ErrDataNotFound))
	assert.True(t, errs.IsFatal(err))

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	_, err = Load(path, csvSettings, nil)
	assert.Error(t, err)
	assert.True(t, errs.IsFatal(err))
}
