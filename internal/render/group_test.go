package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// panicSource fails every dataset access.
type panicSource struct{}

func (panicSource) Rows(string) ([]types.Record, bool)         { panic("corrupt dataset") }
func (panicSource) Lookup(string, int64) (types.Record, bool) { panic("corrupt dataset") }

func timerSchema() Schema {
	return Schema{
		Type:       "TMR",
		Dataset:    "Timers",
		IndexField: "Index",
		Fields: []Field{
			{Name: "Index", Kind: types.KindInt, Formats: []Format{{Kind: Verbatim}}},
			{Name: "Tag", Kind: types.KindString, Formats: []Format{{Kind: Verbatim}}},
		},
	}
}

func newTestRenderer(opts RendererOptions) *Renderer {
	source := memSource{
		"Alarms": {alarm(1, "A"), alarm(2, "B")},
		"Timers": {alarm(10, "T1")},
	}
	return NewRenderer([]*Adapter{
		NewAdapter(alarmSchema(), source, nil, AdapterOptions{}),
		NewAdapter(timerSchema(), source, nil, AdapterOptions{}),
	}, opts)
}

func TestRenderGroupInputOrder(t *testing.T) {
	r := newTestRenderer(RendererOptions{Separator: " ", Globals: map[string]string{"Project": "P1"}})

	g := &types.Group{
		GroupBy: types.GroupByInput,
		Headers: []types.Line{{Items: []string{"// {Project}", "{Unknown}"}}},
		Data: []types.TemplateLine{
			line("TMR", "TMR {Tag}"),
			line("ALM_GEN", "ALM {Tag}"),
		},
		Groups: []*types.Group{{
			GroupBy: types.GroupBySingleton,
			Data:    []types.TemplateLine{line("ALM_GEN", "FIRST {Tag}")},
			Footers: []types.Line{{Items: []string{"END_CHILD"}}},
		}},
		Footers: []types.Line{{Items: []string{"END"}}},
	}

	want := "// P1 {Unknown}\n" +
		"ALM A\n" +
		"ALM B\n" +
		"TMR T1\n" +
		"FIRST A\n" +
		"END_CHILD\n" +
		"END\n"
	assert.Equal(t, want, r.RenderGroup(g))
}

func TestRenderGroupOutputAndSingleton(t *testing.T) {
	r := newTestRenderer(RendererOptions{Separator: ";"})

	data := []types.TemplateLine{
		line("ALM_GEN", "{Index}", "{Tag}"),
		line("TMR", "{Tag}"),
		line("UNKNOWN", "{Tag}"),
		line("ALM_GEN", "again {Tag}"),
	}

	output := r.RenderGroup(&types.Group{GroupBy: types.GroupByOutput, Data: data})
	assert.Equal(t, "1;A\n2;B\nT1\nagain A\nagain B\n", output)

	singleton := r.RenderGroup(&types.Group{GroupBy: types.GroupBySingleton, Data: data})
	assert.Equal(t, "1;A\nT1\nagain A\n", singleton)
}

func TestRenderSingletonKeepsFirstPassingRecord(t *testing.T) {
	source := memSource{"Alarms": {alarm(1, "A"), alarm(2, "B"), alarm(3, "C")}}
	gate := gateFunc(func(p string) (bool, error) { return p >= "2", nil })
	r := NewRenderer([]*Adapter{NewAdapter(alarmSchema(), source, gate, AdapterOptions{})}, RendererOptions{})

	g := &types.Group{
		GroupBy: types.GroupBySingleton,
		Data:    []types.TemplateLine{{Type: "ALM_GEN", Rule: "{Index}", Items: []string{"{Tag}"}}},
	}
	assert.Equal(t, "B\n", r.RenderGroup(g))
}

func TestRenderSheetIdempotent(t *testing.T) {
	r := newTestRenderer(RendererOptions{Separator: " "})
	sheet := &types.Sheet{
		Name: "Alarms",
		Root: &types.Group{
			Headers: []types.Line{{Items: []string{"BEGIN"}}},
			Data:    []types.TemplateLine{line("ALM_GEN", "{Index:000}", "{Tag}")},
		},
	}

	first := r.RenderSheet(sheet)
	assert.Equal(t, "BEGIN\n001 A\n002 B\n", first)
	assert.Equal(t, first, r.RenderSheet(sheet))
	assert.Empty(t, r.RenderSheet(&types.Sheet{Name: "empty"}))
}

func TestRenderGroupIsolatesFailingAdapter(t *testing.T) {
	logger, logs := observed(zapcore.ErrorLevel)
	good := NewAdapter(timerSchema(), memSource{"Timers": {alarm(1, "T1")}}, nil, AdapterOptions{})
	bad := NewAdapter(alarmSchema(), panicSource{}, nil, AdapterOptions{})
	r := NewRenderer([]*Adapter{bad, good}, RendererOptions{Logger: logger})

	g := &types.Group{Data: []types.TemplateLine{line("ALM_GEN", "{Tag}"), line("TMR", "{Tag}")}}
	assert.Equal(t, "T1\n", r.RenderGroup(g))
	assert.Equal(t, 1, logs.FilterMessage("adapter failed, output dropped").Len())
}

func TestNewRendererIgnoresDuplicateTypes(t *testing.T) {
	first := NewAdapter(alarmSchema(), memSource{"Alarms": {alarm(1, "first")}}, nil, AdapterOptions{})
	second := NewAdapter(alarmSchema(), memSource{"Alarms": {alarm(1, "second")}}, nil, AdapterOptions{})
	r := NewRenderer([]*Adapter{first, second}, RendererOptions{})

	assert.Len(t, r.Adapters(), 1)
	a, ok := r.Adapter("ALM_GEN")
	assert.True(t, ok)
	assert.Same(t, first, a)
}
