package render

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// memSource is an in-memory RowSource keyed by dataset name.
type memSource map[string][]types.Record

func (m memSource) Rows(dataset string) ([]types.Record, bool) {
	rows, ok := m[dataset]
	return rows, ok
}

func (m memSource) Lookup(dataset string, index int64) (types.Record, bool) {
	for _, r := range m[dataset] {
		if n, ok := asInt(r.Get("Index")); ok && n == index {
			return r, true
		}
	}
	return nil, false
}

// gateFunc adapts a function to RuleGate.
type gateFunc func(string) (bool, error)

func (f gateFunc) Evaluate(predicate string) (bool, error) {
	return f(predicate)
}

// recordingGate passes every predicate and remembers them.
type recordingGate struct {
	seen   []string
	result bool
}

func (g *recordingGate) Evaluate(predicate string) (bool, error) {
	g.seen = append(g.seen, predicate)
	return g.result, nil
}

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func alarmSchema() Schema {
	return Schema{
		Type:       "ALM_GEN",
		Dataset:    "Alarms",
		IndexField: "Index",
		Fields: []Field{
			{Name: "Index", Kind: types.KindInt, Formats: []Format{{Kind: Verbatim}, {Kind: ZeroPadded, Width: 3}}},
			{Name: "Tag", Kind: types.KindString, Formats: []Format{{Kind: Verbatim}}},
			{Name: "Address", Kind: types.KindString, Formats: []Format{{Kind: Verbatim}}},
			{Name: "HiLimit", Kind: types.KindFloat, Formats: []Format{{Kind: Verbatim}, {Kind: Scientific}}},
		},
	}
}

func alarm(index int64, tag string) types.Record {
	return types.Record{
		"Index": types.IntValue(index),
		"Tag":   types.StringValue(tag),
	}
}

func line(typeKey string, items ...string) types.TemplateLine {
	return types.TemplateLine{Type: typeKey, Items: items}
}
