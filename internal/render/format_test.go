package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		directive string
		want      Format
	}{
		{"", Format{Kind: Verbatim}},
		{"000", Format{Kind: ZeroPadded, Width: 3}},
		{"00000", Format{Kind: ZeroPadded, Width: 5}},
		{"e", Format{Kind: Scientific}},
		{"E", Format{Kind: Scientific}},
		{"g", Format{Kind: General}},
	}
	for _, tt := range tests {
		t.Run(tt.directive, func(t *testing.T) {
			got, err := ParseFormat(tt.directive)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind, mustParse(t, got.Directive()).Kind)
		})
	}

	_, err := ParseFormat("0.00")
	assert.Error(t, err)
}

func mustParse(t *testing.T, directive string) Format {
	t.Helper()
	f, err := ParseFormat(directive)
	require.NoError(t, err)
	return f
}

func TestFormatApply(t *testing.T) {
	pad := Format{Kind: ZeroPadded, Width: 3}
	assert.Equal(t, "007", pad.Apply(types.IntValue(7)))
	assert.Equal(t, "1234", pad.Apply(types.IntValue(1234)))
	assert.Equal(t, "012", pad.Apply(types.StringValue("12")))
	assert.Equal(t, "", pad.Apply(types.NullInt(0, false)))
	assert.Equal(t, "n/a", pad.Apply(types.StringValue("n/a")))

	sci := Format{Kind: Scientific}
	assert.Equal(t, "1.500000e+03", sci.Apply(types.FloatValue(1500)))
	assert.Equal(t, "-2.500000e-01", sci.Apply(types.FloatValue(-0.25)))

	gen := Format{Kind: General}
	assert.Equal(t, "0.25", gen.Apply(types.FloatValue(0.25)))
	assert.Equal(t, "100", gen.Apply(types.IntValue(100)))

	verbatim := Format{Kind: Verbatim}
	assert.Equal(t, "AI_101", verbatim.Apply(types.StringValue("AI_101")))
	assert.Equal(t, "", verbatim.Apply(types.Value{Kind: types.KindFloat}))
}

func TestFormatPlaceholder(t *testing.T) {
	assert.Equal(t, "Index", Format{Kind: Verbatim}.Placeholder("Index"))
	assert.Equal(t, "Index:000", Format{Kind: ZeroPadded, Width: 3}.Placeholder("Index"))
	assert.Equal(t, "HiLimit:e", Format{Kind: Scientific}.Placeholder("HiLimit"))
}
