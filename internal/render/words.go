package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// AddressField is the aggregate field holding the shared word address.
const AddressField = "Address"

// WordUnpacker reassembles runs of single-bit rows into packed-word records.
// The field names locate the columns of the raw bit rows.
type WordUnpacker struct {
	KindField        string
	AddressField     string
	BitField         string
	TagField         string
	DescriptionField string

	// Int16Kind and Int32Kind are the kind tags of 16 and 32 bit words.
	Int16Kind string
	Int32Kind string
}

// BitsFor returns the bit count of a packed-word kind, 0 if kind is not packed.
func (w WordUnpacker) BitsFor(kind string) int {
	switch strings.TrimSpace(kind) {
	case "":
		return 0
	case w.Int16Kind:
		return 16
	case w.Int32Kind:
		return 32
	default:
		return 0
	}
}

// KindOf returns the trimmed packed-word kind tag of a row.
func (w WordUnpacker) KindOf(row types.Record) string {
	return strings.TrimSpace(row.Text(w.KindField))
}

// AddressOf returns the trimmed word address of a row.
func (w WordUnpacker) AddressOf(row types.Record) string {
	return strings.TrimSpace(row.Text(w.AddressField))
}

// BitTagField returns the aggregate field name of the tag at bit n.
func BitTagField(n int) string {
	return fmt.Sprintf("Tag_Bit%02d", n)
}

// BitDescriptionField returns the aggregate field name of the description at bit n.
func BitDescriptionField(n int) string {
	return fmt.Sprintf("Description_Bit%02d", n)
}

// ParseBitLabel maps a label of the form BitNN to its position. Labels at or
// beyond bits are not recognized.
func ParseBitLabel(label string, bits int) (int, bool) {
	label = strings.TrimSpace(label)
	if len(label) != 5 || !strings.EqualFold(label[:3], "bit") {
		return 0, false
	}
	n, err := strconv.Atoi(label[3:])
	if err != nil || n < 0 || n >= bits {
		return 0, false
	}
	return n, true
}

// AggregateFields lists the field names of a bits-wide aggregate word.
// Slots absent from an aggregate read as blank.
func AggregateFields(bits int) []string {
	names := make([]string, 0, 2*bits+1)
	names = append(names, AddressField)
	for n := 0; n < bits; n++ {
		names = append(names, BitTagField(n), BitDescriptionField(n))
	}
	return names
}

// Unpack scans rows from start, which must be the leading row of a run of
// wordKind, and returns the aggregate word and the number of rows consumed
// (always at least one).
//
// A following row continues the run while it has the same kind and its
// address is blank or equal to the run's address. A different non-blank
// address or a different kind ends the run. The aggregate holds one Tag and
// one Description slot per recognized bit label and is addressed by the
// Bit00 row; a run without one falls back to the leading row's address.
func (w WordUnpacker) Unpack(rows []types.Record, start int, wordKind string) (types.Record, int) {
	bits := w.BitsFor(wordKind)
	agg := types.Record{AddressField: types.StringValue("")}
	if start < 0 || start >= len(rows) {
		return agg, 0
	}

	runAddress := w.AddressOf(rows[start])
	bit00Address := ""

	consumed := 0
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if i > start {
			if w.KindOf(row) != wordKind {
				break
			}
			if address := w.AddressOf(row); address != "" && address != runAddress {
				break
			}
		}
		consumed++

		n, ok := ParseBitLabel(row.Text(w.BitField), bits)
		if !ok {
			continue
		}
		agg[BitTagField(n)] = types.StringValue(row.Text(w.TagField))
		agg[BitDescriptionField(n)] = types.StringValue(row.Text(w.DescriptionField))
		if n == 0 {
			bit00Address = w.AddressOf(row)
		}
	}

	if bit00Address != "" {
		agg[AddressField] = types.StringValue(bit00Address)
	} else {
		agg[AddressField] = types.StringValue(runAddress)
	}

	return agg, consumed
}

// LeadRow returns the Bit00 row of the run of consumed rows at start, or the
// run's first row when it has none.
func (w WordUnpacker) LeadRow(rows []types.Record, start, consumed int) types.Record {
	if start < 0 || start >= len(rows) {
		return types.Record{}
	}
	bits := w.BitsFor(w.KindOf(rows[start]))
	for i := start; i < start+consumed && i < len(rows); i++ {
		if n, ok := ParseBitLabel(rows[i].Text(w.BitField), bits); ok && n == 0 {
			return rows[i]
		}
	}
	return rows[start]
}
