// =============================================================================
// PLC Text Generator - Group Renderer
// =============================================================================
//
// The group renderer walks a sheet's group tree depth-first. Every group
// renders, in this order:
//
//   1. Headers   substituted once against the global placeholders
//   2. Data      per the group's strategy
//                  Input     : every adapter, registration order
//                  Output    : every data line, each across all records
//                  Singleton : as Output, first accepted record only
//   3. Groups    children, declaration order
//   4. Footers   substituted once against the global placeholders
//
// =============================================================================

package render

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/plc-text-generator/internal/types"
)

// RendererOptions tunes a Renderer.
type RendererOptions struct {
	// Separator joins the Items of every line.
	Separator string

	// Globals are the placeholders of header and footer lines.
	Globals map[string]string

	Logger *zap.Logger
}

// Renderer renders sheets with a fixed set of adapters.
type Renderer struct {
	adapters  []*Adapter
	byType    map[string]*Adapter
	separator string
	globals   Resolver
	logger    *zap.Logger
}

// NewRenderer registers adapters in the given order. A later adapter with an
// already registered Type is ignored.
func NewRenderer(adapters []*Adapter, opts RendererOptions) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Renderer{
		byType:    make(map[string]*Adapter, len(adapters)),
		separator: opts.Separator,
		globals:   MapResolver(opts.Globals),
		logger:    logger,
	}
	for _, a := range adapters {
		if _, dup := r.byType[a.Type()]; dup {
			logger.Warn("duplicate adapter type ignored", zap.String("type", a.Type()))
			continue
		}
		r.adapters = append(r.adapters, a)
		r.byType[a.Type()] = a
	}
	return r
}

// Adapter returns the adapter registered for a type key.
func (r *Renderer) Adapter(typeKey string) (*Adapter, bool) {
	a, ok := r.byType[typeKey]
	return a, ok
}

// Adapters returns the adapters in registration order.
func (r *Renderer) Adapters() []*Adapter {
	return r.adapters
}

// RenderSheet renders the sheet's root group as one text blob.
func (r *Renderer) RenderSheet(sheet *types.Sheet) string {
	if sheet == nil || sheet.Root == nil {
		return ""
	}
	return r.RenderGroup(sheet.Root)
}

// RenderGroup renders g and its descendants.
func (r *Renderer) RenderGroup(g *types.Group) string {
	if g == nil {
		return ""
	}

	var out strings.Builder
	r.writeLines(&out, g.Headers)

	switch g.GroupBy {
	case types.GroupByInput:
		for _, a := range r.adapters {
			out.WriteString(r.guard(a, func() string {
				return a.RenderAllForInput(g, r.separator)
			}))
		}

	case types.GroupByOutput, types.GroupBySingleton:
		firstOnly := g.GroupBy == types.GroupBySingleton
		for _, line := range g.Data {
			a, ok := r.byType[line.Type]
			if !ok {
				r.logger.Debug("no adapter for line type",
					zap.String("type", line.Type),
					zap.Int("template_row", line.Row))
				continue
			}
			raw := line.Joined(r.separator)
			out.WriteString(r.guard(a, func() string {
				return a.RenderOneLineAcrossRecords(line, raw, firstOnly)
			}))
		}

	default:
		r.logger.Warn("unknown group strategy, data skipped", zap.Int("group_by", int(g.GroupBy)))
	}

	for _, child := range g.Groups {
		out.WriteString(r.RenderGroup(child))
	}

	r.writeLines(&out, g.Footers)
	return out.String()
}

// writeLines renders header or footer lines against the globals.
func (r *Renderer) writeLines(out *strings.Builder, lines []types.Line) {
	for _, line := range lines {
		out.WriteString(Substitute(strings.Join(line.Items, r.separator), r.globals))
		out.WriteByte('\n')
	}
}

// guard isolates one adapter call: a panic drops that adapter's output
// for the call and is logged, and siblings keep rendering.
func (r *Renderer) guard(a *Adapter, render func() string) (text string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("adapter failed, output dropped",
				zap.String("type", a.Type()),
				zap.Error(fmt.Errorf("%v", p)))
			text = ""
		}
	}()
	return render()
}
