// Package rulegate evaluates substituted template rules as boolean
// expressions with expr-lang/expr.
//
// Rules arrive with every placeholder already replaced by a literal value,
// for example "12 > 3 AND 'DI' <> 'DO'". The spreadsheet operators <>, =,
// AND, OR and NOT are rewritten to their expr spelling before compilation.
package rulegate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled programs a Gate keeps.
const DefaultCacheSize = 1024

// Gate compiles and evaluates rule predicates. Compiled programs are kept in
// a bounded LRU cache keyed by text, so a rule repeated for every record is
// compiled once while per-record predicates cannot grow it without limit.
type Gate struct {
	programs *lru.Cache[string, *vm.Program]
}

// New returns an empty Gate holding up to DefaultCacheSize programs.
func New() *Gate {
	return NewSized(DefaultCacheSize)
}

// NewSized returns an empty Gate holding up to size programs. A size below
// one selects DefaultCacheSize.
func NewSized(size int) *Gate {
	if size < 1 {
		size = DefaultCacheSize
	}
	programs, err := lru.New[string, *vm.Program](size)
	if err != nil {
		// lru.New fails only for a non-positive size.
		panic(err)
	}
	return &Gate{programs: programs}
}

// Evaluate reports whether predicate holds. Blank text holds.
func (g *Gate) Evaluate(predicate string) (bool, error) {
	if strings.TrimSpace(predicate) == "" {
		return true, nil
	}

	program, err := g.compile(predicate)
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rule %q: %w", predicate, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("rule %q is not boolean", predicate)
	}
	return result, nil
}

func (g *Gate) compile(predicate string) (*vm.Program, error) {
	if program, ok := g.programs.Get(predicate); ok {
		return program, nil
	}

	program, err := expr.Compile(Normalize(predicate), expr.Env(map[string]interface{}{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule %q: %w", predicate, err)
	}
	g.programs.Add(predicate, program)
	return program, nil
}

// Normalize rewrites spreadsheet operators outside of quoted strings:
// "<>" becomes "!=", a lone "=" becomes "==", and the words AND, OR, NOT
// (any case) become and, or, not.
func Normalize(src string) string {
	var out strings.Builder
	out.Grow(len(src) + 8)

	quote := byte(0)
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if quote != 0 {
			out.WriteByte(ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				out.WriteByte(src[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"':
			quote = ch
			out.WriteByte(ch)

		case ch == '<' && i+1 < len(src) && src[i+1] == '>':
			out.WriteString("!=")
			i++

		case ch == '=':
			prev := byte(0)
			if i > 0 {
				prev = src[i-1]
			}
			next := byte(0)
			if i+1 < len(src) {
				next = src[i+1]
			}
			switch {
			case next == '=':
				out.WriteString("==")
				i++
			case prev == '!' || prev == '<' || prev == '>':
				out.WriteByte(ch)
			default:
				out.WriteString("==")
			}

		case isWordStart(ch):
			j := i
			for j < len(src) && isWordPart(src[j]) {
				j++
			}
			word := src[i:j]
			switch strings.ToUpper(word) {
			case "AND", "OR", "NOT":
				out.WriteString(strings.ToLower(word))
			default:
				out.WriteString(word)
			}
			i = j - 1

		default:
			out.WriteByte(ch)
		}
	}

	return out.String()
}

func isWordStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isWordPart(ch byte) bool {
	return isWordStart(ch) || unicode.IsDigit(rune(ch))
}
