// =============================================================================
// PLC Text Generator - Post-Processing Engine
// =============================================================================
//
// This module applies text transformations to rendered sheets before they are
// written. Rules select sheets by a glob on the sheet name and apply their
// actions in order, line by line.
//
// TRANSFORMATION TYPES:
//   - truncate_comments   : Shorten comment text after a marker
//   - trim_trailing_space : Remove trailing blanks
//   - uppercase           : Convert to uppercase
//   - replace             : Replace a substring
//   - regex_replace       : Replace a regular expression
//
// TYPICAL USE:
//   Older PLC editors reject comments longer than a fixed width or
//   lowercase mnemonics. Both are fixed here rather than in the template.
//
// =============================================================================

package converter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/plc-text-generator/internal/config"
)

// DefaultCommentMarker starts a comment when truncate_comments names none.
const DefaultCommentMarker = "//"

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies the post-processing rules of a run.
type Transformer struct {
	rules    []config.PostProcessRule
	patterns map[string]*regexp.Regexp
}

// NewTransformer checks the rules and compiles their patterns.
//
// RETURNS:
//   - A Transformer for the rules.
//   - An error for unknown action types, bad globs, patterns or lengths.
func NewTransformer(rules []config.PostProcessRule) (*Transformer, error) {
	t := &Transformer{
		rules:    rules,
		patterns: make(map[string]*regexp.Regexp),
	}

	for i, rule := range rules {
		if _, err := filepath.Match(rule.Sheet, ""); err != nil {
			return nil, fmt.Errorf("post_process[%d]: invalid sheet pattern %q: %w", i, rule.Sheet, err)
		}
		for _, action := range rule.Actions {
			if err := t.check(action); err != nil {
				return nil, fmt.Errorf("post_process[%d]: %s: %w", i, action.Type, err)
			}
		}
	}

	return t, nil
}

// check validates one action and caches its pattern.
func (t *Transformer) check(action config.TransformationAction) error {
	switch action.Type {
	case "truncate_comments":
		if n, err := strconv.Atoi(action.Value); err != nil || n < 0 {
			return fmt.Errorf("value must be a non-negative length, got %q", action.Value)
		}
	case "trim_trailing_space", "uppercase":
	case "replace":
		if action.Find == "" {
			return fmt.Errorf("find is required")
		}
	case "regex_replace":
		if _, ok := t.patterns[action.Find]; ok {
			return nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		t.patterns[action.Find] = re
	default:
		return fmt.Errorf("unknown transformation type")
	}
	return nil
}

// Matches reports whether a rule applies to sheet.
func Matches(rule config.PostProcessRule, sheet string) bool {
	if rule.Sheet == "" {
		return true
	}
	ok, err := filepath.Match(rule.Sheet, sheet)
	return err == nil && ok
}

// Transform applies every matching rule to the rendered text of a sheet.
//
// PARAMETERS:
//   - sheet: The sheet name the rules are matched against.
//   - text: The rendered sheet, lines terminated by "\n".
//
// RETURNS:
//   - The transformed text.
func (t *Transformer) Transform(sheet, text string) string {
	if text == "" {
		return text
	}

	var actions []config.TransformationAction
	for _, rule := range t.rules {
		if Matches(rule, sheet) {
			actions = append(actions, rule.Actions...)
		}
	}
	if len(actions) == 0 {
		return text
	}

	trailing := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		for _, action := range actions {
			line = t.apply(line, action)
		}
		lines[i] = line
	}

	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return out
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// apply applies a single checked action to one line.
func (t *Transformer) apply(line string, action config.TransformationAction) string {
	switch action.Type {

	case "truncate_comments":
		// Keep at most Value runes of comment text after the marker.
		//
		// EXAMPLE:
		//   Input: "A I0.0 // pump running feedback"
		//   Action: truncate_comments with value "4"
		//   Output: "A I0.0 // pum"
		marker := action.Find
		if marker == "" {
			marker = DefaultCommentMarker
		}
		limit, _ := strconv.Atoi(action.Value)
		return TruncateComment(line, marker, limit)

	case "trim_trailing_space":
		return strings.TrimRight(line, " \t")

	case "uppercase":
		return strings.ToUpper(line)

	case "replace":
		return strings.ReplaceAll(line, action.Find, action.Value)

	case "regex_replace":
		// EXAMPLE:
		//   Input: "L  DB10.DBW   4"
		//   Action: regex_replace with find " {2,}" and value " "
		//   Output: "L DB10.DBW 4"
		return t.patterns[action.Find].ReplaceAllString(line, action.Value)

	default:
		return line
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// TruncateComment cuts the text after the first marker of line to limit
// runes. Lines without the marker are returned unchanged.
func TruncateComment(line, marker string, limit int) string {
	i := strings.Index(line, marker)
	if i < 0 {
		return line
	}
	start := i + len(marker)
	comment := []rune(line[start:])
	if len(comment) <= limit {
		return line
	}
	return line[:start] + string(comment[:limit])
}
