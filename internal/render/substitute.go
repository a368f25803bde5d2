package render

import "strings"

// Resolver returns the rendered text of a placeholder name, or false when the
// name is not part of the vocabulary.
type Resolver func(name string) (string, bool)

// Substitute replaces every {Name} token of text that resolve knows.
// Unknown tokens are copied unchanged so that a later scan for '{' reveals
// them. The text is scanned once; replacement values are never rescanned,
// so no placeholder can match inside another one or inside a value.
func Substitute(text string, resolve Resolver) string {
	if strings.IndexByte(text, '{') < 0 {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '{')
		if open < 0 {
			out.WriteString(text[i:])
			break
		}
		open += i
		out.WriteString(text[i:open])

		end := strings.IndexAny(text[open+1:], "{}")
		if end < 0 {
			out.WriteString(text[open:])
			break
		}
		end += open + 1

		if text[end] == '{' {
			// "{{Name}": the first brace is literal.
			out.WriteString(text[open:end])
			i = end
			continue
		}

		name := text[open+1 : end]
		if value, ok := resolve(name); ok {
			out.WriteString(value)
		} else {
			out.WriteString(text[open : end+1])
		}
		i = end + 1
	}

	return out.String()
}

// Placeholders lists the token names of text in order of appearance.
func Placeholders(text string) []string {
	var names []string
	Substitute(text, func(name string) (string, bool) {
		names = append(names, name)
		return "", false
	})
	return names
}

// MapResolver resolves names from a constant map.
func MapResolver(values map[string]string) Resolver {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
