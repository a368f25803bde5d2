package utils

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LookupEncoding maps a configuration encoding name to a text encoding.
//
// Supported names (case-insensitive):
//   - "UTF-8" (default), "UTF-8-BOM"
//   - "Windows-1252", "ISO-8859-1"
//   - "UTF-16LE", "UTF-16BE" (written with a byte order mark)
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-bom", "utf8-bom", "utf-8 bom":
		return unicode.UTF8BOM, nil
	case "windows-1252", "cp1252", "ansi":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "utf-16le", "utf-16", "unicode":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// EncodeText converts UTF-8 text to the named encoding.
func EncodeText(text, name string) ([]byte, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output as %s: %w", name, err)
	}
	return []byte(out), nil
}

// NewDecodingReader returns a reader yielding UTF-8 from r, which is encoded
// as name. A leading byte order mark overrides name and is dropped.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
