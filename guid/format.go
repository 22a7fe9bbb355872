package guid

import (
	"fmt"
)

// FormatError reports a malformed GUID string.
type FormatError struct {
	Input  string
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid GUID %q at offset %d: %s", e.Input, e.Offset, e.Reason)
	}
	return fmt.Sprintf("invalid GUID %q: %s", e.Input, e.Reason)
}

// Textual layouts. A zero byte marks a hex digit position, anything else is
// a literal that must appear verbatim.
var (
	bracedLayout     = []byte("{00000000-0000-0000-0000-000000000000}")
	hyphenatedLayout = []byte("00000000-0000-0000-0000-000000000000")
)

func init() {
	for _, layout := range [][]byte{bracedLayout, hyphenatedLayout} {
		for i, c := range layout {
			if c == '0' {
				layout[i] = 0
			}
		}
	}
}

// Parse reads a GUID in one of three forms, selected by length:
//
//	38: {00000000-0000-0000-0000-000000000000}
//	36: 00000000-0000-0000-0000-000000000000
//	32: 00000000000000000000000000000000
//
// Hex digits may be upper or lower case.
func Parse(s string) (GUID, error) {
	var layout []byte
	switch len(s) {
	case 38:
		layout = bracedLayout
	case 36:
		layout = hyphenatedLayout
	case 32:
		layout = nil
	default:
		return GUID{}, &FormatError{Input: s, Offset: -1, Reason: fmt.Sprintf("unrecognized length %d", len(s))}
	}

	var buf [16]byte
	digit := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if layout != nil && layout[i] != 0 {
			if c != layout[i] {
				return GUID{}, &FormatError{Input: s, Offset: i, Reason: fmt.Sprintf("expected %q, found %q", layout[i], c)}
			}
			continue
		}

		v, ok := hexValue(c)
		if !ok {
			return GUID{}, &FormatError{Input: s, Offset: i, Reason: fmt.Sprintf("non-hex character %q", c)}
		}

		if digit%2 == 0 {
			buf[digit/2] = v << 4
		} else {
			buf[digit/2] |= v
		}
		digit++
	}

	return FromBytes(buf), nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// package-level IID declarations.
func MustParse(s string) GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

const (
	upperDigits = "0123456789ABCDEF"
	lowerDigits = "0123456789abcdef"
)

// Hex formats g as 32 hex digits without separators.
func (g GUID) Hex(upper bool) string {
	digits := lowerDigits
	if upper {
		digits = upperDigits
	}
	b := g.Bytes()
	out := make([]byte, 32)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0x0f]
	}
	return string(out)
}

// Hyphenated formats g as 8-4-4-4-12 hex digits without braces.
func (g GUID) Hyphenated(upper bool) string {
	raw := g.Hex(upper)
	out := make([]byte, 0, 36)
	out = append(out, raw[0:8]...)
	out = append(out, '-')
	out = append(out, raw[8:12]...)
	out = append(out, '-')
	out = append(out, raw[12:16]...)
	out = append(out, '-')
	out = append(out, raw[16:20]...)
	out = append(out, '-')
	out = append(out, raw[20:32]...)
	return string(out)
}

// Braced formats g as {8-4-4-4-12}.
func (g GUID) Braced(upper bool) string {
	return "{" + g.Hyphenated(upper) + "}"
}

// Literal formats g as a C initializer, as emitted into generated headers:
// {0x00000000,0x0000,0x0000,{0xC0,0x00,0x00,0x00,0x00,0x00,0x00,0x46}}
func (g GUID) Literal() string {
	return fmt.Sprintf("{0x%08X,0x%04X,0x%04X,{0x%02X,0x%02X,0x%02X,0x%02X,0x%02X,0x%02X,0x%02X,0x%02X}}",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}
