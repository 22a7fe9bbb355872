package guid

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// GUID is the 16-byte identifier used for interface, class and library IDs.
// The layout matches the C struct {u32, u16, u16, u8[8]}.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Zero is the all-zero GUID (GUID_NULL).
var Zero GUID

// New builds a GUID from its parts.
func New(d1 uint32, d2, d3 uint16, d4 [8]byte) GUID {
	return GUID{Data1: d1, Data2: d2, Data3: d3, Data4: d4}
}

// FromBytes reassembles a GUID from its 16 bytes in textual (big-endian) order.
func FromBytes(b [16]byte) GUID {
	var g GUID
	g.Data1 = binary.BigEndian.Uint32(b[0:4])
	g.Data2 = binary.BigEndian.Uint16(b[4:6])
	g.Data3 = binary.BigEndian.Uint16(b[6:8])
	copy(g.Data4[:], b[8:16])
	return g
}

// Bytes returns the 16 bytes in textual (big-endian) order.
func (g GUID) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint32(b[0:4], g.Data1)
	binary.BigEndian.PutUint16(b[4:6], g.Data2)
	binary.BigEndian.PutUint16(b[6:8], g.Data3)
	copy(b[8:16], g.Data4[:])
	return b
}

// FromUUID converts an RFC 4122 UUID.
func FromUUID(u uuid.UUID) GUID {
	return FromBytes(u)
}

// UUID converts the GUID to an RFC 4122 UUID value.
func (g GUID) UUID() uuid.UUID {
	return uuid.UUID(g.Bytes())
}

// IsZero reports whether g is GUID_NULL.
func (g GUID) IsZero() bool {
	return g == Zero
}

// String formats g with braces and hyphens in upper case,
// e.g. {00000000-0000-0000-C000-000000000046}.
func (g GUID) String() string {
	return "{" + g.Hyphenated(true) + "}"
}

// GoString implements fmt.GoStringer with a literal usable in Go source.
func (g GUID) GoString() string {
	return fmt.Sprintf("guid.GUID{Data1: 0x%08X, Data2: 0x%04X, Data3: 0x%04X, Data4: [8]byte{0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X, 0x%02X}}",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// MarshalText implements encoding.TextMarshaler with the hyphenated form.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.Hyphenated(true)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Any of the three
// accepted textual forms may be used.
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
