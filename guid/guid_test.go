package guid

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

var iidIUnknown = New(0x00000000, 0x0000, 0x0000, [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46})

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"braced", "{00000000-0000-0000-C000-000000000046}"},
		{"hyphenated", "00000000-0000-0000-C000-000000000046"},
		{"raw", "0000000000000000C000000000000046"},
		{"lower", "00000000-0000-0000-c000-000000000046"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if g != iidIUnknown {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, g, iidIUnknown)
			}
		})
	}
}

func TestParseFieldOrder(t *testing.T) {
	g := MustParse("{12345678-9ABC-DEF0-1122-334455667788}")
	if g.Data1 != 0x12345678 {
		t.Errorf("Data1 = %#x", g.Data1)
	}
	if g.Data2 != 0x9ABC {
		t.Errorf("Data2 = %#x", g.Data2)
	}
	if g.Data3 != 0xDEF0 {
		t.Errorf("Data3 = %#x", g.Data3)
	}
	want := [8]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	if g.Data4 != want {
		t.Errorf("Data4 = %x", g.Data4)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "0000"},
		{"length 37", "{00000000-0000-0000-C000-000000000046"},
		{"length 33", "0000000000000000C0000000000000460"},
		{"missing brace", "(00000000-0000-0000-C000-000000000046)"},
		{"hyphen moved", "0000000-00000-0000-C000-000000000046"},
		{"non-hex braced", "{0000000G-0000-0000-C000-000000000046}"},
		{"non-hex raw", "0000000000000000C00000000000004Z"},
		{"hyphen in raw", "00000000-00000000000000000000004"},
		{"urn", "urn:uuid:00000000-0000-0000-C000-000000000046"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.input)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not *FormatError", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var b [16]byte
		rng.Read(b[:])
		g := FromBytes(b)

		forms := map[string]string{
			"braced upper":     g.Braced(true),
			"braced lower":     g.Braced(false),
			"hyphenated upper": g.Hyphenated(true),
			"hyphenated lower": g.Hyphenated(false),
			"hex upper":        g.Hex(true),
			"hex lower":        g.Hex(false),
			"string":           g.String(),
		}
		for name, s := range forms {
			parsed, err := Parse(s)
			if err != nil {
				t.Fatalf("%s: Parse(%q): %v", name, s, err)
			}
			if parsed != g {
				t.Fatalf("%s: round trip %v != %v", name, parsed, g)
			}
		}
	}
}

func TestFormatLengths(t *testing.T) {
	g := MustParse("6C4BBE1C-F6A1-4A1E-9A0F-8A2B4D3E2F10")
	if n := len(g.String()); n != 38 {
		t.Errorf("String length = %d", n)
	}
	if n := len(g.Hyphenated(true)); n != 36 {
		t.Errorf("Hyphenated length = %d", n)
	}
	if n := len(g.Hex(false)); n != 32 {
		t.Errorf("Hex length = %d", n)
	}
	if g.String() != "{6C4BBE1C-F6A1-4A1E-9A0F-8A2B4D3E2F10}" {
		t.Errorf("String = %s", g.String())
	}
	if g.Hex(false) != "6c4bbe1cf6a14a1e9a0f8a2b4d3e2f10" {
		t.Errorf("Hex = %s", g.Hex(false))
	}
}

func TestLiteral(t *testing.T) {
	got := iidIUnknown.Literal()
	want := "{0x00000000,0x0000,0x0000,{0xC0,0x00,0x00,0x00,0x00,0x00,0x00,0x46}}"
	if got != want {
		t.Errorf("Literal = %s, want %s", got, want)
	}
	if !strings.Contains(iidIUnknown.GoString(), "Data4: [8]byte{0xC0") {
		t.Errorf("GoString = %s", iidIUnknown.GoString())
	}
}

func TestTextMarshaling(t *testing.T) {
	text, err := iidIUnknown.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var g GUID
	if err := g.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if g != iidIUnknown {
		t.Errorf("UnmarshalText = %v", g)
	}
	if err := g.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText should reject bogus input")
	}
}

func TestUUIDInterop(t *testing.T) {
	g := MustParse("6C4BBE1C-F6A1-4A1E-9A0F-8A2B4D3E2F10")
	u := g.UUID()
	if !strings.EqualFold(u.String(), g.Hyphenated(false)) {
		t.Errorf("UUID = %s, want %s", u, g.Hyphenated(false))
	}
	if FromUUID(u) != g {
		t.Error("FromUUID did not round trip")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate("IID:calculator:IMath_Automation:automation")
	b := Generate("IID:calculator:IMath_Automation:automation")
	if a != b {
		t.Fatalf("Generate not deterministic: %v != %v", a, b)
	}
	if a.IsZero() {
		t.Fatal("Generate returned zero GUID")
	}

	c := Generate("IID:calculator:IMath_Raw:raw")
	if a == c {
		t.Fatal("different keys produced the same GUID")
	}

	// RFC 4122 version 5, variant 10xx
	if a.Data3>>12 != 5 {
		t.Errorf("version nibble = %d, want 5", a.Data3>>12)
	}
	if a.Data4[0]&0xC0 != 0x80 {
		t.Errorf("variant bits = %#x", a.Data4[0]&0xC0)
	}
}

func TestGenerateDistinct(t *testing.T) {
	seen := make(map[GUID]string)
	for i := 0; i < 2000; i++ {
		key := "CLSID:lib:Class" + strings.Repeat("x", i%7) + string(rune('a'+i%26)) + string(rune('0'+i%10)) + strings.Repeat("y", i/70)
		g := Generate(key)
		if prev, ok := seen[g]; ok && prev != key {
			t.Fatalf("collision between %q and %q", prev, key)
		}
		seen[g] = key
	}
}

func TestGenerateHelpers(t *testing.T) {
	if GenerateIID("lib", "IFoo", "Raw") != Generate("IID:lib:IFoo:raw") {
		t.Error("GenerateIID key layout changed")
	}
	if GenerateCLSID("lib", "Foo") != Generate("CLSID:lib:Foo") {
		t.Error("GenerateCLSID key layout changed")
	}
	if GenerateLIBID("lib") != Generate("LIBID:lib") {
		t.Error("GenerateLIBID key layout changed")
	}
	if GenerateIID("lib", "IFoo", "raw") == GenerateIID("lib", "IFoo", "automation") {
		t.Error("type systems must yield different IIDs")
	}
}
