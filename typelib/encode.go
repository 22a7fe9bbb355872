package typelib

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/com-runtime/errors"
)

// Format selects a type library encoding.
type Format string

const (
	FormatTOML    Format = "toml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatTOML, FormatJSON, FormatMsgpack}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTOML, FormatJSON, FormatMsgpack:
		return f, nil
	case "mp", "msgp":
		return FormatMsgpack, nil
	}
	return "", errors.ParseFailed("type library format", fmt.Errorf("unknown format %q", s))
}

// FormatOf guesses the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, true
	case ".json":
		return FormatJSON, true
	case ".msgpack", ".mp":
		return FormatMsgpack, true
	}
	return "", false
}

// Encode writes t in format f.
func (t *TypeLib) Encode(w io.Writer, f Format) error {
	var err error
	switch f {
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(t)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(t)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetOmitEmpty(true)
		err = enc.Encode(t)
	default:
		return errors.Unsupported(errors.PhaseMarshal, "type library format "+string(f))
	}
	if err != nil {
		return errors.Wrap(errors.PhaseMarshal, errors.KindInvalidData, err, "encode type library as "+string(f))
	}
	return nil
}

// Decode reads a type library in format f.
func Decode(r io.Reader, f Format) (*TypeLib, error) {
	var (
		t   TypeLib
		err error
	)
	switch f {
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&t)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&t)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&t)
	default:
		return nil, errors.Unsupported(errors.PhaseUnmarshal, "type library format "+string(f))
	}
	if err != nil {
		return nil, errors.ParseFailed("type library ("+string(f)+")", err)
	}
	return &t, nil
}
