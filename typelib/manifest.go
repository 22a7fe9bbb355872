package typelib

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/typesystem"
)

// Manifest is the hand-written description of a library. IDs left empty
// are generated from the names exactly as the runtime generates them, so
// Resolve tells a client which IDs a Go library will answer to.
//
//	name = "calculator"
//
//	[[interface]]
//	name = "IMath"
//
//	  [[interface.method]]
//	  name = "Sqrt"
//	  param = [
//	    { name = "x", type = "double" },
//	    { name = "result", type = "double", dir = "retval" },
//	  ]
//
//	[[class]]
//	name = "Calc"
//	interfaces = ["IMath"]
//	generate_clsid = true
type Manifest struct {
	Name       string              `toml:"name"`
	LIBID      string              `toml:"libid"`
	Interfaces []ManifestInterface `toml:"interface"`
	Classes    []ManifestClass     `toml:"class"`
}

// ManifestInterface declares an interface. IID and RawIID override the
// generated IDs of the Automation and Raw variants.
type ManifestInterface struct {
	Name    string           `toml:"name"`
	Base    string           `toml:"base"`
	IID     string           `toml:"iid"`
	RawIID  string           `toml:"raw_iid"`
	Methods []ManifestMethod `toml:"method"`
}

// ManifestMethod declares a method. Parameter and return types are foreign
// names; "string" and "bool" stand for the type-system specific forms.
// Methods without Returns report an HRESULT.
type ManifestMethod struct {
	Name    string  `toml:"name"`
	Params  []Param `toml:"param"`
	Returns string  `toml:"returns"`
	Const   bool    `toml:"const"`
}

// ManifestClass declares a class. A class without a CLSID that does not
// ask for a generated one cannot be created through a class factory.
type ManifestClass struct {
	Name          string   `toml:"name"`
	CLSID         string   `toml:"clsid"`
	GenerateCLSID bool     `toml:"generate_clsid"`
	Interfaces    []string `toml:"interfaces"`
	NoErrorInfo   bool     `toml:"no_error_info"`
}

// unknownMethods is the IUnknown prefix of every vtable.
var unknownMethods = []ManifestMethod{
	{Name: "QueryInterface", Params: []Param{
		{Name: "riid", Type: "REFIID", Dir: "in"},
		{Name: "ppv", Type: "void**", Dir: "retval"},
	}},
	{Name: "AddRef", Returns: "ULONG"},
	{Name: "Release", Returns: "ULONG"},
}

// LoadManifest reads a TOML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseFailed("manifest "+path, err)
	}
	defer f.Close()
	return DecodeManifest(f)
}

// DecodeManifest reads a TOML manifest. Unknown keys are rejected.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	md, err := toml.NewDecoder(r).Decode(&m)
	if err != nil {
		return nil, errors.ParseFailed("manifest", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.ParseFailed("manifest", fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	if m.Name == "" {
		return nil, errors.ParseFailed("manifest", fmt.Errorf("library name is required"))
	}
	return &m, nil
}

// Resolve checks the manifest and produces the type library it describes.
func (m *Manifest) Resolve() (*TypeLib, error) {
	t := &TypeLib{Name: m.Name}

	libid := guid.GenerateLIBID(m.Name)
	if m.LIBID != "" {
		var err error
		if libid, err = guid.Parse(m.LIBID); err != nil {
			return nil, errors.ParseFailed("libid of "+m.Name, err)
		}
	}
	t.LIBID = formatID(libid)

	declared := make(map[string]*ManifestInterface)
	seen := make(map[guid.GUID]string)
	for i := range m.Interfaces {
		mi := &m.Interfaces[i]
		if mi.Name == "" {
			return nil, errors.Registration("interface", fmt.Sprintf("#%d", i), fmt.Errorf("missing name"))
		}
		if _, dup := declared[mi.Name]; dup || mi.Name == "IUnknown" {
			return nil, errors.Duplicate("interface", mi.Name)
		}
		if mi.Base != "" && mi.Base != "IUnknown" {
			if _, ok := declared[mi.Base]; !ok {
				return nil, errors.Registration("interface", mi.Name,
					fmt.Errorf("base %s must be declared before it", mi.Base))
			}
		}
		declared[mi.Name] = mi

		itf := Interface{Name: mi.Name}
		if mi.Base != "IUnknown" {
			itf.Base = mi.Base
		}
		for _, ts := range typesystem.All {
			iid, err := m.iid(mi, ts)
			if err != nil {
				return nil, err
			}
			key := mi.Name + "/" + ts.String()
			if prev, ok := seen[iid]; ok {
				return nil, errors.Registration("interface", mi.Name,
					fmt.Errorf("IID %s shared by %s and %s", iid, prev, key))
			}
			seen[iid] = key

			methods, err := m.vtable(mi, ts, declared)
			if err != nil {
				return nil, err
			}
			itf.Variants = append(itf.Variants, Variant{
				TypeSystem: ts.Key(),
				IID:        formatID(iid),
				Methods:    methods,
			})
		}
		t.Interfaces = append(t.Interfaces, itf)
	}

	classes := make(map[string]bool)
	clsids := make(map[guid.GUID]string)
	for _, mc := range m.Classes {
		if classes[mc.Name] {
			return nil, errors.Duplicate("class", mc.Name)
		}
		classes[mc.Name] = true

		c := Class{Name: mc.Name, ErrorInfo: !mc.NoErrorInfo}
		for _, name := range mc.Interfaces {
			if _, ok := declared[name]; !ok {
				return nil, errors.Registration("class", mc.Name, fmt.Errorf("unknown interface %s", name))
			}
			c.Interfaces = append(c.Interfaces, name)
		}

		var clsid guid.GUID
		switch {
		case mc.CLSID != "":
			var err error
			if clsid, err = guid.Parse(mc.CLSID); err != nil {
				return nil, errors.ParseFailed("clsid of "+mc.Name, err)
			}
		case mc.GenerateCLSID:
			clsid = guid.GenerateCLSID(m.Name, mc.Name)
		}
		if !clsid.IsZero() {
			if prev, ok := clsids[clsid]; ok {
				return nil, errors.Registration("class", mc.Name, fmt.Errorf("CLSID %s already used by %s", clsid, prev))
			}
			clsids[clsid] = mc.Name
			c.CLSID = formatID(clsid)
		}
		t.Classes = append(t.Classes, c)
	}
	return t, nil
}

func (m *Manifest) iid(mi *ManifestInterface, ts typesystem.TypeSystem) (guid.GUID, error) {
	text := mi.IID
	if ts == typesystem.Raw {
		text = mi.RawIID
	}
	if text == "" {
		return guid.GenerateIID(m.Name, mi.Name, ts.Key()), nil
	}
	iid, err := guid.Parse(text)
	if err != nil {
		return guid.Zero, errors.ParseFailed(fmt.Sprintf("%s IID of %s", ts, mi.Name), err)
	}
	return iid, nil
}

// vtable lists the full vtable of mi in ts: IUnknown, then each base from
// the root down, then mi's own methods.
func (m *Manifest) vtable(mi *ManifestInterface, ts typesystem.TypeSystem, declared map[string]*ManifestInterface) ([]Method, error) {
	var chain []*ManifestInterface
	for it := mi; it != nil; {
		chain = append([]*ManifestInterface{it}, chain...)
		if it.Base == "" || it.Base == "IUnknown" {
			break
		}
		it = declared[it.Base]
	}

	var out []Method
	names := make(map[string]bool)
	add := func(owner string, mm ManifestMethod) error {
		if names[mm.Name] {
			return errors.Registration("interface", owner, fmt.Errorf("method %s declared twice in the vtable", mm.Name))
		}
		names[mm.Name] = true
		method := Method{Name: mm.Name, Index: len(out), Const: mm.Const, Returns: mm.Returns}
		if method.Returns == "" {
			method.Returns = "HRESULT"
		} else {
			method.Returns = foreignName(method.Returns, ts)
		}
		for _, p := range mm.Params {
			dir := p.Dir
			switch dir {
			case "":
				dir = "in"
			case "in", "out", "retval":
			default:
				return errors.Registration("interface", owner,
					fmt.Errorf("%s parameter %s: unknown direction %q", mm.Name, p.Name, p.Dir))
			}
			method.Params = append(method.Params, Param{Name: p.Name, Type: foreignName(p.Type, ts), Dir: dir})
		}
		out = append(out, method)
		return nil
	}

	for _, mm := range unknownMethods {
		if err := add("IUnknown", mm); err != nil {
			return nil, err
		}
	}
	for _, it := range chain {
		for _, mm := range it.Methods {
			if err := add(it.Name, mm); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func foreignName(t string, ts typesystem.TypeSystem) string {
	switch t {
	case "string":
		return ts.StringType()
	case "bool":
		return ts.BoolType()
	}
	return t
}
