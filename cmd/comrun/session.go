package main

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/com-runtime/com"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/typesystem"
)

// methodInfo is a callable method of one of the class's interfaces.
type methodInfo struct {
	itf    *com.Interface
	method *model.Method
}

func (mi methodInfo) name() string {
	return mi.itf.Name() + "." + mi.method.Name
}

// methods lists every method of c's interfaces past IUnknown's entries.
func methods(lib *com.Library, c *com.Class) []methodInfo {
	var out []methodInfo
	for _, d := range c.Decl.Interfaces {
		rt, ok := lib.Interface(d.Name)
		if !ok {
			continue
		}
		for _, m := range rt.Methods()[len(model.IUnknown.Methods):] {
			out = append(out, methodInfo{itf: rt, method: m})
		}
	}
	return out
}

// session owns one instance of a class, created through its class factory
// in a single type system, and the interface pointers queried from it.
type session struct {
	lib   *com.Library
	class *com.Class
	ts    typesystem.TypeSystem
	ptrs  map[*com.Interface]uintptr
}

func newSession(lib *com.Library, className string, ts typesystem.TypeSystem) (*session, error) {
	c, ok := lib.Class(className)
	if !ok {
		return nil, errors.NotFound(errors.PhaseFactory, "class", className)
	}
	return &session{lib: lib, class: c, ts: ts, ptrs: make(map[*com.Interface]uintptr)}, nil
}

// pointer returns the pointer for itf, creating the instance on first use
// and querying further interfaces from it after that.
func (s *session) pointer(itf *com.Interface) (uintptr, error) {
	if p, ok := s.ptrs[itf]; ok {
		return p, nil
	}
	iid := itf.IID(s.ts)

	var (
		ptr uintptr
		err error
	)
	if len(s.ptrs) == 0 {
		ptr, err = s.create(iid)
	} else {
		for other, p := range s.ptrs {
			ptr, err = s.invoker(other, p).queryInterface(iid)
			break
		}
	}
	if err != nil {
		return 0, err
	}
	s.ptrs[itf] = ptr
	return ptr, nil
}

func (s *session) create(iid guid.GUID) (uintptr, error) {
	clsid, ok := s.class.CLSID()
	if !ok {
		return 0, fmt.Errorf("class %s has no CLSID", s.class.Name())
	}
	fp, err := s.lib.GetClassObject(clsid, com.IID_IClassFactory)
	if err != nil {
		return 0, err
	}
	factory := com.Attach(com.Wrap[com.ClassFactory](typesystem.Automation, fp))
	defer factory.Release()

	cf, err := factory.Get()
	if err != nil {
		return 0, err
	}
	return cf.CreateInstance(0, iid)
}

type boundInvoker struct{ *com.Invoker }

func (s *session) invoker(itf *com.Interface, ptr uintptr) boundInvoker {
	var ptrs [typesystem.Count]uintptr
	ptrs[s.ts] = ptr
	return boundInvoker{com.NewInvoker(itf, ptrs)}
}

func (b boundInvoker) queryInterface(iid guid.GUID) (uintptr, error) {
	out, err := b.Call("QueryInterface", iid)
	if err != nil {
		return 0, err
	}
	return out[0].(uintptr), nil
}

// call parses the text arguments for mi's inputs and invokes it.
func (s *session) call(mi methodInfo, args []string) (string, error) {
	inputs := mi.method.Inputs()
	if len(args) != len(inputs) {
		return "", fmt.Errorf("%s takes %d arguments, got %d", mi.name(), len(inputs), len(args))
	}
	vals := make([]any, len(args))
	for i, p := range inputs {
		v, err := parseArg(args[i], p.Type)
		if err != nil {
			return "", fmt.Errorf("argument %s: %w", p.Name, err)
		}
		vals[i] = v
	}

	ptr, err := s.pointer(mi.itf)
	if err != nil {
		return "", err
	}
	out, err := s.invoker(mi.itf, ptr).Call(mi.method.Name, vals...)
	if err != nil {
		return "", err
	}
	return formatResults(out), nil
}

// Close releases every interface pointer the session holds.
func (s *session) Close() {
	for itf, p := range s.ptrs {
		s.invoker(itf, p).Call("Release")
	}
	clear(s.ptrs)
}

func parseArg(text string, t reflect.Type) (any, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(text)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 0, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(text, 0, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	default:
		if t == reflect.TypeFor[guid.GUID]() {
			return guid.Parse(text)
		}
		return nil, fmt.Errorf("cannot enter a %s on the command line", t)
	}
	return v.Interface(), nil
}

func formatResults(out []any) string {
	if len(out) == 0 {
		return "ok"
	}
	parts := make([]string, len(out))
	for i, v := range out {
		if s, ok := v.(string); ok {
			parts[i] = strconv.Quote(s)
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func paramType(t reflect.Type, ts typesystem.TypeSystem) string {
	if t.Kind() == reflect.String {
		return ts.StringType()
	}
	if t.Kind() == reflect.Bool {
		return ts.BoolType()
	}
	return t.String()
}

// signature renders mi the way foreign code declares it.
func signature(mi methodInfo, ts typesystem.TypeSystem) string {
	var params []string
	for _, p := range mi.method.Params {
		prefix := ""
		if p.Dir != model.In {
			prefix = "[" + p.Dir.String() + "] "
		}
		params = append(params, prefix+p.Name+" "+paramType(p.Type, ts))
	}
	ret := "HRESULT"
	if mi.method.Infallible {
		ret = "void"
		if mi.method.Return != nil {
			ret = paramType(mi.method.Return, ts)
		}
	}
	return fmt.Sprintf("%s %s(%s)", ret, mi.name(), strings.Join(params, ", "))
}
