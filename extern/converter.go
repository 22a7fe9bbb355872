package extern

import (
	"reflect"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/internal/layout"
	"github.com/wippyai/com-runtime/typesystem"
)

// Converter moves one Go type across the boundary in one type system.
//
// Arguments are lowered to a single machine word. Types that do not fit in a
// word (ByRef) are copied into a leased buffer and passed by address.
//
// Ownership follows COM rules:
//   - LowerArg/LiftArg borrow. Buffers made by LowerArg belong to the lease;
//     LiftArg copies what it reads and frees nothing.
//   - LowerOut hands ownership of anything it allocates to the receiver of
//     dst. LiftOut takes ownership of src's contents and frees them.
//   - FreeOut releases what a LowerOut wrote; ZeroOut clears the slot.
type Converter interface {
	GoType() reflect.Type
	ForeignName() string
	// Size is the number of bytes an out slot of this type occupies.
	Size() uintptr
	ByRef() bool

	LowerArg(v reflect.Value, al *AllocationList) (uintptr, error)
	LiftArg(w uintptr) (reflect.Value, error)
	LowerOut(v reflect.Value, dst unsafe.Pointer) error
	LiftOut(src unsafe.Pointer) (reflect.Value, error)
	FreeOut(src unsafe.Pointer)
	ZeroOut(dst unsafe.Pointer)
}

// Factory builds converters for types this package knows nothing about.
// It returns nil, nil when t is not its concern.
type Factory func(t reflect.Type, ts typesystem.TypeSystem) (Converter, error)

// Table resolves and caches converters.
type Table struct {
	layout    *layout.Calculator
	cache     sync.Map // cacheKey -> Converter
	mu        sync.RWMutex
	factories []Factory
}

type cacheKey struct {
	goType reflect.Type
	ts     typesystem.TypeSystem
}

func NewTable() *Table {
	return &Table{
		layout: layout.NewCalculator(),
	}
}

var defaultTable = NewTable()

// Default returns the process-wide table.
func Default() *Table {
	return defaultTable
}

// Lookup resolves a converter in the process-wide table.
func Lookup(t reflect.Type, ts typesystem.TypeSystem) (Converter, error) {
	return defaultTable.Lookup(t, ts)
}

// RegisterFactory adds a factory to the process-wide table.
func RegisterFactory(f Factory) {
	defaultTable.RegisterFactory(f)
}

// RegisterFactory adds f. Factories are consulted before the built-in
// converters, in registration order. Must be called before the first Lookup
// of any type f handles.
func (tb *Table) RegisterFactory(f Factory) {
	tb.mu.Lock()
	tb.factories = append(tb.factories, f)
	tb.mu.Unlock()
}

func (tb *Table) Lookup(t reflect.Type, ts typesystem.TypeSystem) (Converter, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseRegistration, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}
	if !ts.Valid() {
		return nil, errors.InvalidInput(errors.PhaseRegistration, ts.String()+" is not a type system")
	}

	key := cacheKey{goType: t, ts: ts}
	if cached, ok := tb.cache.Load(key); ok {
		return cached.(Converter), nil
	}

	c, err := tb.build(t, ts)
	if err != nil {
		return nil, err
	}

	actual, _ := tb.cache.LoadOrStore(key, c)
	Logger().Debug("converter resolved",
		zap.Stringer("go_type", t),
		zap.Stringer("type_system", ts),
		zap.String("foreign", c.ForeignName()))
	return actual.(Converter), nil
}

func (tb *Table) build(t reflect.Type, ts typesystem.TypeSystem) (Converter, error) {
	tb.mu.RLock()
	factories := tb.factories
	tb.mu.RUnlock()

	for _, f := range factories {
		c, err := f(t, ts)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}

	switch t {
	case guidType:
		return newPlainConverter(t, "GUID", tb.layout)
	case variantType:
		return &variantConverter{ts: ts}, nil
	}

	switch t.Kind() {
	case reflect.String:
		if ts == typesystem.Automation {
			return &bstrConverter{goType: t}, nil
		}
		return &cstrConverter{goType: t}, nil
	case reflect.Struct:
		return newPlainConverter(t, t.Name(), tb.layout)
	}

	if c := newScalarConverter(t, ts); c != nil {
		return c, nil
	}

	return nil, errors.New(errors.PhaseRegistration, errors.KindUnsupported).
		GoType(t.String()).
		ComType(ts.String()).
		Detail("no conversion for Go type %s", t).
		Build()
}

var (
	guidType    = reflect.TypeFor[guid.GUID]()
	variantType = reflect.TypeFor[Variant]()
)
