package extern

import (
	"sync"
	"sync/atomic"
	"unsafe"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/alloc"
)

type Allocator = comruntime.Allocator

var heap atomic.Pointer[Allocator]

// Heap returns the allocator every foreign buffer comes from. Buffers are
// freed by whoever receives ownership, so the whole process shares one.
func Heap() Allocator {
	if h := heap.Load(); h != nil {
		return *h
	}
	return alloc.Default()
}

// SetHeap replaces the process allocator. Must be called before any buffer
// is handed out.
func SetHeap(a Allocator) {
	if a == nil {
		heap.Store(nil)
		return
	}
	heap.Store(&a)
}

// AllocationList is the lease behind lowered input arguments: every
// temporary buffer created while lowering a call's inputs is recorded here
// and freed when the call returns, so no foreign view of a Go value outlives
// the call.
type AllocationList struct {
	allocations []uintptr
	cleanups    []func()
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]uintptr, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small lists to prevent memory bloat
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(ptr uintptr) {
	al.allocations = append(al.allocations, ptr)
}

// Alloc allocates from the process heap and records the block.
func (al *AllocationList) Alloc(size uintptr) (uintptr, error) {
	ptr, err := Heap().Alloc(size)
	if err != nil {
		return 0, err
	}
	al.Add(ptr)
	return ptr, nil
}

// OnFree registers fn to run when the list is freed, before any block is
// released. Used for references that must be dropped after the call.
func (al *AllocationList) OnFree(fn func()) {
	al.cleanups = append(al.cleanups, fn)
}

func (al *AllocationList) Free(allocator Allocator) {
	for i := len(al.cleanups) - 1; i >= 0; i-- {
		al.cleanups[i]()
	}
	al.cleanups = al.cleanups[:0]
	if allocator == nil {
		return
	}
	for _, ptr := range al.allocations {
		if ptr != 0 {
			allocator.Free(ptr)
		}
	}
	al.Reset()
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
	clear(al.cleanups)
	al.cleanups = al.cleanups[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}

// Ptr views a foreign address as a pointer.
func Ptr(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet // foreign addresses are pinned heap blocks
}

// Addr returns the integer address of p.
func Addr(p unsafe.Pointer) uintptr {
	return uintptr(p)
}

func readWord(p unsafe.Pointer, size uintptr) uintptr {
	switch size {
	case 1:
		return uintptr(*(*uint8)(p))
	case 2:
		return uintptr(*(*uint16)(p))
	case 4:
		return uintptr(*(*uint32)(p))
	default:
		return uintptr(*(*uint64)(p))
	}
}

func writeWord(p unsafe.Pointer, size uintptr, w uintptr) {
	switch size {
	case 1:
		*(*uint8)(p) = uint8(w)
	case 2:
		*(*uint16)(p) = uint16(w)
	case 4:
		*(*uint32)(p) = uint32(w)
	default:
		*(*uint64)(p) = uint64(w)
	}
}

func zeroBytes(p unsafe.Pointer, size uintptr) {
	clear(unsafe.Slice((*byte)(p), size))
}
