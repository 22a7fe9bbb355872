// Package alloc implements the foreign heap: memory whose address is handed
// across the ABI boundary as an integer.
//
// Blocks are Go allocations that the heap keeps reachable until Free, so
// their addresses stay valid while foreign code holds them. Every block is
// 8-byte aligned. Freeing an address the heap did not hand out panics: it
// means a double free or a pointer from somewhere else, and continuing would
// corrupt ownership bookkeeping.
package alloc

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"fortio.org/safecast"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
)

// MaxAlloc bounds a single allocation: the largest size an int32 holds, so
// lengths crossing the ABI as u32 always fit.
const MaxAlloc = math.MaxInt32

type block struct {
	buf  []uint64
	size uintptr
}

// Heap is a thread-safe foreign heap.
type Heap struct {
	blocks map[uintptr]block
	bytes  uintptr
	mu     sync.Mutex
}

var _ comruntime.Allocator = (*Heap)(nil)
var _ comruntime.StatsReporter = (*Heap)(nil)

// New creates an empty heap.
func New() *Heap {
	return &Heap{blocks: make(map[uintptr]block)}
}

var defaultHeap = New()

// Default returns the process-wide heap.
func Default() *Heap {
	return defaultHeap
}

// Alloc returns the address of a zeroed block of at least size bytes.
// A zero size still yields a distinct non-null address.
func (h *Heap) Alloc(size uintptr) (uintptr, error) {
	if _, err := safecast.Conv[int32](size); err != nil {
		return 0, &errors.Error{
			Phase:  errors.PhaseRuntime,
			Kind:   errors.KindAllocation,
			Cause:  err,
			Value:  size,
			Detail: fmt.Sprintf("failed to allocate %d bytes: limit is %d", size, MaxAlloc),
		}
	}
	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}
	buf := make([]uint64, words)
	ptr := uintptr(unsafe.Pointer(&buf[0]))

	h.mu.Lock()
	h.blocks[ptr] = block{buf: buf, size: size}
	h.bytes += size
	h.mu.Unlock()
	return ptr, nil
}

// Free releases a block. Null is ignored.
func (h *Heap) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}
	h.mu.Lock()
	b, ok := h.blocks[ptr]
	if ok {
		delete(h.blocks, ptr)
		h.bytes -= b.size
	}
	h.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("alloc: free of unknown pointer %#x", ptr))
	}
}

// Size returns the requested size of a live block.
func (h *Heap) Size(ptr uintptr) (uintptr, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[ptr]
	return b.size, ok
}

// Owns reports whether ptr is the start of a live block.
func (h *Heap) Owns(ptr uintptr) bool {
	_, ok := h.Size(ptr)
	return ok
}

// Stats reports the live block count and their total requested size.
func (h *Heap) Stats() comruntime.MemoryStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return comruntime.MemoryStats{Allocations: len(h.blocks), Bytes: h.bytes}
}
