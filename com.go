package comruntime

// Allocator manages foreign memory: buffers whose address crosses the ABI
// boundary as a plain integer (BSTRs, C strings, out-parameter slots).
// Whoever receives ownership of such a buffer frees it through the same
// Allocator.
type Allocator interface {
	Alloc(size uintptr) (uintptr, error)
	Free(ptr uintptr)
}

// MemoryStats reports live foreign allocations.
type MemoryStats struct {
	Allocations int
	Bytes       uintptr
}

// StatsReporter is implemented by allocators that track live allocations.
type StatsReporter interface {
	Stats() MemoryStats
}
