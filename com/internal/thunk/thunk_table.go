//go:build purego || !(amd64 || arm64) || (!cgo && !windows)

package thunk

import (
	"fmt"
	"unsafe"
)

const backend = "table"

// cells keeps every minted address reachable, and so unique, for the life
// of the process.
var cells []*byte

func mint(*entry) (uintptr, error) {
	cell := new(byte)
	cells = append(cells, cell)
	return uintptr(unsafe.Pointer(cell)), nil
}

// call jumps through the table. An unregistered address is the moral
// equivalent of a wild pointer and panics.
func call(addr uintptr, _ Sig, args []uintptr) uintptr {
	mu.RLock()
	e, ok := byAddr[addr]
	mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("thunk: call through unregistered code address %#x", addr))
	}
	return e.fn(args)
}
