//go:build amd64

package jit

import "unsafe"

// unsafeSliceData returns the address of a byte slice's backing
// array. The returned address is handed to raw machine code as a
// callable instruction pointer, which the Go compiler cannot check;
// the struct base address that code uses for direct field access is
// dispatcher.go's unsafe.Pointer(m), combined with the offsets in
// layout.go.
func unsafeSliceData(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// flushInstructionCache is a no-op on amd64: the architecture keeps
// the instruction cache coherent with stores through the same linear
// address without any explicit flush instruction. The call site in
// arena.go is kept so the contract reads the same if this package is
// ever ported to an architecture that needs one (it currently is not;
// see the Non-goals in SPEC_FULL.md).
func flushInstructionCache(_ []byte) {}
