//go:build amd64

package jit

import "unsafe"

// callBlock enters a compiled block at code with the pinned state
// register (R15) already loaded from state, and returns whatever the
// block left in its result register as nextPC. Implemented in
// call_amd64.s; this declaration carries no body, matching how every
// other Go-asm-backed leaf primitive in this package is split between
// a Go signature and a .s implementation.
func callBlock(code uintptr, state unsafe.Pointer) uint32

// jitHelperTrampoline is the address every CALL instruction emitted by
// Emitter targets (see emitter.go's emitHelperCall). It unpacks its
// four stack-passed arguments into the shape asmHelperEntry expects
// and copies its two results back out, bridging the raw machine code
// call site and an ordinary Go function call.
func jitHelperTrampoline(id, state, word, pc uint64) (nextPC, errFlag uint64)

// trampolineAddr returns jitHelperTrampoline's entry address as a
// plain integer so the emitter can bake it into a MOVABS immediate
// that the block then CALLs through a register (emitter.go's
// emitHelperCall). Implemented in assembly (it is
// just a MOVQ of the symbol's address) since that is the stable way
// to get a real code pointer out of an ABI0 function, unlike taking
// the address of a Go func value.
func trampolineAddr() uintptr
