//go:build amd64

// Package jit implements the dynamic binary translator backend (C6):
// it translates a guest basic block into x86_64 machine code, installs
// it into an executable arena, and runs it from there (spec.md §4.5).
//
// The arena's raw byte emission is grounded on other_examples'
// tinyrange-rtg backend_linux_x64.go (emitByte/emitBytes/emitU32,
// explicit register constants, direct mmap-via-syscall style) and its
// runner/bus split is grounded on IntuitionEngine's CPUX86Runner /
// X86BusAdapter separation: Backend (dispatcher.go) plays the runner's role
// (owns the arena, looks up/installs blocks, calls into them) while
// Emitter plays the pure code-generation role.
package jit

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// DefaultArenaSize is deliberately small so arena-exhaustion (spec.md
// §8 scenario 6) is easy to reach in tests without translating
// thousands of blocks first.
const DefaultArenaSize = 64 * 1024

// Arena is the executable arena (spec.md §3): a bump allocator over a
// single mmap'd region, W^X-compliant via permission toggling rather
// than a writable/executable alias (spec.md §4.5/§9 allow either).
type Arena struct {
	mem        []byte
	pos        int
	executable bool
}

// NewArena mmaps a writable, non-executable region of size bytes.
func NewArena(size int) (*Arena, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap jit arena: %w", err)
	}
	return &Arena{mem: mem}, nil
}

// BeginEmit switches the arena to writable (non-executable) so new
// code can be appended. It is a no-op if the arena is already
// writable.
func (a *Arena) BeginEmit() error {
	if !a.executable {
		return nil
	}
	if err := unix.Mprotect(a.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("mprotect jit arena writable: %w", err)
	}
	a.executable = false
	return nil
}

// Write appends code to the arena and returns the byte offset it was
// placed at. It returns ErrOutOfMemoryForJIT if the
// arena has no room; the dispatcher recovers by flushing and retrying
// once (spec.md §7).
func (a *Arena) Write(code []byte) (offset int, err error) {
	if a.pos+len(code) > len(a.mem) {
		return 0, chip8.ErrOutOfMemoryForJIT
	}
	offset = a.pos
	copy(a.mem[offset:], code)
	a.pos += len(code)
	return offset, nil
}

// FinishEmit switches the arena to executable (non-writable) so
// installed blocks can run. On amd64, flushing the instruction cache
// after emission is a no-op (spec.md §4.5); this call is still made
// explicitly so the contract holds if this package is ever ported.
func (a *Arena) FinishEmit() error {
	if a.executable {
		return nil
	}
	if err := unix.Mprotect(a.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("mprotect jit arena executable: %w", err)
	}
	a.executable = true
	flushInstructionCache(a.mem)
	return nil
}

// Entry returns a pointer to the code at offset within the arena. The
// caller must have called FinishEmit first.
func (a *Arena) Entry(offset int) uintptr {
	return uintptr(unsafeSliceData(a.mem)) + uintptr(offset)
}

// Reset discards every emitted block and re-mmaps a fresh writable
// region, per spec.md §4.3's "flush_all... reset the executable arena
// if JIT is active" and §3's "when exhausted, the arena is flushed
// entirely."
func (a *Arena) Reset() error {
	if err := unix.Munmap(a.mem); err != nil {
		return fmt.Errorf("munmap jit arena: %w", err)
	}
	fresh, err := NewArena(len(a.mem))
	if err != nil {
		return err
	}
	*a = *fresh
	return nil
}

// Close releases the arena's mapping entirely; called on backend
// switch away from the JIT and on controller shutdown.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
