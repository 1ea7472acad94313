// Package backend declares the common contract every execution
// strategy (C3 interpreter, C5 cached tiers, C6 JIT) implements so the
// controller (C8) can swap between them without special-casing any one
// of them.
package backend

import (
	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

// Backend is one of the four execution strategies selectable at
// runtime (spec.md §1, §4.6). cache is nil for backends that need no
// translation cache (the plain interpreter); every cached/JIT backend
// receives the controller-owned *blockcache.Cache it should install
// blocks into and look blocks up from.
type Backend interface {
	// Name identifies the backend for logs and the host's window
	// title. The CLI's --backend flag uses its own fixed names.
	Name() string

	// RunQuantum executes guest instructions against m until maxInstrs
	// is reached, stopping early if the blocking key wait (Fx0A)
	// engages or a fatal error occurs. It returns how many instructions
	// actually ran. The interpreter stops at exactly maxInstrs; the
	// cached and JIT backends check the budget only between blocks, so
	// a quantum can run past maxInstrs to the end of the current block.
	RunQuantum(m *chip8.Machine, cache *blockcache.Cache, maxInstrs int) (executed int, err error)

	// StepOne executes exactly one guest instruction, per spec.md
	// §4.6's controller.step contract.
	StepOne(m *chip8.Machine, cache *blockcache.Cache) error
}
