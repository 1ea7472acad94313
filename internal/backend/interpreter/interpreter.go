// Package interpreter implements the direct interpreter backend (C3):
// fetch, decode, execute exactly one opcode per step against the
// shared Machine, never allocating on the hot path. It is the
// reference semantics and the oracle the cached/JIT backends are
// checked against.
package interpreter

import (
	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

// Backend is the direct interpreter. It needs no block cache; the
// cache parameter on its Backend-interface methods is accepted only
// to satisfy backend.Backend and is always ignored.
type Backend struct{}

// New returns a ready-to-use interpreter backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "interpreter" }

// step performs exactly one fetch/decode/execute cycle, handling the
// Fx0A blocking wait per spec.md §4.1/§4.5: while WaitingForKey is
// set, no instruction is fetched — only the key-release edge is
// checked.
func step(m *chip8.Machine) error {
	if m.WaitingForKey {
		m.AnyKeyReleaseEdge()
		return nil
	}

	word := m.FetchWord(m.PC)
	inst, err := chip8.Decode(word, m.PC)
	if err != nil {
		return err
	}
	next, err := chip8.Apply(m, inst, m.PC)
	if err != nil {
		return err
	}
	m.PC = next
	return nil
}

func (*Backend) RunQuantum(m *chip8.Machine, _ *blockcache.Cache, maxInstrs int) (int, error) {
	blockcache.Wire(m, nil)
	for i := 0; i < maxInstrs; i++ {
		if err := step(m); err != nil {
			return i, err
		}
		if m.WaitingForKey {
			return i + 1, nil
		}
	}
	return maxInstrs, nil
}

func (*Backend) StepOne(m *chip8.Machine, _ *blockcache.Cache) error {
	blockcache.Wire(m, nil)
	return step(m)
}
