// Package cached1 implements Tier 1 of the cached-interpreter backend
// family (C5): blocks are pre-decoded into a []chip8.Instruction and
// replayed by invoking the same per-opcode handler (chip8.Apply) that
// the direct interpreter uses, per spec.md §4.4 — "Win over C3: the
// decode cost is paid once per block per (re)translation."
package cached1

import (
	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "cached-tier1" }

func translate(m *chip8.Machine, startPC uint16) (*blockcache.Block, error) {
	insts, term, length, err := blockcache.Decode(m, startPC)
	if err != nil {
		return nil, err
	}
	return &blockcache.Block{
		StartPC: startPC,
		Length:  length,
		Term:    term,
		Payload: insts,
	}, nil
}

// runBlock replays every decoded instruction in block against m and
// returns how many ran before either finishing the block, the
// blocking key wait engaged, or a fatal error surfaced.
func runBlock(m *chip8.Machine, block *blockcache.Block) (int, error) {
	insts := block.Payload.([]chip8.Instruction)
	pc := m.PC
	for i, inst := range insts {
		next, err := chip8.Apply(m, inst, pc)
		if err != nil {
			m.PC = pc
			return i, err
		}
		m.PC = next
		pc = next
		if m.WaitingForKey {
			return i + 1, nil
		}
	}
	return len(insts), nil
}

func (*Backend) RunQuantum(m *chip8.Machine, cache *blockcache.Cache, maxInstrs int) (int, error) {
	blockcache.Wire(m, cache)
	executed := 0
	for executed < maxInstrs {
		if m.WaitingForKey {
			m.AnyKeyReleaseEdge()
			return executed + 1, nil
		}

		pc := m.PC
		handle, ok := cache.Lookup(pc)
		var block *blockcache.Block
		if ok {
			block = handle.Block()
		}
		if block == nil {
			var err error
			block, err = translate(m, pc)
			if err != nil {
				return executed, err
			}
			cache.Install(block)
		}

		ran, err := runBlock(m, block)
		executed += ran
		if err != nil {
			return executed, err
		}
		if m.WaitingForKey {
			return executed, nil
		}
	}
	return executed, nil
}

// StepOne executes exactly one instruction via the same handlers a
// full block would use, without installing anything into cache — per
// spec.md §4.6, equivalent to invoking the interpreter for this one
// step. It still wires cache invalidation: a self-modifying write
// here must evict any block the last RunQuantum installed just as
// surely as one mid-block would.
func (*Backend) StepOne(m *chip8.Machine, cache *blockcache.Cache) error {
	blockcache.Wire(m, cache)
	if m.WaitingForKey {
		m.AnyKeyReleaseEdge()
		return nil
	}

	pc := m.PC
	word := m.FetchWord(pc)
	inst, err := chip8.Decode(word, pc)
	if err != nil {
		return err
	}
	next, err := chip8.Apply(m, inst, pc)
	if err != nil {
		return err
	}
	m.PC = next
	return nil
}
