package cached3

import (
	"github.com/arlobrennan/chip8x/internal/backend/cached2"
	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "cached-tier3-superop" }

func translate(m *chip8.Machine, startPC uint16) (*blockcache.Block, error) {
	ops, term, length, err := cached2.BuildOps(m, startPC)
	if err != nil {
		return nil, err
	}

	return &blockcache.Block{
		StartPC: startPC,
		Length:  length,
		Term:    term,
		Payload: Combine(ops),
	}, nil
}

// runBlock dispatches each SuperOp in turn, accounting executed
// instruction count as the number of original Chip8 instructions each
// fused slot represents.
func runBlock(m *chip8.Machine, block *blockcache.Block) (int, error) {
	supers := block.Payload.([]SuperOp)
	executed := 0
	for _, sop := range supers {
		next, err := sop.Fn(m, sop.Ops)
		if err != nil {
			m.PC = sop.Ops[0].PC
			return executed, err
		}
		m.PC = next
		executed += len(sop.Ops)
		if m.WaitingForKey {
			return executed, nil
		}
	}
	return executed, nil
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
