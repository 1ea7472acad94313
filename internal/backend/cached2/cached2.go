// Package cached2 implements Tier 2 of the cached-interpreter backend
// family (C5): direct-threaded dispatch. Each decoded slot in a block
// carries a function pointer resolved once at translate time plus its
// pre-extracted argument bundle, so the inner loop never re-switches
// on the opcode (spec.md §4.4).
package cached2

import (
	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

// ThreadedOp is one threaded-dispatch slot: a resolved handler plus
// the instruction it closes over and the PC it was fetched from.
type ThreadedOp struct {
	Fn   opHandler
	Inst chip8.Instruction
	PC   uint16
}

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "cached-tier2-threaded" }

// BuildOps decodes one block's worth of instructions starting at
// startPC and resolves each to its threaded handler. Exported so
// cached3's peephole pass can run over the same op stream before it
// is wrapped into a Block.
func BuildOps(m *chip8.Machine, startPC uint16) (ops []ThreadedOp, term blockcache.TerminatorKind, length uint16, err error) {
	insts, term, length, err := blockcache.Decode(m, startPC)
	if err != nil {
		return nil, 0, 0, err
	}

	ops = make([]ThreadedOp, len(insts))
	pc := startPC
	for i, inst := range insts {
		ops[i] = ThreadedOp{Fn: handlerTable[inst.Op], Inst: inst, PC: pc}
		pc = (pc + 2) & 0x0FFF
	}
	return ops, term, length, nil
}

func translate(m *chip8.Machine, startPC uint16) (*blockcache.Block, error) {
	ops, term, length, err := BuildOps(m, startPC)
	if err != nil {
		return nil, err
	}

	return &blockcache.Block{
		StartPC: startPC,
		Length:  length,
		Term:    term,
		Payload: ops,
	}, nil
}

func runBlock(m *chip8.Machine, block *blockcache.Block) (int, error) {
	ops := block.Payload.([]ThreadedOp)
	for i, op := range ops {
		next, err := op.Fn(m, op.Inst, op.PC)
		if err != nil {
			m.PC = op.PC
			return i, err
		}
		m.PC = next
		if m.WaitingForKey {
			return i + 1, nil
		}
	}
	return len(ops), nil
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
	fn := handlerTable[inst.Op]
	next, err := fn(m, inst, pc)
	if err != nil {
		return err
	}
	m.PC = next
	return nil
}
