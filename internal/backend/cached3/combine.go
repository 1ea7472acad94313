// Package cached3 implements Tier 3 of the cached-interpreter backend
// family (C5): a super-operator / specialized-threaded payload built
// by peephole-combining common adjacent pairs from the Tier 2 threaded
// stream, per spec.md §4.4. The block cache itself is unchanged from
// Tier 1/2; only payload construction and the handler set differ.
package cached3

import (
	"github.com/arlobrennan/chip8x/internal/backend/cached2"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

// SuperOp is one Tier 3 dispatch slot. Ops holds the one or more
// original decoded instructions this slot represents; Fn implements
// their combined effect in a single call.
type SuperOp struct {
	Fn  superHandler
	Ops []cached2.ThreadedOp
}

type superHandler func(m *chip8.Machine, ops []cached2.ThreadedOp) (nextPC uint16, err error)

// passthrough runs ops[0]'s original Tier 2 handler unchanged; used
// for every instruction peephole combining found no partner for.
func passthrough(m *chip8.Machine, ops []cached2.ThreadedOp) (uint16, error) {
	op := ops[0]
	return op.Fn(m, op.Inst, op.PC)
}

// loadThenDraw fuses "6xkk followed by Dxyn" (spec.md §4.4's example):
// load the immediate into Vx, then draw, without returning to the
// dispatch loop or recomputing a fallthrough PC in between.
func loadThenDraw(m *chip8.Machine, ops []cached2.ThreadedOp) (uint16, error) {
	load, draw := ops[0], ops[1]
	m.V[load.Inst.X] = load.Inst.KK
	next, err := chip8.Apply(m, draw.Inst, draw.PC)
	if err != nil {
		return draw.PC, err
	}
	return next, nil
}

// storeRunsFused collapses a run of consecutive Fx55 stores (spec.md
// §4.4's other example) into one handler that performs every store
// without an intervening PC/bookkeeping round trip per instruction.
func storeRunsFused(m *chip8.Machine, ops []cached2.ThreadedOp) (uint16, error) {
	var next uint16
	for _, op := range ops {
		var err error
		next, err = op.Fn(m, op.Inst, op.PC)
		if err != nil {
			return op.PC, err
		}
	}
	return next, nil
}

// Combine runs the peephole pass over a fully-decoded Tier 2 op
// stream and returns the fused Tier 3 payload.
func Combine(ops []cached2.ThreadedOp) []SuperOp {
	out := make([]SuperOp, 0, len(ops))

	for i := 0; i < len(ops); {
		if i+1 < len(ops) && isLoadImm(ops[i]) && isDraw(ops[i+1]) && ops[i].Inst.X == ops[i+1].Inst.X {
			out = append(out, SuperOp{Fn: loadThenDraw, Ops: ops[i : i+2 : i+2]})
			i += 2
			continue
		}

		if isStoreRegs(ops[i]) {
			j := i + 1
			for j < len(ops) && isStoreRegs(ops[j]) {
				j++
			}
			if j-i > 1 {
				out = append(out, SuperOp{Fn: storeRunsFused, Ops: ops[i:j:j]})
				i = j
				continue
			}
		}

		out = append(out, SuperOp{Fn: passthrough, Ops: ops[i : i+1 : i+1]})
		i++
	}

	return out
}

func isLoadImm(op cached2.ThreadedOp) bool   { return op.Inst.Op == chip8.OpLoadImm }
func isDraw(op cached2.ThreadedOp) bool      { return op.Inst.Op == chip8.OpDraw }
func isStoreRegs(op cached2.ThreadedOp) bool { return op.Inst.Op == chip8.OpStoreRegs }
