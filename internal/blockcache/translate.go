package blockcache

import "github.com/arlobrennan/chip8x/internal/chip8"

// MaxBlockInstructions caps runaway block translation, per spec.md
// §4.3: "A configurable maximum block length (e.g., 128 instructions)
// caps runaway blocks."
const MaxBlockInstructions = 128

// Decode reads and decodes instructions starting at startPC until one
// terminates the block (per chip8.Instruction.Terminates, which
// implements spec.md §4.3's termination rule) or MaxBlockInstructions
// is reached. It is shared by every cached/JIT backend's translator so
// block boundaries are identical across backends regardless of
// payload format.
func Decode(m *chip8.Machine, startPC uint16) (insts []chip8.Instruction, term TerminatorKind, length uint16, err error) {
	pc := startPC
	for len(insts) < MaxBlockInstructions {
		word := m.FetchWord(pc)
		inst, decErr := chip8.Decode(word, pc)
		if decErr != nil {
			if len(insts) == 0 {
				return nil, 0, 0, decErr
			}
			// a prior non-terminating instruction already extended
			// coverage; stop the block here and let the invalid
			// opcode surface when it is actually reached.
			break
		}
		insts = append(insts, inst)
		pc = (pc + 2) & 0x0FFF

		if inst.Terminates() {
			return insts, terminatorFor(inst), pc - startPC, nil
		}
	}
	return insts, TermMaxLength, pc - startPC, nil
}

func terminatorFor(inst chip8.Instruction) TerminatorKind {
	switch inst.Op {
	case chip8.OpJump, chip8.OpJumpV0:
		return TermJump
	case chip8.OpCall:
		return TermCall
	case chip8.OpReturn:
		return TermReturn
	case chip8.OpWaitKey:
		return TermWaitKey
	default:
		return TermSkip
	}
}
