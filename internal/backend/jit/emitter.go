//go:build amd64

package jit

import "github.com/arlobrennan/chip8x/internal/chip8"

// emitBlock compiles one already-decoded Chip8 block into x86_64
// machine code. Every instruction but the last always falls through;
// the last is the only one that produces a result. It is a terminator
// unless blockcache.Decode stopped at MaxBlockInstructions or before
// an undecodable word, in which case emitTerminator still routes it
// through a helper call (see helperIDFor).
//
// Simple register/memory arithmetic is emitted inline, directly
// against the pinned *chip8.Machine's fields; anything branchy,
// variable-length, stack-touching, or capable of raising an
// architectural error is compiled to a call into a Go-implemented
// runtime helper instead (spec.md §4.5's own suggestion — "doing
// those well in raw asm earns little"). In body position helperIDFor
// names exactly which ops take the helper path; everything else goes
// through emitInline.
func emitBlock(insts []chip8.Instruction, startPC uint16) []byte {
	e := &Emitter{}
	pc := startPC
	for i, inst := range insts {
		last := i == len(insts)-1
		if last {
			emitTerminator(e, inst, pc)
		} else {
			emitBody(e, inst, pc)
		}
		pc = (pc + 2) & 0x0FFF
	}
	return e.buf
}

func emitBody(e *Emitter, inst chip8.Instruction, pc uint16) {
	if id, ok := helperIDFor[inst.Op]; ok {
		emitHelperCall(e, id, inst.Word, pc)
		return
	}
	emitInline(e, inst)
}

// emitTerminator always leaves the block's result (nextPC) in EAX and
// ends the function with RET; emitHelperCall already does the former
// for every op it handles.
func emitTerminator(e *Emitter, inst chip8.Instruction, pc uint16) {
	switch inst.Op {
	case chip8.OpJump:
		e.movR32Imm32(REG_RAX, uint32(inst.NNN))
	case chip8.OpJumpV0:
		e.movzxR32R8Mem(REG_RAX, stateReg, fieldOffset.V)
		e.addR32Imm32(REG_RAX, uint32(inst.NNN))
		e.andR32Imm32(REG_RAX, 0x0FFF)
	default:
		emitHelperCall(e, helperIDFor[inst.Op], inst.Word, pc)
	}
	e.ret()
}

// emitHelperCall sets up the 48-byte argument/return frame
// jitHelperTrampoline expects at a fixed stack offset (see
// call_amd64.s), calls it through an absolute address loaded into a
// scratch register (R14) rather than a rel32 CALL, since this code's
// own eventual address in the arena is not known until after it is
// written there, and leaves the helper's nextPC result in EAX.
func emitHelperCall(e *Emitter, id helperID, word uint16, pc uint16) {
	e.subRSPImm32(48)
	e.storeRSPImm64Zero(0, uint32(id))
	e.storeRSPReg64(8, stateReg)
	e.storeRSPImm64Zero(16, uint32(word))
	e.storeRSPImm64Zero(24, uint32(pc))
	e.movR64Imm64(REG_R14, uint64(trampolineAddr()))
	e.callR64(REG_R14)
	e.loadRSPReg32(REG_RAX, 32)
	e.addRSPImm32(48)
}

// emitInline handles every op that is pure register/memory arithmetic
// with no possible error and no variable-length loop, operating
// directly on the Machine fields at their unsafe.Offsetof-derived
// displacements from the pinned state register.
func emitInline(e *Emitter, inst chip8.Instruction) {
	vx := fieldOffset.V + int32(inst.X)
	vy := fieldOffset.V + int32(inst.Y)
	vf := fieldOffset.V + 0xF

	switch inst.Op {
	case chip8.OpLoadImm:
		e.storeMemImm8(stateReg, vx, inst.KK)

	case chip8.OpAddImm:
		e.aluMemImm8(0x0, stateReg, vx, inst.KK) // ADD r/m8, imm8

	case chip8.OpMovReg:
		e.loadR8Mem(REG_RAX, stateReg, vy)
		e.storeMemR8(stateReg, vx, REG_RAX)

	case chip8.OpOr, chip8.OpAnd, chip8.OpXor:
		e.loadR8Mem(REG_RAX, stateReg, vx)
		e.loadR8Mem(REG_RCX, stateReg, vy)
		var opcode byte
		switch inst.Op {
		case chip8.OpOr:
			opcode = 0x08
		case chip8.OpAnd:
			opcode = 0x20
		case chip8.OpXor:
			opcode = 0x30
		}
		e.aluR8R8(opcode, REG_RAX, REG_RCX)
		e.storeMemR8(stateReg, vx, REG_RAX)
		e.storeMemImm8(stateReg, vf, 0) // classic quirk: VF reset on logic ops

	case chip8.OpAddReg:
		e.loadR8Mem(REG_RAX, stateReg, vx)
		e.loadR8Mem(REG_RCX, stateReg, vy)
		e.aluR8R8(0x00, REG_RAX, REG_RCX) // ADD AL, CL; CF = unsigned overflow
		e.storeMemR8(stateReg, vx, REG_RAX)
		e.setcc(ccCarry, REG_RCX)
		e.storeMemR8(stateReg, vf, REG_RCX)

	case chip8.OpSubReg:
		e.loadR8Mem(REG_RAX, stateReg, vx)
		e.loadR8Mem(REG_RCX, stateReg, vy)
		e.aluR8R8(0x28, REG_RAX, REG_RCX) // SUB AL, CL; CF = borrow
		e.storeMemR8(stateReg, vx, REG_RAX)
		e.setcc(ccNotCarry, REG_RDX) // VF = !borrow = Vx >= Vy
		e.storeMemR8(stateReg, vf, REG_RDX)

	case chip8.OpSubnReg:
		e.loadR8Mem(REG_RCX, stateReg, vx) // save original Vx before it is overwritten
		e.loadR8Mem(REG_RAX, stateReg, vy)
		e.aluR8R8(0x28, REG_RAX, REG_RCX) // AL = Vy - Vx; CF = borrow
		e.storeMemR8(stateReg, vx, REG_RAX)
		e.setcc(ccNotCarry, REG_RDX) // VF = !borrow = Vy >= Vx
		e.storeMemR8(stateReg, vf, REG_RDX)

	case chip8.OpShr:
		e.loadR8Mem(REG_RAX, stateReg, vy)
		e.testR8Imm8(REG_RAX, 0x01)
		e.setcc(ccNotZero, REG_RCX) // VF = Vy & 1, read before the shift destroys it
		e.shrR8By1(REG_RAX)
		e.storeMemR8(stateReg, vx, REG_RAX) // store Vx first: if X==F, VF write below must win
		e.storeMemR8(stateReg, vf, REG_RCX)

	case chip8.OpShl:
		e.loadR8Mem(REG_RAX, stateReg, vy)
		e.shlR8By1(REG_RAX) // CF = bit 7 shifted out
		e.setcc(ccCarry, REG_RCX)
		e.storeMemR8(stateReg, vx, REG_RAX) // store Vx first: if X==F, VF write below must win
		e.storeMemR8(stateReg, vf, REG_RCX)

	case chip8.OpLoadI:
		e.storeMemImm16(stateReg, fieldOffset.I, inst.NNN)

	case chip8.OpAddI:
		e.movzxR32R8Mem(REG_RAX, stateReg, vx)
		e.addMemR16(stateReg, fieldOffset.I, REG_RAX)

	case chip8.OpLoadDelay:
		e.loadR8Mem(REG_RAX, stateReg, fieldOffset.DelayTimer)
		e.storeMemR8(stateReg, vx, REG_RAX)

	case chip8.OpSetDelay:
		e.loadR8Mem(REG_RAX, stateReg, vx)
		e.storeMemR8(stateReg, fieldOffset.DelayTimer, REG_RAX)

	case chip8.OpSetSound:
		e.loadR8Mem(REG_RAX, stateReg, vx)
		e.storeMemR8(stateReg, fieldOffset.SoundTimer, REG_RAX)
	}
}
