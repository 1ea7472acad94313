package cached2

import "github.com/arlobrennan/chip8x/internal/chip8"

// opHandler is the threaded-code handler shape: each slot in a
// translated block carries one of these plus its pre-extracted
// instruction fields, so dispatch never re-switches on the opcode —
// it just indirect-calls Fn. Modeled on bradford-hamilton-chippy's
// one-function-per-opcode instruction table (its _0x8004-style
// methods), generalized here into an explicit function-pointer slice
// instead of a dispatch method named per opcode.
type opHandler func(m *chip8.Machine, inst chip8.Instruction, pc uint16) (nextPC uint16, err error)

func fallthroughOf(pc uint16) uint16 { return (pc + 2) & 0x0FFF }

func hClearScreen(m *chip8.Machine, _ chip8.Instruction, pc uint16) (uint16, error) {
	m.FB.Clear()
	return fallthroughOf(pc), nil
}

func hReturn(m *chip8.Machine, _ chip8.Instruction, pc uint16) (uint16, error) {
	if m.SP == 0 {
		return pc, &chip8.StackError{PC: pc, Overflow: false}
	}
	m.SP--
	return m.Stack[m.SP], nil
}

func hJump(_ *chip8.Machine, inst chip8.Instruction, _ uint16) (uint16, error) {
	return inst.NNN, nil
}

func hCall(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	if m.SP >= chip8.StackMaxSize {
		return pc, &chip8.StackError{PC: pc, Overflow: true}
	}
	m.Stack[m.SP] = fallthroughOf(pc)
	m.SP++
	return inst.NNN, nil
}

func hSkipEqImm(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	ft := fallthroughOf(pc)
	if m.V[inst.X] == inst.KK {
		return fallthroughOf(ft), nil
	}
	return ft, nil
}

func hSkipNeqImm(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	ft := fallthroughOf(pc)
	if m.V[inst.X] != inst.KK {
		return fallthroughOf(ft), nil
	}
	return ft, nil
}

func hSkipEqReg(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	ft := fallthroughOf(pc)
	if m.V[inst.X] == m.V[inst.Y] {
		return fallthroughOf(ft), nil
	}
	return ft, nil
}

func hLoadImm(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] = inst.KK
	return fallthroughOf(pc), nil
}

func hAddImm(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] += inst.KK
	return fallthroughOf(pc), nil
}

func hMovReg(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] = m.V[inst.Y]
	return fallthroughOf(pc), nil
}

func hOr(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] |= m.V[inst.Y]
	m.V[0xF] = 0
	return fallthroughOf(pc), nil
}

func hAnd(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] &= m.V[inst.Y]
	m.V[0xF] = 0
	return fallthroughOf(pc), nil
}

func hXor(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] ^= m.V[inst.Y]
	m.V[0xF] = 0
	return fallthroughOf(pc), nil
}

func hAddReg(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	sum := uint16(m.V[inst.X]) + uint16(m.V[inst.Y])
	m.V[inst.X] = uint8(sum)
	if sum > 0xFF {
		m.V[0xF] = 1
	} else {
		m.V[0xF] = 0
	}
	return fallthroughOf(pc), nil
}

func hSubReg(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	carry := uint8(0)
	if m.V[inst.X] >= m.V[inst.Y] {
		carry = 1
	}
	m.V[inst.X] = m.V[inst.X] - m.V[inst.Y]
	m.V[0xF] = carry
	return fallthroughOf(pc), nil
}

func hShr(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	carry := m.V[inst.Y] & 0x01
	m.V[inst.X] = m.V[inst.Y] >> 1
	m.V[0xF] = carry
	return fallthroughOf(pc), nil
}

func hSubnReg(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	carry := uint8(0)
	if m.V[inst.Y] >= m.V[inst.X] {
		carry = 1
	}
	m.V[inst.X] = m.V[inst.Y] - m.V[inst.X]
	m.V[0xF] = carry
	return fallthroughOf(pc), nil
}

func hShl(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	carry := (m.V[inst.Y] >> 7) & 0x01
	m.V[inst.X] = m.V[inst.Y] << 1
	m.V[0xF] = carry
	return fallthroughOf(pc), nil
}

func hSkipNeqReg(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	ft := fallthroughOf(pc)
	if m.V[inst.X] != m.V[inst.Y] {
		return fallthroughOf(ft), nil
	}
	return ft, nil
}

func hLoadI(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.I = inst.NNN
	return fallthroughOf(pc), nil
}

func hJumpV0(m *chip8.Machine, inst chip8.Instruction, _ uint16) (uint16, error) {
	return (inst.NNN + uint16(m.V[0])) & 0x0FFF, nil
}

func hRand(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] = m.RandByte() & inst.KK
	return fallthroughOf(pc), nil
}

func hDraw(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	_, err := chip8.Apply(m, inst, pc) // draw is branchy enough to stay shared, not duplicated
	return fallthroughOf(pc), err
}

func hSkipKeyPressed(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	ft := fallthroughOf(pc)
	if m.Keys[m.V[inst.X]&0x0F] {
		return fallthroughOf(ft), nil
	}
	return ft, nil
}

func hSkipKeyNotPressed(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	ft := fallthroughOf(pc)
	if !m.Keys[m.V[inst.X]&0x0F] {
		return fallthroughOf(ft), nil
	}
	return ft, nil
}

func hLoadDelay(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.V[inst.X] = m.DelayTimer
	return fallthroughOf(pc), nil
}

func hWaitKey(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.WaitingForKey = true
	m.WaitReg = inst.X
	return pc, nil
}

func hSetDelay(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.DelayTimer = m.V[inst.X]
	return fallthroughOf(pc), nil
}

func hSetSound(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.SoundTimer = m.V[inst.X]
	return fallthroughOf(pc), nil
}

func hAddI(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.I += uint16(m.V[inst.X])
	return fallthroughOf(pc), nil
}

func hLoadFont(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	m.I = chip8.FontBase + 5*uint16(m.V[inst.X]&0x0F)
	return fallthroughOf(pc), nil
}

func hBCD(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	v := m.V[inst.X]
	m.RAM[m.I&0x0FFF] = v / 100
	m.RAM[(m.I+1)&0x0FFF] = (v / 10) % 10
	m.RAM[(m.I+2)&0x0FFF] = v % 10
	m.NotifyWriteRange(m.I, 3)
	return fallthroughOf(pc), nil
}

func hStoreRegs(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	start := m.I
	for i := uint16(0); i <= uint16(inst.X); i++ {
		m.RAM[(m.I+i)&0x0FFF] = m.V[i]
	}
	m.I = (m.I + uint16(inst.X) + 1) & 0x0FFF
	m.NotifyWriteRange(start, uint16(inst.X)+1)
	return fallthroughOf(pc), nil
}

func hLoadRegs(m *chip8.Machine, inst chip8.Instruction, pc uint16) (uint16, error) {
	for i := uint16(0); i <= uint16(inst.X); i++ {
		m.V[i] = m.RAM[(m.I+i)&0x0FFF]
	}
	m.I = (m.I + uint16(inst.X) + 1) & 0x0FFF
	return fallthroughOf(pc), nil
}

// handlerTable is resolved once per instruction at translate time,
// never at dispatch time — that is the entire point of Tier 2.
var handlerTable = map[chip8.Op]opHandler{
	chip8.OpClearScreen:       hClearScreen,
	chip8.OpReturn:            hReturn,
	chip8.OpJump:              hJump,
	chip8.OpCall:              hCall,
	chip8.OpSkipEqImm:         hSkipEqImm,
	chip8.OpSkipNeqImm:        hSkipNeqImm,
	chip8.OpSkipEqReg:         hSkipEqReg,
	chip8.OpLoadImm:           hLoadImm,
	chip8.OpAddImm:            hAddImm,
	chip8.OpMovReg:            hMovReg,
	chip8.OpOr:                hOr,
	chip8.OpAnd:               hAnd,
	chip8.OpXor:               hXor,
	chip8.OpAddReg:            hAddReg,
	chip8.OpSubReg:            hSubReg,
	chip8.OpShr:               hShr,
	chip8.OpSubnReg:           hSubnReg,
	chip8.OpShl:               hShl,
	chip8.OpSkipNeqReg:        hSkipNeqReg,
	chip8.OpLoadI:             hLoadI,
	chip8.OpJumpV0:            hJumpV0,
	chip8.OpRand:              hRand,
	chip8.OpDraw:              hDraw,
	chip8.OpSkipKeyPressed:    hSkipKeyPressed,
	chip8.OpSkipKeyNotPressed: hSkipKeyNotPressed,
	chip8.OpLoadDelay:         hLoadDelay,
	chip8.OpWaitKey:           hWaitKey,
	chip8.OpSetDelay:          hSetDelay,
	chip8.OpSetSound:          hSetSound,
	chip8.OpAddI:              hAddI,
	chip8.OpLoadFont:          hLoadFont,
	chip8.OpBCD:               hBCD,
	chip8.OpStoreRegs:         hStoreRegs,
	chip8.OpLoadRegs:          hLoadRegs,
}
