//go:build amd64

package jit

// Register numbers, in the order amd64 ModRM/REX encode them. Named
// REG_* to match the style other_examples' raw x86_64 emitters use.
const (
	REG_RAX = 0
	REG_RCX = 1
	REG_RDX = 2
	REG_RBX = 3
	REG_RSP = 4
	REG_RBP = 5
	REG_RSI = 6
	REG_RDI = 7
	REG_R8  = 8
	REG_R9  = 9
	REG_R14 = 14
	REG_R15 = 15
)

// stateReg is pinned to the *chip8.Machine pointer for the entire
// lifetime of a compiled block, per spec.md §4.5's "callee-save
// registers follow the host ABI" wording — R15 survives the
// trampoline's CALL into Go-implemented helpers untouched because the
// trampoline itself saves and restores it (see call_amd64.s).
const stateReg = REG_R15

// Emitter accumulates raw x86_64 bytes for one block. It knows nothing
// about chip8.Instruction; emitBlock in emitter.go is what walks a
// decoded block and drives it.
type Emitter struct {
	buf []byte
}

func (e *Emitter) emitByte(b byte) { e.buf = append(e.buf, b) }

func (e *Emitter) emitBytes(bs ...byte) { e.buf = append(e.buf, bs...) }

func (e *Emitter) emitU16(v uint16) {
	e.buf = append(e.buf, byte(v), byte(v>>8))
}

func (e *Emitter) emitU32(v uint32) {
	e.buf = append(e.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *Emitter) emitU64(v uint64) {
	e.emitU32(uint32(v))
	e.emitU32(uint32(v >> 32))
}

// rex builds a REX prefix byte; w selects 64-bit operand size, r/x/b
// are the high bits of the ModRM reg/index/rm (or opcode-extension)
// fields for registers numbered 8-15.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

// modrmDisp32 encodes a ModRM byte selecting [rm_base + disp32]
// addressing with the given reg/digit field, mod=10.
func modrmDisp32(regOrDigit, rmBase uint8) byte {
	return 0x80 | (regOrDigit&7)<<3 | (rmBase & 7)
}

// loadR8Mem emits MOV r8, [base+disp32].
func (e *Emitter) loadR8Mem(dst, base uint8, disp int32) {
	if dst >= 8 || base >= 8 {
		e.emitByte(rex(false, dst >= 8, false, base >= 8))
	}
	e.emitByte(0x8A)
	e.emitByte(modrmDisp32(dst, base))
	e.emitU32(uint32(disp))
}

// storeMemR8 emits MOV [base+disp32], r8.
func (e *Emitter) storeMemR8(base uint8, disp int32, src uint8) {
	if src >= 8 || base >= 8 {
		e.emitByte(rex(false, src >= 8, false, base >= 8))
	}
	e.emitByte(0x88)
	e.emitByte(modrmDisp32(src, base))
	e.emitU32(uint32(disp))
}

// storeMemImm8 emits MOV byte [base+disp32], imm8.
func (e *Emitter) storeMemImm8(base uint8, disp int32, imm uint8) {
	if base >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0xC6)
	e.emitByte(modrmDisp32(0, base))
	e.emitU32(uint32(disp))
	e.emitByte(imm)
}

// aluMemImm8 emits the 0x80 /digit group (ADD/OR/AND/SUB/XOR/CMP)
// against a byte in memory with an 8-bit immediate. digit selects the
// operation: 0=ADD 1=OR 4=AND 5=SUB 6=XOR 7=CMP.
func (e *Emitter) aluMemImm8(digit, base uint8, disp int32, imm uint8) {
	if base >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0x80)
	e.emitByte(modrmDisp32(digit, base))
	e.emitU32(uint32(disp))
	e.emitByte(imm)
}

// aluR8R8 emits the reg,reg form of an 8-bit ALU op (opcode selects
// ADD=0x00 OR=0x08 AND=0x20 SUB=0x28 XOR=0x30 CMP=0x38, direction
// src->dst per Intel's /r encoding with dst in ModRM.rm, src in reg).
func (e *Emitter) aluR8R8(opcode byte, dst, src uint8) {
	if dst >= 8 || src >= 8 {
		e.emitByte(rex(false, src >= 8, false, dst >= 8))
	}
	e.emitByte(opcode)
	e.emitByte(0xC0 | (src&7)<<3 | (dst & 7))
}

func (e *Emitter) movR8Imm8(dst uint8, imm uint8) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0xB0 + dst&7)
	e.emitByte(imm)
}

// shrR8By1 / shlR8By1 emit SHR/SHL r8, 1 — the shifted-out bit lands
// in CF, which the caller reads with setcc.
func (e *Emitter) shrR8By1(dst uint8) { e.shiftR8By1(0xE8, dst) }
func (e *Emitter) shlR8By1(dst uint8) { e.shiftR8By1(0xE0, dst) }

func (e *Emitter) shiftR8By1(digit byte, dst uint8) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0xD0)
	e.emitByte(0xC0 | digit | (dst & 7))
}

func (e *Emitter) testR8Imm8(dst uint8, imm uint8) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0xF6)
	e.emitByte(0xC0 | (dst & 7))
	e.emitByte(imm)
}

// setcc emits SETcc r8 (zero-extends into dst); cc is the condition
// code nibble (e.g. 0x2 for below/carry, 0x3 for above-or-equal/!carry,
// 0x5 for not-zero).
func (e *Emitter) setcc(cc byte, dst uint8) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitBytes(0x0F, 0x90|cc)
	e.emitByte(0xC0 | (dst & 7))
}

const (
	ccCarry    = 0x2 // SETC / SETB
	ccNotCarry = 0x3 // SETNC / SETAE
	ccNotZero  = 0x5 // SETNZ
)

// movR32Imm32 emits MOV r32, imm32 (zero-extends to the full 64-bit
// register, which is what every 12-bit guest address computation
// here wants).
func (e *Emitter) movR32Imm32(dst uint8, imm uint32) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0xB8 + dst&7)
	e.emitU32(imm)
}

// movzxR32R8Mem emits MOVZX r32, byte [base+disp32].
func (e *Emitter) movzxR32R8Mem(dst, base uint8, disp int32) {
	if dst >= 8 || base >= 8 {
		e.emitByte(rex(false, dst >= 8, false, base >= 8))
	}
	e.emitBytes(0x0F, 0xB6)
	e.emitByte(modrmDisp32(dst, base))
	e.emitU32(uint32(disp))
}

// addR32Imm32 emits ADD r32, imm32.
func (e *Emitter) addR32Imm32(dst uint8, imm uint32) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0x81)
	e.emitByte(0xC0 | (dst & 7))
	e.emitU32(imm)
}

// andR32Imm32 emits AND r32, imm32.
func (e *Emitter) andR32Imm32(dst uint8, imm uint32) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0x81)
	e.emitByte(0xE0 | (dst & 7))
	e.emitU32(imm)
}

// storeMemImm16 emits MOV word [base+disp32], imm16 (0x66 operand
// size override).
func (e *Emitter) storeMemImm16(base uint8, disp int32, imm uint16) {
	e.emitByte(0x66)
	if base >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0xC7)
	e.emitByte(modrmDisp32(0, base))
	e.emitU32(uint32(disp))
	e.emitU16(imm)
}

// addMemR16 emits ADD word [base+disp32], r16.
func (e *Emitter) addMemR16(base uint8, disp int32, src uint8) {
	e.emitByte(0x66)
	if src >= 8 || base >= 8 {
		e.emitByte(rex(false, src >= 8, false, base >= 8))
	}
	e.emitByte(0x01)
	e.emitByte(modrmDisp32(src, base))
	e.emitU32(uint32(disp))
}

// The following six methods address [RSP+disp32] specifically, which
// needs an explicit SIB byte (scale=0, index=none, base=RSP) because
// ModRM.rm==100b always means "SIB follows" rather than "use RSP as
// the base" — unlike every other base register this package uses.
// They exist only to marshal arguments across the helper-call
// boundary in emitter.go's emitHelperCall.

const sib_rsp = 0x24

func (e *Emitter) storeRSPDword(offset int32, imm uint32) {
	e.emitByte(0xC7)
	e.emitByte(0x84)
	e.emitByte(sib_rsp)
	e.emitU32(uint32(offset))
	e.emitU32(imm)
}

// storeRSPImm64Zero stores a 64-bit zero-extended immediate, since a
// 32-bit MOV to memory (unlike to a register) does not clear the
// upper half of the 8-byte slot the trampoline will MOVQ back out.
func (e *Emitter) storeRSPImm64Zero(offset int32, imm uint32) {
	e.storeRSPDword(offset, imm)
	e.storeRSPDword(offset+4, 0)
}

func (e *Emitter) storeRSPReg64(offset int32, src uint8) {
	e.emitByte(rex(true, src >= 8, false, false))
	e.emitByte(0x89)
	e.emitByte(0x84 | (src&7)<<3)
	e.emitByte(sib_rsp)
	e.emitU32(uint32(offset))
}

func (e *Emitter) loadRSPReg32(dst uint8, offset int32) {
	if dst >= 8 {
		e.emitByte(rex(false, true, false, false))
	}
	e.emitByte(0x8B)
	e.emitByte(0x84 | (dst&7)<<3)
	e.emitByte(sib_rsp)
	e.emitU32(uint32(offset))
}

func (e *Emitter) subRSPImm32(imm uint32) {
	e.emitByte(rex(true, false, false, false))
	e.emitByte(0x81)
	e.emitByte(0xEC) // /5
	e.emitU32(imm)
}

func (e *Emitter) addRSPImm32(imm uint32) {
	e.emitByte(rex(true, false, false, false))
	e.emitByte(0x81)
	e.emitByte(0xC4) // /0
	e.emitU32(imm)
}

// movR64Imm64 emits MOVABS r64, imm64 — used once per block to load
// the helper trampoline's address, since a plain CALL rel32 would
// need this code's own eventual arena address to compute a
// displacement before it has one.
func (e *Emitter) movR64Imm64(dst uint8, imm uint64) {
	e.emitByte(rex(true, false, false, dst >= 8))
	e.emitByte(0xB8 + dst&7)
	e.emitU64(imm)
}

func (e *Emitter) callR64(dst uint8) {
	if dst >= 8 {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitBytes(0xFF, 0xD0|(dst&7))
}

func (e *Emitter) ret() { e.emitByte(0xC3) }
