//go:build amd64

package jit

import (
	"unsafe"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// pendingErr carries a helper's error out of the asm call boundary.
// Raw machine code can only hand integers back through registers, so
// asmHelperEntry stashes the real error here and signals only a
// 0/1 flag to the emitted caller; the dispatcher checks pendingErr
// immediately after every block invocation. This makes the JIT
// backend (uniquely among the four backends) unsafe to run two
// blocks concurrently against — matching how Controller already
// serializes execution through a single active backend.
var pendingErr error

// asmHelperEntry is what jitHelperTrampoline's assembly calls into.
// It exists as a separate function (rather than having the trampoline
// call runHelper directly) so the asm/Go boundary only ever has to
// marshal plain integers, never a struct or interface value.
//
//go:noinline
func asmHelperEntry(id uint64, state unsafe.Pointer, word uint64, pc uint64) (nextPC uint64, errFlag uint64) {
	res := runHelper(helperID(id), (*chip8.Machine)(state), uint16(word), uint16(pc))
	if res.err != nil {
		pendingErr = res.err
		errFlag = 1
	} else {
		pendingErr = nil
	}
	return uint64(res.nextPC), errFlag
}

// helperID enumerates every Chip8 operation whose effect is computed
// in Go rather than emitted as inline x86_64, per spec.md §4.5: ops
// that are branchy, variable-length, touch the stack, or can
// themselves raise an architectural error stay as calls into Go
// rather than being hand-encoded, since hand-encoding those well in
// raw machine code earns little.
type helperID uint8

const (
	helperClearScreen helperID = iota
	helperDraw
	helperRand
	helperLoadFont
	helperBCD
	helperStoreRegs
	helperLoadRegs
	helperCall
	helperReturn
	helperSkipEqImm
	helperSkipNeqImm
	helperSkipEqReg
	helperSkipNeqReg
	helperSkipKeyPressed
	helperSkipKeyNotPressed
	helperWaitKey
)

// appliedByChip8 lists the helper IDs whose effect is just
// chip8.Apply on the already-decoded instruction, with no additional
// bookkeeping (stack, PC skip) needed on top.
var appliedByChip8 = map[helperID]bool{
	helperClearScreen: true,
	helperDraw:        true,
	helperRand:        true,
	helperLoadFont:    true,
	helperBCD:         true,
	helperStoreRegs:   true,
	helperLoadRegs:    true,
}

// dispatchResult is what runHelper hands back to asmHelperEntry.
// Raw machine code cannot carry a Go error value in a register, so a
// failing helper's error is moved into pendingErr by asmHelperEntry
// and the native function returns the failing pc unchanged as its
// nextPC; the dispatcher always checks pendingErr after every block
// invocation regardless of what nextPC came back.
type dispatchResult struct {
	nextPC uint16
	err    error
}

// runHelper is the single Go-land entry point every CALL instruction
// emitted by Emitter targets, by way of the assembly trampoline in
// call_amd64.s and asmHelperEntry. id and word fully describe the instruction; pc
// is where it was fetched from. Semantics mirror chip8.Apply exactly;
// see exec.go for the authoritative definition each branch below
// defers to or reimplements.
//
//go:noinline
func runHelper(id helperID, m *chip8.Machine, word uint16, pc uint16) dispatchResult {
	inst, err := chip8.Decode(word, pc)
	if err != nil {
		return dispatchResult{nextPC: pc, err: err}
	}

	if appliedByChip8[id] {
		next, err := chip8.Apply(m, inst, pc)
		return dispatchResult{nextPC: next, err: err}
	}

	switch id {
	case helperCall:
		if m.SP >= chip8.StackMaxSize {
			return dispatchResult{nextPC: pc, err: &chip8.StackError{PC: pc, Overflow: true}}
		}
		m.Stack[m.SP] = (pc + 2) & 0x0FFF
		m.SP++
		return dispatchResult{nextPC: inst.NNN}

	case helperReturn:
		if m.SP == 0 {
			return dispatchResult{nextPC: pc, err: &chip8.StackError{PC: pc, Overflow: false}}
		}
		m.SP--
		return dispatchResult{nextPC: m.Stack[m.SP]}

	case helperSkipEqImm:
		return dispatchResult{nextPC: skipSuccessor(pc, m.V[inst.X] == inst.KK)}
	case helperSkipNeqImm:
		return dispatchResult{nextPC: skipSuccessor(pc, m.V[inst.X] != inst.KK)}
	case helperSkipEqReg:
		return dispatchResult{nextPC: skipSuccessor(pc, m.V[inst.X] == m.V[inst.Y])}
	case helperSkipNeqReg:
		return dispatchResult{nextPC: skipSuccessor(pc, m.V[inst.X] != m.V[inst.Y])}
	case helperSkipKeyPressed:
		return dispatchResult{nextPC: skipSuccessor(pc, m.Keys[m.V[inst.X]&0x0F])}
	case helperSkipKeyNotPressed:
		return dispatchResult{nextPC: skipSuccessor(pc, !m.Keys[m.V[inst.X]&0x0F])}

	case helperWaitKey:
		m.WaitingForKey = true
		m.WaitReg = inst.X
		return dispatchResult{nextPC: pc}

	default:
		return dispatchResult{nextPC: pc, err: &chip8.InvalidOpcodeError{Opcode: word, PC: pc}}
	}
}

func skipSuccessor(pc uint16, skip bool) uint16 {
	next := (pc + 2) & 0x0FFF
	if skip {
		next = (next + 2) & 0x0FFF
	}
	return next
}

// helperIDFor maps an Op to the helper that implements it, for every
// Op the emitter does not inline. Ops absent from this map are inlined
// in body position; when one is a block's last instruction,
// emitTerminator looks it up here, gets the zero value
// (helperClearScreen), and runHelper's chip8.Apply of the decoded
// word still executes the real op.
var helperIDFor = map[chip8.Op]helperID{
	chip8.OpClearScreen:       helperClearScreen,
	chip8.OpDraw:              helperDraw,
	chip8.OpRand:              helperRand,
	chip8.OpLoadFont:          helperLoadFont,
	chip8.OpBCD:               helperBCD,
	chip8.OpStoreRegs:         helperStoreRegs,
	chip8.OpLoadRegs:          helperLoadRegs,
	chip8.OpCall:              helperCall,
	chip8.OpReturn:            helperReturn,
	chip8.OpSkipEqImm:         helperSkipEqImm,
	chip8.OpSkipNeqImm:        helperSkipNeqImm,
	chip8.OpSkipEqReg:         helperSkipEqReg,
	chip8.OpSkipNeqReg:        helperSkipNeqReg,
	chip8.OpSkipKeyPressed:    helperSkipKeyPressed,
	chip8.OpSkipKeyNotPressed: helperSkipKeyNotPressed,
	chip8.OpWaitKey:           helperWaitKey,
}
