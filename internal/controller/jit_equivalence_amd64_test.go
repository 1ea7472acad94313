//go:build amd64

package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// TestJITEquivalence is the amd64-only arm of spec.md §8's
// cross-backend equivalence property: the dynamic binary translator
// must produce byte-identical architectural state to the interpreter
// for the same ROM and seed.
func TestJITEquivalence(t *testing.T) {
	rom := equivalenceROM()
	want := snap(runROMFrames(t, BackendInterpreter, rom, 50))
	got := snap(runROMFrames(t, BackendJIT, rom, 50))
	require.Equal(t, want, got)
}

// shiftVFDestROM exercises 8xy6/8xyE with X==F: the VF write must win
// over the shifted-value write the same instruction also makes to
// V[0xF], per spec.md §9's VF-ordering note. op is the low nibble
// (0x6 for SHR, 0xE for SHL); the program loops on a self-jump so the
// single block covering it has a terminator.
func shiftVFDestROM(op byte, vy byte) []byte {
	return []byte{
		0x60, vy, // V0 = vy
		0x8F, 0x00 | op, // 8F0_: VF = shift(V0), X==F==dest register
		0x12, 0x04, // jump 0x204 (self loop, terminates the block)
	}
}

// TestJITShiftVFDestinationMatchesInterpreter guards the emitter bug
// where inline Shr/Shl stored to VF before the shifted value reached
// Vx: when X==F that let the shifted-value write clobber the carry,
// diverging from chip8.Apply's store-Vx-then-VF order (spec.md §9).
func TestJITShiftVFDestinationMatchesInterpreter(t *testing.T) {
	cases := []struct {
		name string
		op   byte
		vy   byte
	}{
		{"shr carry set", 0x6, 0x03},
		{"shr carry clear", 0x6, 0x02},
		{"shl carry set", 0xE, 0x81},
		{"shl carry clear", 0xE, 0x01},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rom := shiftVFDestROM(tc.op, tc.vy)
			want := runROMFrames(t, BackendInterpreter, rom, 1)
			got := runROMFrames(t, BackendJIT, rom, 1)
			require.Equal(t, want.V[0xF], got.V[0xF], "VF must hold the carry, not the shifted value")
		})
	}
}

// manyDistinctBlocksROM fills the entire guest address space from
// EntryPoint to RAM's end with 00E0 (ClearScreen) instructions, which
// the JIT always compiles to a helper call (helpers.go) rather than
// inline code: a single pass through this many helper-call blocks
// emits far more machine code than fits in the default 64KiB arena
// (spec.md §7, scenario 6), guaranteeing exhaustion before the ROM
// ever needs to loop back on itself. The final instruction is a Jump
// back to EntryPoint so the program runs forever without ever
// executing whatever bytes happen to sit below EntryPoint.
func manyDistinctBlocksROM() []byte {
	size := chip8.RamSizeBytes - chip8.EntryPoint
	rom := make([]byte, size)
	for i := 0; i+1 < size; i += 2 {
		rom[i], rom[i+1] = 0x00, 0xE0
	}
	rom[size-2], rom[size-1] = 0x12, 0x00 // jump EntryPoint
	return rom
}

// TestJITSelfModifyingWriteInvalidatesCachedBlock is the JIT's arm of
// spec.md §8 boundary scenario 5: its helper-routed Fx55 write must
// invalidate the block cache exactly like every interpreted backend,
// even though the write happens from inside already-compiled code.
func TestJITSelfModifyingWriteInvalidatesCachedBlock(t *testing.T) {
	m := runSelfModifyingROM(t, BackendJIT)

	require.Equal(t, uint8(1), m.V[5],
		"0x202 must observe the rewritten jump and stop re-running the stale V5+=1 block")
	require.Equal(t, uint8(0x12), m.RAM[0x202])
	require.Equal(t, uint8(0x00), m.RAM[0x203])
}

// TestJITArenaExhaustionFlushesAndContinues exercises the OutOfMemoryForJIT
// recovery path (spec.md §7): once the executable arena fills up,
// translateWithRetry flushes the block cache (which resets the arena)
// and keeps running rather than propagating a fatal error.
func TestJITArenaExhaustionFlushesAndContinues(t *testing.T) {
	rom := manyDistinctBlocksROM()
	m := chip8.NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM(rom))

	c := New(m, &fakeHost{})
	require.NoError(t, c.SelectBackend(BackendJIT))
	c.CyclesPerFrame = 4000

	for i := 0; i < 4; i++ {
		require.NoError(t, c.RunFrame(), "arena exhaustion must be recovered, not fatal")
	}
}
