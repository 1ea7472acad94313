package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// selfModifyingROM is spec.md §8 boundary scenario 5 verbatim: a
// block at 0x202 (V5 += 1; jump 0x206) runs once, is then overwritten
// in place via Fx55 with the two bytes 0x12 0x00 (jump 0x200), and is
// re-entered. A backend whose block cache fails to invalidate the
// write keeps serving the stale "V5 += 1; jump 0x206" decode forever;
// one that invalidates correctly observes the new jump-to-0x200 bytes
// on the very next visit to 0x202, and V5 never increments again.
func selfModifyingROM() []byte {
	return []byte{
		0x12, 0x02, // 0x200: jump 0x202
		0x75, 0x01, // 0x202: V5 += 1
		0x12, 0x06, // 0x204: jump 0x206
		0x60, 0x12, // 0x206: V0 = 0x12
		0x61, 0x00, // 0x208: V1 = 0x00
		0xA2, 0x02, // 0x20A: I = 0x202
		0xF1, 0x55, // 0x20C: store V0..V1 at [I..I+1] -- overwrites 0x202,0x203
		0x12, 0x02, // 0x20E: jump 0x202
	}
}

// runSelfModifyingROM drives the ROM above through kind for enough
// cycles that a stale block covering 0x202 would have re-executed
// several times over, then returns the machine for inspection.
func runSelfModifyingROM(t *testing.T, kind BackendKind) *chip8.Machine {
	t.Helper()
	m := chip8.NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM(selfModifyingROM()))

	c := New(m, &fakeHost{})
	require.NoError(t, c.SelectBackend(kind))
	c.CyclesPerFrame = 50

	for i := 0; i < 5; i++ {
		require.NoError(t, c.RunFrame())
	}
	return m
}

// TestSelfModifyingWriteInvalidatesCachedBlock runs boundary scenario
// 5 through Controller for the plain interpreter and every cached
// tier: spec.md §4.3/§9's invalidation protocol must route every
// guest write through the block cache with no back-doors, or the
// block covering 0x202 keeps replaying its pre-overwrite decode
// instead of observing the jump-to-0x200 bytes the ROM wrote there.
func TestSelfModifyingWriteInvalidatesCachedBlock(t *testing.T) {
	for _, kind := range []BackendKind{
		BackendInterpreter, BackendCachedTier1, BackendCachedTier2, BackendCachedTier3,
	} {
		t.Run(kind.String(), func(t *testing.T) {
			m := runSelfModifyingROM(t, kind)

			require.Equal(t, uint8(1), m.V[5],
				"0x202 must observe the rewritten jump and stop re-running the stale V5+=1 block")
			require.Equal(t, uint8(0x12), m.RAM[0x202])
			require.Equal(t, uint8(0x00), m.RAM[0x203])
		})
	}
}
