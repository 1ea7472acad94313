package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// fakeHost is a minimal hostio.HostIO with no keys ever pressed and
// no host-supplied entropy, so every backend under test draws from
// the Machine's own pinned PRNG (spec.md §9: "cross-backend
// equivalence tests must pin the seed").
type fakeHost struct {
	draws int
	beeps []bool
}

func (h *fakeHost) Draw(chip8.Framebuffer)         { h.draws++ }
func (h *fakeHost) Beep(on bool)                   { h.beeps = append(h.beeps, on) }
func (*fakeHost) PollKeys() [chip8.KeyPadSize]bool { return [chip8.KeyPadSize]bool{} }
func (*fakeHost) RandUint8() (uint8, bool)          { return 0, false }

// equivalenceROM loops: V0=5, V1=3, V0+=V1 (carry), V3=0,
// V2=rand()&0x0F, I=sprite, draw 1-byte sprite at (V2,V3), call a
// subroutine that increments V4, then jump back to the top. It
// exercises ALU/VF quirks, Cxkk, Annn, Dxyn, 2nnn/00EE, and 1nnn
// across whatever block boundaries a given backend's translator
// chooses, which is exactly what the equivalence property (spec.md
// §8) needs to be meaningful.
func equivalenceROM() []byte {
	rom := make([]byte, 0x1A+2)
	copy(rom, []byte{
		0x60, 0x05, // 0x200: V0 = 5
		0x61, 0x03, // 0x202: V1 = 3
		0x80, 0x14, // 0x204: V0 += V1
		0x63, 0x00, // 0x206: V3 = 0
		0xC2, 0x0F, // 0x208: V2 = rand() & 0x0F
		0xA2, 0x1A, // 0x20A: I = 0x21A
		0xD2, 0x31, // 0x20C: draw 1-byte sprite at (V2, V3)
		0x22, 0x14, // 0x20E: call 0x214
		0x12, 0x00, // 0x210: jump 0x200 (loop)
		0x00, 0x00, // 0x212: unused
		0x74, 0x01, // 0x214: V4 += 1
		0x00, 0xEE, // 0x216: return
		0x00, 0x00, // 0x218: unused
	})
	rom[0x1A] = 0xFF // sprite byte at 0x21A
	return rom
}

type snapshot struct {
	V          [16]uint8
	I          uint16
	PC         uint16
	SP         uint8
	Stack      [16]uint16
	DelayTimer uint8
	SoundTimer uint8
	FB         [chip8.ScreenSize]bool
	RAM        [chip8.RamSizeBytes]byte
}

func snap(m *chip8.Machine) snapshot {
	return snapshot{
		V: m.V, I: m.I, PC: m.PC, SP: m.SP, Stack: m.Stack,
		DelayTimer: m.DelayTimer, SoundTimer: m.SoundTimer,
		FB: m.FB.Pixels, RAM: m.RAM,
	}
}

func runROMFrames(t *testing.T, kind BackendKind, rom []byte, frames int) *chip8.Machine {
	t.Helper()
	m := chip8.NewMachineSeeded(42, 7)
	require.NoError(t, m.LoadROM(rom))

	c := New(m, &fakeHost{})
	require.NoError(t, c.SelectBackend(kind))

	for i := 0; i < frames; i++ {
		require.NoError(t, c.RunFrame())
	}
	return m
}

// TestCrossBackendEquivalence is spec.md §8's central testable
// property: for the same ROM and input trace, every backend's
// observable state must be identical at frame boundaries.
func TestCrossBackendEquivalence(t *testing.T) {
	rom := equivalenceROM()
	want := snap(runROMFrames(t, BackendInterpreter, rom, 50))

	for _, kind := range []BackendKind{BackendCachedTier1, BackendCachedTier2, BackendCachedTier3} {
		got := snap(runROMFrames(t, kind, rom, 50))
		require.Equal(t, want, got, "backend %s diverged from the interpreter", kind)
	}
}

func TestSelectBackendPreservesMachineStateAndFlushesCache(t *testing.T) {
	m := chip8.NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM([]byte{0x60, 0x2A, 0x12, 0x02})) // V0 = 0x2A; loop

	c := New(m, &fakeHost{})
	require.NoError(t, c.SelectBackend(BackendCachedTier1))
	require.NoError(t, c.Step())
	require.Equal(t, uint8(0x2A), m.V[0])
	require.NoError(t, c.RunFrame())
	require.NotZero(t, c.cache.Len())

	require.NoError(t, c.SelectBackend(BackendCachedTier2))
	require.Equal(t, uint8(0x2A), m.V[0], "switching backends must preserve machine state")
	require.Zero(t, c.cache.Len(), "switching backends must flush the block cache")
}

func TestControllerKeyEventUnblocksWaitKey(t *testing.T) {
	m := chip8.NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM([]byte{0xF3, 0x0A})) // wait key -> V3

	c := New(m, &fakeHost{})
	require.NoError(t, c.Step())
	require.True(t, m.WaitingForKey)

	c.KeyEvent(7, true)
	require.NoError(t, c.Step())
	require.True(t, m.WaitingForKey, "a press alone is not a release edge")

	c.KeyEvent(7, false)
	require.NoError(t, c.Step())
	require.False(t, m.WaitingForKey)
	require.Equal(t, uint8(7), m.V[3])
}

func TestPauseStopsRunFrame(t *testing.T) {
	m := chip8.NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM([]byte{0x60, 0x01, 0x12, 0x02}))

	c := New(m, &fakeHost{})
	c.Pause()
	require.NoError(t, c.RunFrame())
	require.Equal(t, uint8(0), m.V[0], "a paused controller must not advance the guest")

	c.Resume()
	require.NoError(t, c.RunFrame())
	require.Equal(t, uint8(1), m.V[0])
}

func TestLoadROMResetsMachineAndFlushesCache(t *testing.T) {
	m := chip8.NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM([]byte{0x60, 0x01, 0x12, 0x02}))

	c := New(m, &fakeHost{})
	require.NoError(t, c.SelectBackend(BackendCachedTier1))
	require.NoError(t, c.Step())
	require.Equal(t, uint8(1), m.V[0])
	require.NoError(t, c.RunFrame())
	require.NotZero(t, c.cache.Len())

	require.NoError(t, c.LoadROM([]byte{0x61, 0x09, 0x12, 0x02}))
	require.Equal(t, uint8(0), m.V[0], "LoadROM must reset architectural state")
	require.Equal(t, uint16(chip8.EntryPoint), m.PC)
	require.Zero(t, c.cache.Len(), "LoadROM must flush the block cache")
}
