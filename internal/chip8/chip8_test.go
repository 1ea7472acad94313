package chip8

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// runProgram loads prog at EntryPoint and Applies n instructions in
// sequence via Fetch/Decode/Apply, mirroring what interpreter.Backend
// does, without depending on that package (avoids an import cycle and
// keeps this package's tests exercising Apply directly).
func runProgram(t *testing.T, prog []byte, steps int) *Machine {
	t.Helper()
	m := NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM(prog))

	for i := 0; i < steps; i++ {
		word := m.FetchWord(m.PC)
		inst, err := Decode(word, m.PC)
		require.NoError(t, err)
		next, err := Apply(m, inst, m.PC)
		require.NoError(t, err)
		m.PC = next
	}
	return m
}

// Scenario 1 (spec.md §8): 6005 6103 8014 00E0 -> V0=8, V1=3, VF=0,
// display cleared.
func TestBoundaryScenario1(t *testing.T) {
	m := runProgram(t, []byte{
		0x60, 0x05, // V0 = 5
		0x61, 0x03, // V1 = 3
		0x80, 0x14, // V0 += V1 (with carry)
		0x00, 0xE0, // clear screen
	}, 4)

	require.Equal(t, uint8(8), m.V[0])
	require.Equal(t, uint8(3), m.V[1])
	require.Equal(t, uint8(0), m.V[0xF])
	for i := range m.FB.Pixels {
		require.False(t, m.FB.Pixels[i])
	}
}

// Scenario 2: 60FF 7001 -> V0=0, VF=0 (7xkk never touches VF despite
// overflow).
func TestBoundaryScenario2(t *testing.T) {
	m := runProgram(t, []byte{
		0x60, 0xFF, // V0 = 0xFF
		0x70, 0x01, // V0 += 1 (wraps, VF untouched)
	}, 2)

	require.Equal(t, uint8(0), m.V[0])
	require.Equal(t, uint8(0), m.V[0xF])
}

// Scenario 3: A202 F033 with the value 0x7B (123) to encode -> memory
// at I=0x202..0x204 contains {1, 2, 3}.
func TestBoundaryScenario3(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM([]byte{
		0xA2, 0x02, // I = 0x202
		0xF0, 0x33, // BCD(V0) at [I..I+2]
	}))

	// V0 must carry the value whose BCD we want encoded (123).
	m.V[0] = 123

	for i := 0; i < 2; i++ {
		word := m.FetchWord(m.PC)
		inst, err := Decode(word, m.PC)
		require.NoError(t, err)
		next, err := Apply(m, inst, m.PC)
		require.NoError(t, err)
		m.PC = next
	}

	require.Equal(t, uint8(1), m.RAM[0x202])
	require.Equal(t, uint8(2), m.RAM[0x203])
	require.Equal(t, uint8(3), m.RAM[0x204])
}

// Scenario 4: 2204 0000 0000 00EE -> CALL 0x204 sets SP=1; RET
// restores SP=0 and PC=0x202.
func TestBoundaryScenario4(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	require.NoError(t, m.LoadROM([]byte{
		0x22, 0x04, // 0x200: call 0x204
		0x00, 0x00, // 0x202: filler (not executed before RET)
		0x00, 0xEE, // 0x204: return
	}))

	word := m.FetchWord(m.PC)
	inst, err := Decode(word, m.PC)
	require.NoError(t, err)
	next, err := Apply(m, inst, m.PC)
	require.NoError(t, err)
	m.PC = next
	require.Equal(t, uint8(1), m.SP)
	require.Equal(t, uint16(0x204), m.PC)

	word = m.FetchWord(m.PC)
	inst, err = Decode(word, m.PC)
	require.NoError(t, err)
	next, err = Apply(m, inst, m.PC)
	require.NoError(t, err)
	m.PC = next
	require.Equal(t, uint8(0), m.SP)
	require.Equal(t, uint16(0x202), m.PC)
}

func TestStackOverflowAndUnderflow(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	inst := Instruction{Op: OpCall, NNN: 0x300}
	for i := 0; i < StackMaxSize; i++ {
		_, err := Apply(m, inst, m.PC)
		require.NoError(t, err)
	}
	_, err := Apply(m, inst, m.PC)
	require.ErrorIs(t, err, ErrStackOverflow)

	m2 := NewMachineSeeded(1, 2)
	_, err = Apply(m2, Instruction{Op: OpReturn}, m2.PC)
	require.ErrorIs(t, err, ErrStackUnderflow)
}

// Round-trip law: Fx55 followed by Fx65 at the same I restores V0..Vx.
func TestStoreLoadRoundTrip(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	m.I = 0x300
	for i := range m.V {
		m.V[i] = uint8(i * 7)
	}
	want := m.V

	_, err := Apply(m, Instruction{Op: OpStoreRegs, X: 0xF}, m.PC)
	require.NoError(t, err)

	m.V = [16]uint8{}
	m.I = 0x300 // Fx55 advanced I; rewind for the matching Fx65

	_, err = Apply(m, Instruction{Op: OpLoadRegs, X: 0xF}, m.PC)
	require.NoError(t, err)

	require.Equal(t, want, m.V)
}

func TestAddCarryVFOrdering(t *testing.T) {
	// 8xy4 when x == F: result is stored first, then VF is
	// overwritten by the carry, clobbering the arithmetic result.
	m := NewMachineSeeded(1, 2)
	m.V[0xF] = 0x10
	m.V[0x0] = 1
	_, err := Apply(m, Instruction{Op: OpAddReg, X: 0xF, Y: 0x0}, m.PC)
	require.NoError(t, err)
	require.Equal(t, uint8(0), m.V[0xF], "VF must hold the carry, not 0x11")
}

func TestOrAndXorResetVF(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	m.V[0xF] = 1
	m.V[0] = 0xF0
	m.V[1] = 0x0F
	_, err := Apply(m, Instruction{Op: OpOr, X: 0, Y: 1}, m.PC)
	require.NoError(t, err)
	require.Equal(t, uint8(0xFF), m.V[0])
	require.Equal(t, uint8(0), m.V[0xF])
}

func TestShrUsesVyAsSource(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	m.V[1] = 0x03 // Vy
	m.V[0] = 0xFF // Vx, should be overwritten from Vy
	_, err := Apply(m, Instruction{Op: OpShr, X: 0, Y: 1}, m.PC)
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), m.V[0])
	require.Equal(t, uint8(0x01), m.V[0xF])
}

func TestDrawClipsAtScreenEdge(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	m.I = 0x300
	m.RAM[0x300] = 0xFF // 8 set bits
	m.V[0] = ScreenWidth - 2
	m.V[1] = 0

	_, err := Apply(m, Instruction{Op: OpDraw, X: 0, Y: 1, N: 1}, m.PC)
	require.NoError(t, err)

	require.True(t, m.FB.Get(ScreenWidth-2, 0))
	require.True(t, m.FB.Get(ScreenWidth-1, 0))
	// the remaining 6 sprite bits must have clipped, not wrapped, to
	// row 0 column 0..5
	require.False(t, m.FB.Get(0, 0))
}

func TestWaitKeyBlocksPCUntilReleaseEdge(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	startPC := m.PC

	next, err := Apply(m, Instruction{Op: OpWaitKey, X: 3}, m.PC)
	require.NoError(t, err)
	require.Equal(t, startPC, next, "PC must not advance while waiting")
	require.True(t, m.WaitingForKey)

	m.SetKey(5, true)
	m.AnyKeyReleaseEdge()
	require.True(t, m.WaitingForKey, "still pressed, no edge yet")

	m.SetKey(5, false)
	m.AnyKeyReleaseEdge()
	require.False(t, m.WaitingForKey)
	require.Equal(t, uint8(5), m.V[3])
}

func TestDecodeTotalAndRoundTrips(t *testing.T) {
	samples := []uint16{
		0x00E0, 0x00EE, 0x1234, 0x2345, 0x3A12, 0x4B34, 0x5CD0, 0x6E56,
		0x7F78, 0x8010, 0x8121, 0x8232, 0x8343, 0x8454, 0x8565, 0x8676,
		0x8787, 0x898E, 0x9AB0, 0xACDE, 0xBDEF, 0xC123, 0xD456, 0xE19E,
		0xE2A1, 0xF307, 0xF40A, 0xF515, 0xF618, 0xF71E, 0xF829, 0xF933,
		0xFA55, 0xFB65,
	}
	for _, word := range samples {
		inst, err := Decode(word, 0x200)
		require.NoErrorf(t, err, "word %#04x should decode", word)
		require.Equal(t, word, Encode(inst), "decode/encode round trip for %#04x", word)
	}
}

func TestDecodeInvalidOpcode(t *testing.T) {
	_, err := Decode(0x5001, 0x200) // n must be 0 for 5xy0
	require.ErrorIs(t, err, ErrInvalidOpcode)

	_, err = Decode(0x0123, 0x200) // 0NNN family, not 00E0/00EE
	require.ErrorIs(t, err, ErrInvalidOpcode)
}

func TestRomTooLarge(t *testing.T) {
	m := NewMachineSeeded(1, 2)
	big := make([]byte, RomMaxSizeBytes+1)
	err := m.LoadROM(big)
	require.ErrorIs(t, err, ErrRomTooLarge)
}
