package chip8

import v2 "math/rand/v2"

const (
	RamSizeBytes = 0x1000 // 4096
	EntryPoint   = 0x200  // 512

	// 0x000..0x1FF is reserved for the interpreter; the font table
	// lives at FontBase within it. ROM bytes start at EntryPoint.
	// see http://devernay.free.fr/hacks/chip8/C8TECH10.HTM#2.1
	RomMaxSizeBytes = RamSizeBytes - EntryPoint

	ScreenWidth  = 64
	ScreenHeight = 32
	ScreenSize   = ScreenWidth * ScreenHeight

	KeyPadSize = 0x10

	// DefaultTPS is the host frame rate the timers decrement at.
	DefaultTPS = 60

	StackMaxSize = 16
)

// Framebuffer is the 64x32 monochrome display, stored row-major as
// spec.md §3 describes. A Dirty flag is maintained for the host's
// benefit only; it is not architecturally visible to guest code.
type Framebuffer struct {
	Pixels [ScreenSize]bool
	Dirty  bool
}

func (fb *Framebuffer) at(x, y int) int { return y*ScreenWidth + x }

func (fb *Framebuffer) Get(x, y int) bool { return fb.Pixels[fb.at(x, y)] }

func (fb *Framebuffer) Clear() {
	for i := range fb.Pixels {
		fb.Pixels[i] = false
	}
	fb.Dirty = true
}

// State describes the controller's run/pause/quit tri-state. It is
// ambient UX state, not part of the Chip8 architectural model.
type State int

const (
	StateRunning State = iota
	StatePaused
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "quit"
	}
}

// Machine owns every guest-visible architectural register, per
// spec.md §3: RAM, V0..VF, I, PC, SP, the call stack, both timers, the
// framebuffer, the key matrix, and the PRNG. It survives backend
// switches; backends only ever read/mutate a *Machine they are handed.
type Machine struct {
	RAM [RamSizeBytes]byte

	V  [16]uint8
	I  uint16
	PC uint16
	SP uint8

	Stack [StackMaxSize]uint16

	DelayTimer uint8
	SoundTimer uint8

	FB   Framebuffer
	Keys [KeyPadSize]bool

	// WaitingForKey mirrors the JIT/interpreter Fx0A suspension flag
	// from spec.md §4.5: set when a block exits without having
	// observed a key edge, cleared once one has been latched into
	// WaitReg.
	WaitingForKey bool
	WaitReg       uint8
	prevKeys      [KeyPadSize]bool

	rng *v2.Rand

	State State

	// OnMemWrite, if non-nil, is called after every guest RAM write
	// that a live cached or JIT-compiled block might cover, naming the
	// exact bytes written as [lo, hi) in guest-address space. The
	// active backend wires this to blockcache.Cache.InvalidateRange
	// (spec.md §4.3, §9: "every mutation path through memory must
	// route through the invalidator; no back-doors"). Left nil while
	// the plain interpreter is selected, since it installs no cache to
	// invalidate.
	OnMemWrite func(lo, hi uint16)
}

// NotifyWriteRange reports a RAM write of length bytes starting at
// addr (not yet masked to the 12-bit guest address space) to
// OnMemWrite, splitting it into two calls if the masked range wraps
// past the end of RAM. Every instruction that writes guest memory
// (Fx33, Fx55) calls this with the exact bytes it wrote; it is the
// single choke point spec.md §9 requires every mutation path to use.
func (m *Machine) NotifyWriteRange(addr, length uint16) {
	if m.OnMemWrite == nil || length == 0 {
		return
	}
	lo := addr & 0x0FFF
	hi := lo + length
	if hi <= RamSizeBytes {
		m.OnMemWrite(lo, hi)
		return
	}
	m.OnMemWrite(lo, RamSizeBytes)
	m.OnMemWrite(0, hi-RamSizeBytes)
}

// NewMachine builds a Machine with the font table loaded at FontBase
// and PC at the ROM entry point, seeded from an unpredictable source.
func NewMachine() *Machine {
	return NewMachineSeeded(v2.Uint64(), v2.Uint64())
}

// NewMachineSeeded is identical to NewMachine but pins the PRNG seed,
// as spec.md §3/§9 require for reproducible cross-backend tests.
func NewMachineSeeded(seed1, seed2 uint64) *Machine {
	m := &Machine{
		PC:    EntryPoint,
		State: StateRunning,
		rng:   v2.New(v2.NewPCG(seed1, seed2)),
	}
	copy(m.RAM[FontBase:], font[:])
	return m
}

// Reset restores architectural state to a freshly-loaded machine
// without discarding the currently loaded ROM bytes in RAM above
// EntryPoint (callers that want a cold ROM reload should call LoadROM
// again).
func (m *Machine) Reset() {
	m.V = [16]uint8{}
	m.I = 0
	m.PC = EntryPoint
	m.SP = 0
	m.Stack = [StackMaxSize]uint16{}
	m.DelayTimer = 0
	m.SoundTimer = 0
	m.FB.Clear()
	m.Keys = [KeyPadSize]bool{}
	m.prevKeys = [KeyPadSize]bool{}
	m.WaitingForKey = false
	m.WaitReg = 0
	m.State = StateRunning
}

// LoadROM copies rom bytes into RAM starting at EntryPoint. It first
// validates the size via CheckROMSize and returns ErrRomTooLarge
// without touching RAM if the ROM does not fit, matching spec.md's
// "reported at load time" wording.
func (m *Machine) LoadROM(rom []byte) error {
	if err := CheckROMSize(len(rom)); err != nil {
		return err
	}
	copy(m.RAM[EntryPoint:], rom)
	return nil
}

// CheckROMSize reports ErrRomTooLarge for any ROM that would not fit
// between EntryPoint and the end of RAM.
func CheckROMSize(size int) error {
	if size > RomMaxSizeBytes {
		return &RomTooLargeError{Size: size, Max: RomMaxSizeBytes}
	}
	return nil
}

// FetchWord reads the big-endian 16-bit word at pc, masking to the
// 12-bit guest address space first per spec.md §3.
func (m *Machine) FetchWord(pc uint16) uint16 {
	pc &= 0x0FFF
	return uint16(m.RAM[pc])<<8 | uint16(m.RAM[(pc+1)&0x0FFF])
}

// RandByte draws one byte from the core PRNG. Every backend's Cxkk
// draws from here; HostIO.RandUint8 is never consulted.
func (m *Machine) RandByte() uint8 {
	return uint8(m.rng.IntN(0x100))
}

// TickTimers decrements both timers by one at 60Hz, per spec.md §3,
// when non-zero, and reports whether SoundTimer made a non-zero <->
// zero transition so a host can drive HostIO.Beep accordingly.
func (m *Machine) TickTimers() (beepChanged bool) {
	wasSounding := m.SoundTimer > 0
	if m.DelayTimer > 0 {
		m.DelayTimer--
	}
	if m.SoundTimer > 0 {
		m.SoundTimer--
	}
	return wasSounding != (m.SoundTimer > 0)
}

// SetKey latches a host key event into the key matrix. Edge detection
// for Fx0A is handled separately by AnyKeyReleaseEdge, which backends
// call once per step while WaitingForKey is set.
func (m *Machine) SetKey(key uint8, pressed bool) {
	if key >= KeyPadSize {
		return
	}
	m.Keys[key] = pressed
}

// AnyKeyReleaseEdge scans for a press->release transition across all
// 16 keys and, if found, latches it into Vx, clears WaitingForKey and
// advances PC past the Fx0A it was parked on. Backends call this once
// per step while WaitingForKey is set, rather than duplicating
// SetKey's edge logic.
func (m *Machine) AnyKeyReleaseEdge() {
	for k := uint8(0); k < KeyPadSize; k++ {
		if m.prevKeys[k] && !m.Keys[k] {
			m.V[m.WaitReg] = k
			m.WaitingForKey = false
			m.PC = (m.PC + 2) & 0x0FFF
			break
		}
	}
	m.prevKeys = m.Keys
}

// ScreenSize reports the framebuffer dimensions.
func (m *Machine) ScreenSize() (int, int) { return ScreenWidth, ScreenHeight }
