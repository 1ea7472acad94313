// Package controller implements the execution controller (C8): it
// owns the currently selected backend, dispatches frames, and honors
// play/pause/step, per spec.md §4.6.
package controller

import (
	"fmt"

	"github.com/arlobrennan/chip8x/internal/backend"
	"github.com/arlobrennan/chip8x/internal/backend/cached1"
	"github.com/arlobrennan/chip8x/internal/backend/cached2"
	"github.com/arlobrennan/chip8x/internal/backend/cached3"
	"github.com/arlobrennan/chip8x/internal/backend/interpreter"
	"github.com/arlobrennan/chip8x/internal/backend/jit"
	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
	"github.com/arlobrennan/chip8x/internal/hostio"
)

// BackendKind names one of the four execution strategies spec.md §1
// makes coexist over the same Machine.
type BackendKind int

const (
	BackendInterpreter BackendKind = iota
	BackendCachedTier1
	BackendCachedTier2
	BackendCachedTier3
	BackendJIT
)

func (k BackendKind) String() string {
	switch k {
	case BackendInterpreter:
		return "interpreter"
	case BackendCachedTier1:
		return "cached-tier1"
	case BackendCachedTier2:
		return "cached-tier2"
	case BackendCachedTier3:
		return "cached-tier3"
	case BackendJIT:
		return "jit"
	default:
		return "unknown"
	}
}

// DefaultCyclesPerFrame is the classic Chip8 pacing spec.md §2
// suggests: "≈10-15 Chip8 instructions per 60Hz tick".
const DefaultCyclesPerFrame = 10

// Controller is the execution controller (C8). It owns the shared
// Machine (C1), the selected Backend, the block cache the cached/JIT
// backends install into (nil while the plain interpreter is active),
// and the host capability set.
type Controller struct {
	machine *chip8.Machine
	io      hostio.HostIO

	kind       BackendKind
	active     backend.Backend
	cache      *blockcache.Cache
	jitBackend *jit.Backend // non-nil only while kind == BackendJIT; owns the executable arena exclusively (spec.md §5)

	CyclesPerFrame int
}

// New returns a Controller over m and io, starting on the direct
// interpreter backend (spec.md's reference semantics).
func New(m *chip8.Machine, io hostio.HostIO) *Controller {
	return &Controller{
		machine:        m,
		io:             io,
		kind:           BackendInterpreter,
		active:         interpreter.New(),
		CyclesPerFrame: DefaultCyclesPerFrame,
	}
}

// Machine exposes the shared architectural state for hosts that need
// read access beyond what Draw/Beep callbacks already deliver (e.g. a
// keypad overlay reading Machine.Keys directly).
func (c *Controller) Machine() *chip8.Machine { return c.machine }

// Backend reports the currently selected backend's kind and display
// name.
func (c *Controller) Backend() (BackendKind, string) { return c.kind, c.active.Name() }

// SelectBackend switches the active execution strategy. Per spec.md
// §4.6, this flushes the block cache (cached/JIT payload formats are
// not interchangeable) but always preserves the Machine. Switching
// away from the JIT releases its executable arena (spec.md §5); it is
// only acquired again if the JIT is reselected.
func (c *Controller) SelectBackend(kind BackendKind) error {
	if kind == c.kind {
		return nil
	}

	if c.jitBackend != nil {
		if err := c.jitBackend.Close(); err != nil {
			return fmt.Errorf("release jit arena on backend switch: %w", err)
		}
		c.jitBackend = nil
	}

	switch kind {
	case BackendInterpreter:
		c.active = interpreter.New()
		c.cache = nil
	case BackendCachedTier1:
		c.active = cached1.New()
		c.cache = blockcache.New()
	case BackendCachedTier2:
		c.active = cached2.New()
		c.cache = blockcache.New()
	case BackendCachedTier3:
		c.active = cached3.New()
		c.cache = blockcache.New()
	case BackendJIT:
		jb, err := jit.New()
		if err != nil {
			return fmt.Errorf("select jit backend: %w", err)
		}
		c.jitBackend = jb
		c.cache = blockcache.New()
		c.cache.OnFlush = jb.OnCacheFlush()
		c.active = jb
	default:
		return fmt.Errorf("unknown backend kind %d", kind)
	}

	c.kind = kind
	return nil
}

// RunFrame executes CyclesPerFrame guest instructions (block-based
// backends finish the block that crosses the budget; see
// backend.Backend.RunQuantum), then decrements both timers once, per
// spec.md §4.6. It polls the host's
// key matrix once at the frame boundary (spec.md §6: "poll_keys...
// called at frame boundaries") and forwards Draw/Beep callbacks for
// whatever changed this frame. A paused or quit Machine is a no-op.
func (c *Controller) RunFrame() error {
	if c.machine.State != chip8.StateRunning {
		return nil
	}

	keys := c.io.PollKeys()
	for i, pressed := range keys {
		c.machine.SetKey(uint8(i), pressed)
	}

	_, err := c.active.RunQuantum(c.machine, c.cache, c.CyclesPerFrame)
	if err != nil {
		c.machine.State = chip8.StateQuit
		return err
	}

	if beepChanged := c.machine.TickTimers(); beepChanged {
		c.io.Beep(c.machine.SoundTimer > 0)
	}

	if c.machine.FB.Dirty {
		c.io.Draw(c.machine.FB)
		c.machine.FB.Dirty = false
	}

	return nil
}

// Step executes exactly one Chip8 instruction via the current
// backend and returns, per spec.md §4.6.
func (c *Controller) Step() error {
	if err := c.active.StepOne(c.machine, c.cache); err != nil {
		c.machine.State = chip8.StateQuit
		return err
	}
	if c.machine.FB.Dirty {
		c.io.Draw(c.machine.FB)
		c.machine.FB.Dirty = false
	}
	return nil
}

// Pause suspends frame dispatch; RunFrame becomes a no-op until
// Resume is called.
func (c *Controller) Pause() { c.machine.State = chip8.StatePaused }

// Resume undoes Pause.
func (c *Controller) Resume() {
	if c.machine.State == chip8.StatePaused {
		c.machine.State = chip8.StateRunning
	}
}

// TogglePause flips between running and paused, matching the
// teacher's renderer.TogglePause key binding.
func (c *Controller) TogglePause() {
	if c.machine.State == chip8.StatePaused {
		c.Resume()
		return
	}
	c.Pause()
}

// LoadROM resets the Machine to a cold state and loads rom at
// EntryPoint, flushing the block cache since any previously
// translated blocks are meaningless against the new program (spec.md
// §6).
func (c *Controller) LoadROM(rom []byte) error {
	if err := chip8.CheckROMSize(len(rom)); err != nil {
		return err
	}
	c.machine.Reset()
	if err := c.machine.LoadROM(rom); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.FlushAll()
	}
	return nil
}

// KeyEvent latches a single host key edge directly, per spec.md
// §4.6's key_event operation — an alternative to (or used alongside)
// HostIO.PollKeys for hosts that deliver discrete key events rather
// than a polled snapshot.
func (c *Controller) KeyEvent(idx uint8, pressed bool) {
	c.machine.SetKey(idx, pressed)
}

// Shutdown releases any OS-level resource the controller holds — only
// the JIT's executable arena, per spec.md §5.
func (c *Controller) Shutdown() error {
	if c.jitBackend != nil {
		err := c.jitBackend.Close()
		c.jitBackend = nil
		return err
	}
	return nil
}
