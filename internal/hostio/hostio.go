// Package hostio declares the capability set the core consumes from
// its host (spec.md §6): drawing, beeping, polling keys, and an
// optional host-supplied RNG. Out-of-scope concerns — ROM loading off
// disk, windowing, key-mapping tables, audio synthesis, frame pacing —
// live entirely on the host side of this interface; nothing under
// internal/chip8, internal/blockcache, or internal/backend imports a
// concrete host adapter.
package hostio

import "github.com/arlobrennan/chip8x/internal/chip8"

// HostIO is the capability set the core needs from whatever is
// driving it (a GUI, a headless test harness, a fuzzer). Concrete
// implementations live outside the core, e.g. internal/host/ebiten.
type HostIO interface {
	// Draw is called after any frame in which the framebuffer
	// changed.
	Draw(fb chip8.Framebuffer)

	// Beep reflects a sound_timer transition between zero and
	// non-zero; on is true exactly while the timer is non-zero.
	Beep(on bool)

	// PollKeys is called once per frame boundary by the controller;
	// index i reports Chip8 key i's pressed state.
	PollKeys() [chip8.KeyPadSize]bool

	// RandUint8 lets a host supply its own entropy for Cxkk instead
	// of the core's PRNG. ok=false means "use the core PRNG" — per
	// spec.md §6 ("core MAY use its own PRNG"), the current backend
	// contract never actually calls this; it exists so a host
	// implementing it compiles and is ready for a future wiring
	// point without this interface having to change shape (see
	// DESIGN.md's Open Question on this).
	RandUint8() (value uint8, ok bool)
}
