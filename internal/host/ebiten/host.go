// Package ebiten adapts the ebitengine game loop, keyboard, and audio
// APIs into hostio.HostIO, grounded on the teacher's internal/renderer
// and internal/beep packages. It is the only package in this repo that
// imports github.com/hajimehoshi/ebiten/v2; nothing under internal/chip8,
// internal/blockcache, internal/backend, or internal/controller does.
package ebiten

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// ====================
// keyboard key mapping
// ====================
//
//	1 2 3 C  -> 1 2 3 4
//	4 5 6 D  -> Q W E R
//	7 8 9 E  -> A S D F
//	A 0 B F  -> Z X C V
var keyboardMapping = map[uint8]ebiten.Key{
	0x1: ebiten.Key1, 0x2: ebiten.Key2, 0x3: ebiten.Key3, 0xC: ebiten.Key4,
	0x4: ebiten.KeyQ, 0x5: ebiten.KeyW, 0x6: ebiten.KeyE, 0xD: ebiten.KeyR,
	0x7: ebiten.KeyA, 0x8: ebiten.KeyS, 0x9: ebiten.KeyD, 0xE: ebiten.KeyF,
	0xA: ebiten.KeyZ, 0x0: ebiten.KeyX, 0xB: ebiten.KeyC, 0xF: ebiten.KeyV,
}

// Host is the hostio.HostIO half of this adapter. ebiten.Game's own
// Draw method takes a *ebiten.Image, an incompatible signature from
// hostio.HostIO's Draw(chip8.Framebuffer) — Go forbids a type from
// having two methods named Draw regardless of signature — so this
// capability set and the ebiten.Game implementation (Game, in game.go)
// are necessarily two separate types sharing one *controller.Controller,
// rather than the teacher's single Renderer doing both.
type Host struct {
	beep *beeper

	mu sync.Mutex
	fb chip8.Framebuffer
}

func newHost(beep *beeper) *Host {
	return &Host{beep: beep}
}

// Draw is called by controller.Controller whenever the framebuffer
// changed (spec.md §6); Game.Draw reads the cached copy back out on
// ebiten's own display schedule.
func (h *Host) Draw(fb chip8.Framebuffer) {
	h.mu.Lock()
	h.fb = fb
	h.mu.Unlock()
}

func (h *Host) framebuffer() chip8.Framebuffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fb
}

// Beep reflects the sound timer's on/off state into the audio player.
func (h *Host) Beep(on bool) { h.beep.setOn(on) }

// PollKeys reads ebiten's current keyboard state through the classic
// Chip8 keypad mapping.
func (h *Host) PollKeys() [chip8.KeyPadSize]bool {
	var keys [chip8.KeyPadSize]bool
	for chip8Key, ebitenKey := range keyboardMapping {
		keys[chip8Key] = ebiten.IsKeyPressed(ebitenKey)
	}
	return keys
}

// RandUint8 never overrides the core PRNG; see hostio.HostIO's doc
// comment and DESIGN.md's Open Question entry on this hook.
func (*Host) RandUint8() (uint8, bool) { return 0, false }
