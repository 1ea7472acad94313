//go:build amd64

package jit

import (
	"unsafe"

	"github.com/arlobrennan/chip8x/internal/chip8"
)

// fieldOffset is computed once via unsafe.Offsetof, rather than
// hardcoded, so emitted code cannot silently desync from
// chip8.Machine's actual layout if a field is ever reordered. Only
// the fields the inline (non-helper) emitters touch directly are
// listed; everything else is reached through runHelper, which
// operates on the *chip8.Machine value itself rather than raw
// offsets.
var fieldOffset = struct {
	V          int32
	I          int32
	DelayTimer int32
	SoundTimer int32
}{
	V:          int32(unsafe.Offsetof(zeroMachine.V)),
	I:          int32(unsafe.Offsetof(zeroMachine.I)),
	DelayTimer: int32(unsafe.Offsetof(zeroMachine.DelayTimer)),
	SoundTimer: int32(unsafe.Offsetof(zeroMachine.SoundTimer)),
}

var zeroMachine chip8.Machine
