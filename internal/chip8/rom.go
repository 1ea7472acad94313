package chip8

import (
	"fmt"
	"os"
	"path"
)

// ROM is the out-of-core concern of reading guest bytes off disk,
// adapted from the teacher's rom.go. It never touches Machine state
// directly; LoadROM does the validated copy into RAM.
type ROM struct {
	Name string
	Data []byte
}

// LoadROMFile reads romPath and validates its size without creating
// any VM state, per spec.md §6 ("RomTooLarge... no VM state created").
func LoadROMFile(romPath string) (ROM, error) {
	data, err := os.ReadFile(romPath)
	if err != nil {
		return ROM{}, fmt.Errorf("read rom file %s: %w", romPath, err)
	}
	if err := CheckROMSize(len(data)); err != nil {
		return ROM{}, fmt.Errorf("rom file %s: %w", romPath, err)
	}
	return ROM{Name: path.Base(romPath), Data: data}, nil
}
