//go:build amd64

package jit

import (
	"errors"
	"log"
	"unsafe"

	"github.com/arlobrennan/chip8x/internal/blockcache"
	"github.com/arlobrennan/chip8x/internal/chip8"
)

// Compiled is the JIT's blockcache.Block payload (spec.md §3: "a
// pointer/handle into the executable arena plus its byte length"):
// the emitted machine code and the byte offset it was written to
// within the shared Arena.
type Compiled struct {
	Code   []byte
	Offset int
}

// Backend is the dynamic binary translator (C6). It plays the
// IntuitionEngine-style "runner" role named in SPEC_FULL.md: Emitter
// (emitter.go, amd64.go) does pure code generation, Backend owns the
// Arena, looks up/installs blocks, and invokes compiled code.
type Backend struct {
	arena *Arena
}

// New mmaps a fresh executable arena and returns a ready-to-use JIT
// backend.
func New() (*Backend, error) {
	arena, err := NewArena(DefaultArenaSize)
	if err != nil {
		return nil, err
	}
	return &Backend{arena: arena}, nil
}

func (*Backend) Name() string { return "jit-amd64" }

// OnCacheFlush returns the closure a controller wires to
// blockcache.Cache.OnFlush when the JIT is selected, so that
// Cache.FlushAll also resets the executable arena, per spec.md §4.3.
func (b *Backend) OnCacheFlush() func() {
	return func() {
		if err := b.arena.Reset(); err != nil {
			log.Printf("jit: reset arena: %v", err)
		}
	}
}

// Close releases the arena's mapping. The controller calls this on
// backend switch away from the JIT and on shutdown (spec.md §5).
func (b *Backend) Close() error { return b.arena.Close() }

func (b *Backend) translate(m *chip8.Machine, startPC uint16) (*blockcache.Block, error) {
	insts, term, length, err := blockcache.Decode(m, startPC)
	if err != nil {
		return nil, err
	}

	code := emitBlock(insts, startPC)
	if err := b.arena.BeginEmit(); err != nil {
		return nil, err
	}
	offset, err := b.arena.Write(code)
	if err != nil {
		return nil, err
	}
	if err := b.arena.FinishEmit(); err != nil {
		return nil, err
	}

	return &blockcache.Block{
		StartPC: startPC,
		Length:  length,
		Term:    term,
		Payload: Compiled{Code: code, Offset: offset},
	}, nil
}

// translateWithRetry implements spec.md §7's OutOfMemoryForJIT
// recovery: a failed write flushes the cache (which resets the arena
// via OnCacheFlush) and retries exactly once; a second failure
// escalates to fatal.
func (b *Backend) translateWithRetry(m *chip8.Machine, cache *blockcache.Cache, startPC uint16) (*blockcache.Block, error) {
	block, err := b.translate(m, startPC)
	if err == nil {
		return block, nil
	}
	if !errors.Is(err, chip8.ErrOutOfMemoryForJIT) {
		return nil, err
	}
	cache.FlushAll()
	return b.translate(m, startPC)
}

// enter calls into a compiled block's code. The block always leaves
// its result (the failing instruction's own PC on error, or the next
// guest PC on success) in its return register; callers never need to
// special-case which it is before assigning m.PC, matching how the
// interpreter leaves m.PC at the failing instruction's address on
// error (exec.go's Apply only advances PC on the success path).
func (b *Backend) enter(m *chip8.Machine, block *blockcache.Block) error {
	compiled := block.Payload.(Compiled)
	entry := b.arena.Entry(compiled.Offset)
	next := callBlock(entry, unsafe.Pointer(m))
	m.PC = uint16(next) & 0x0FFF

	if pendingErr != nil {
		err := pendingErr
		pendingErr = nil
		return err
	}
	return nil
}

func (b *Backend) RunQuantum(m *chip8.Machine, cache *blockcache.Cache, maxInstrs int) (int, error) {
	blockcache.Wire(m, cache)
	executed := 0
	for executed < maxInstrs {
		if m.WaitingForKey {
			m.AnyKeyReleaseEdge()
			return executed + 1, nil
		}

		pc := m.PC
		var block *blockcache.Block
		if h, ok := cache.Lookup(pc); ok {
			block = h.Block()
		}
		if block == nil {
			var err error
			block, err = b.translateWithRetry(m, cache, pc)
			if err != nil {
				return executed, err
			}
			cache.Install(block)
		}

		instrCount := int(block.Length / 2)
		if err := b.enter(m, block); err != nil {
			// only a block's terminator can ever raise an error (see
			// helpers.go), so every instruction before it succeeded.
			return executed + instrCount - 1, err
		}
		executed += instrCount
		if m.WaitingForKey {
			return executed, nil
		}
	}
	return executed, nil
}

// StepOne executes exactly one instruction directly against Machine,
// equivalent to invoking the interpreter for this one step — spec.md
// §4.6 explicitly allows either forcing a single-instruction compiled
// block or this (simpler, arena-churn-free) equivalent.
func (*Backend) StepOne(m *chip8.Machine, cache *blockcache.Cache) error {
	blockcache.Wire(m, cache)
	if m.WaitingForKey {
		m.AnyKeyReleaseEdge()
		return nil
	}
	pc := m.PC
	word := m.FetchWord(pc)
	inst, err := chip8.Decode(word, pc)
	if err != nil {
		return err
	}
	next, err := chip8.Apply(m, inst, pc)
	if err != nil {
		return err
	}
	m.PC = next
	return nil
}
