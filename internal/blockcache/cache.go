package blockcache

import "github.com/arlobrennan/chip8x/internal/chip8"

const (
	// pageSize matches spec.md §9's suggested "simpler per-page
	// bitmap for 4 KiB of RAM": 256 pages of 16 bytes cover all of
	// Chip8's address space with one coarse bucket per bucket of
	// guest addresses, letting InvalidateRange avoid a full scan of
	// every live block.
	pageSize  = 16
	pageCount = 0x1000 / pageSize
)

func pageOf(addr uint16) int { return int(addr/pageSize) % pageCount }

// Cache is the block cache (C4): it maps guest PC to Block and
// enforces spec.md §3's no-overlapping-coverage invariant and §4.3's
// coherency protocol.
type Cache struct {
	blocks map[uint16]*Block
	pages  [pageCount][]*Block

	nextEpoch uint64

	// OnFlush, if set, is called by FlushAll after every block has
	// been dropped. The JIT backend wires this to its Arena.Reset so
	// FlushAll's "reset the executable arena if JIT is active"
	// clause (spec.md §4.3) happens without the cache importing the
	// jit package.
	OnFlush func()
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{blocks: make(map[uint16]*Block)}
}

// Lookup returns a Handle to the live block starting exactly at pc, if
// any.
func (c *Cache) Lookup(pc uint16) (Handle, bool) {
	b, ok := c.blocks[pc]
	if !ok {
		return Handle{}, false
	}
	return Handle{block: b, epoch: b.epoch}, true
}

// Install registers block, first evicting every live block whose
// coverage overlaps it (spec.md §3's no-overlap invariant: "if a new
// block would overlap, conflicting blocks are evicted first").
func (c *Cache) Install(block *Block) Handle {
	lo, hi := block.Coverage()
	c.InvalidateRange(lo, hi)

	c.nextEpoch++
	block.epoch = c.nextEpoch
	c.blocks[block.StartPC] = block

	startPage := pageOf(lo)
	endPage := pageOf(hi - 1)
	if hi == lo {
		endPage = startPage
	}
	for p := startPage; p <= endPage; p++ {
		c.pages[p] = append(c.pages[p], block)
	}

	return Handle{block: block, epoch: block.epoch}
}

// InvalidateRange removes every live block whose coverage intersects
// [lo, hi). Every guest memory write — Fx33, Fx55, and any
// self-modifying store — must route through this exact call with the
// exact bytes written (spec.md §4.3, §9: "no back-doors").
func (c *Cache) InvalidateRange(lo, hi uint16) {
	if lo >= hi {
		return
	}

	seen := make(map[*Block]struct{})
	startPage := pageOf(lo)
	endPage := pageOf(hi - 1)
	for p := startPage; p <= endPage; p++ {
		kept := c.pages[p][:0]
		for _, b := range c.pages[p] {
			if _, dup := seen[b]; dup {
				continue
			}
			if b.overlaps(lo, hi) {
				seen[b] = struct{}{}
				continue
			}
			kept = append(kept, b)
		}
		c.pages[p] = kept
	}

	for b := range seen {
		delete(c.blocks, b.StartPC)
		b.epoch = 0 // stale-handle sentinel: no real block ever has epoch 0
	}
}

// FlushAll removes every live block (and the executable arena, via
// OnFlush, if a JIT backend is active).
func (c *Cache) FlushAll() {
	c.blocks = make(map[uint16]*Block)
	for p := range c.pages {
		c.pages[p] = nil
	}
	if c.OnFlush != nil {
		c.OnFlush()
	}
}

// Len reports the number of live blocks, for tests and diagnostics.
func (c *Cache) Len() int { return len(c.blocks) }

// Wire points m.OnMemWrite at c.InvalidateRange, or clears it if c is
// nil. Every backend's RunQuantum and StepOne call this before
// executing any guest instructions, so chip8.Machine's single
// write-notification hook always matches whichever cache (if any) the
// controller is currently driving it with — the plain interpreter
// passes a nil Cache and leaves the hook cleared, since it installs
// nothing for a stale write to invalidate.
func Wire(m *chip8.Machine, c *Cache) {
	if c == nil {
		m.OnMemWrite = nil
		return
	}
	m.OnMemWrite = c.InvalidateRange
}
