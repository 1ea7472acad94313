// Package blockcache implements the block cache (C4 in spec.md §2): it
// maps guest PC to compiled/decoded blocks and enforces the coherency
// protocol that keeps those blocks consistent with guest memory
// writes (spec.md §4.3, §9).
package blockcache

// TerminatorKind records why a block's translation stopped, mirroring
// spec.md §4.3's termination rule: a block ends only at control flow
// that is not statically the fall-through successor.
type TerminatorKind uint8

const (
	TermJump TerminatorKind = iota
	TermCall
	TermReturn
	TermSkip
	TermWaitKey
	TermMaxLength
)

// Block is the cache's unit of installation: a guest coverage range
// plus a backend-specific Payload (spec.md §3). Payload is one of:
//   - []chip8.Instruction                 (cached1)
//   - []cached2.ThreadedOp                (cached2)
//   - []cached3.SuperOp                   (cached3)
//   - jit.Compiled                        (jit)
type Block struct {
	StartPC uint16
	Length  uint16
	Term    TerminatorKind
	Payload any

	epoch uint64
}

// Coverage returns the half-open guest byte range [StartPC,
// StartPC+Length) this block was translated from.
func (b *Block) Coverage() (lo, hi uint16) {
	return b.StartPC, b.StartPC + b.Length
}

func (b *Block) overlaps(lo, hi uint16) bool {
	bLo, bHi := b.Coverage()
	return bLo < hi && lo < bHi
}

// Handle is a non-owning reference to a live Block. It carries the
// epoch the Block had when the handle was issued so a dispatcher can
// cheaply detect a stale handle after an eviction (spec.md §9: "An
// epoch counter or generation tag on handles detects stale references
// cheaply").
type Handle struct {
	block *Block
	epoch uint64
}

// Block returns the referenced Block, or nil if the handle has gone
// stale (the block it pointed to was evicted since the handle was
// issued).
func (h Handle) Block() *Block {
	if h.block == nil || h.block.epoch != h.epoch {
		return nil
	}
	return h.block
}

// Valid reports whether the handle still refers to a live block.
func (h Handle) Valid() bool { return h.Block() != nil }
