package blockcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func block(start, length uint16) *Block {
	return &Block{StartPC: start, Length: length, Term: TermJump, Payload: "x"}
}

func TestInstallAndLookup(t *testing.T) {
	c := New()
	b := block(0x200, 6)
	h := c.Install(b)

	require.True(t, h.Valid())
	got, ok := c.Lookup(0x200)
	require.True(t, ok)
	require.Same(t, b, got.Block())
}

func TestOverlappingInstallEvictsConflicts(t *testing.T) {
	c := New()
	h1 := c.Install(block(0x200, 10)) // covers [0x200, 0x20A)
	require.True(t, h1.Valid())

	c.Install(block(0x204, 4)) // covers [0x204, 0x208), overlaps h1

	require.False(t, h1.Valid(), "overlapping install must evict the old block")
	require.Equal(t, 1, c.Len())
}

func TestInvalidateRangeRemovesIntersecting(t *testing.T) {
	c := New()
	hA := c.Install(block(0x200, 4)) // [0x200,0x204)
	hB := c.Install(block(0x300, 4)) // [0x300,0x304), disjoint

	c.InvalidateRange(0x202, 0x203)

	require.False(t, hA.Valid())
	require.True(t, hB.Valid())
	require.Equal(t, 1, c.Len())
}

func TestFlushAllClearsEverythingAndCallsOnFlush(t *testing.T) {
	c := New()
	c.Install(block(0x200, 2))
	c.Install(block(0x300, 2))

	flushed := false
	c.OnFlush = func() { flushed = true }
	c.FlushAll()

	require.Equal(t, 0, c.Len())
	require.True(t, flushed)
}

// Scenario 5 (spec.md §8): a self-modifying ROM writes 0x12 0x00 to
// 0x202 via Fx55, then jumps to 0x202. Any cached block covering
// 0x202 must be gone afterward, and the next lookup at 0x202 misses
// so the backend is forced to re-translate against the new bytes.
func TestSelfModifyingCodeInvalidatesCoveringBlock(t *testing.T) {
	c := New()
	h := c.Install(block(0x200, 8)) // a block spanning 0x200..0x207
	require.True(t, h.Valid())

	// Fx55 storing 2 bytes at I=0x202 invalidates exactly [0x202,0x204).
	c.InvalidateRange(0x202, 0x204)

	require.False(t, h.Valid())
	_, ok := c.Lookup(0x200)
	require.False(t, ok, "the block starting at 0x200 must be gone too, since it covered 0x202")
}

func TestNoOverlapInvariantAcrossManyBlocks(t *testing.T) {
	c := New()
	starts := []uint16{0x200, 0x210, 0x220, 0x230}
	handles := make([]Handle, len(starts))
	for i, s := range starts {
		handles[i] = c.Install(block(s, 4))
	}
	for _, h := range handles {
		require.True(t, h.Valid())
	}

	// installing a block that overlaps two existing ones evicts both
	c.Install(block(0x212, 20)) // covers [0x212, 0x226) -> overlaps 0x210 and 0x220 blocks
	require.False(t, handles[1].Valid())
	require.False(t, handles[2].Valid())
	require.True(t, handles[0].Valid())
	require.True(t, handles[3].Valid())
}
