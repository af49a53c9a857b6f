package core

// BitCountWidth is the width of the per-transfer bit counters. Counts
// up to 63 are representable even though only write+read <= DataWidth
// is meaningful; larger sums wrap through the shift register and are
// left undefined for callers.
const BitCountWidth = 6

const bitCountMask = 1<<BitCountWidth - 1

// BitCount tracks the bits remaining in the current transfer. Write
// bits are always consumed before read bits, no matter how the total
// is split, which is what pins the write-then-read phase order of a
// transfer.
type BitCount struct {
	nWrite uint8
	nRead  uint8
}

// Load sets the counters at transfer start. Values are truncated to
// the counter width.
func (b *BitCount) Load(write, read uint8) {
	b.nWrite = write & bitCountMask
	b.nRead = read & bitCountMask
}

// Write reports whether any write bits remain.
func (b *BitCount) Write() bool { return b.nWrite != 0 }

// Read reports whether any read bits remain.
func (b *BitCount) Read() bool { return b.nRead != 0 }

// Done reports whether the transfer has no bits left in either phase.
func (b *BitCount) Done() bool { return !b.Write() && !b.Read() }

// Tick consumes one bit on an enabled edge, write phase first.
func (b *BitCount) Tick(ce bool) {
	if !ce {
		return
	}
	if b.nWrite != 0 {
		b.nWrite--
	} else if b.nRead != 0 {
		b.nRead--
	}
}
