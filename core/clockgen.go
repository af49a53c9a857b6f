package core

// ClockGen derives the serial clock from the system clock with a
// programmable half-period divisor. The output toggles every load/2+1
// enabled ticks, giving f_sys/f_spi == load+2.
//
// Odd divisors are handled with a one-tick "bias" extension: when the
// countdown expires while a bias is latched, the tick is absorbed
// (no toggle, no edge) instead. Which half-phase gets lengthened follows
// the requested bias polarity, so the first and last serial edges line
// up with chip-select assertion and there is never a clock edge on the
// same tick as a chip-select transition.
type ClockGen struct {
	cnt  uint8
	bias bool
	clk  bool
}

// NewClockGen returns a generator in its reset state: counter expired,
// clock line high.
func NewClockGen() ClockGen {
	return ClockGen{clk: true}
}

// Clk is the current level of the undivided serial clock line.
func (g *ClockGen) Clk() bool { return g.clk }

// Edge is true on the tick the countdown expires with no bias extension
// pending. Consumers gate their own state updates on it.
func (g *ClockGen) Edge() bool { return g.cnt == 0 && !g.bias }

// Tick advances the generator one system clock. load is the divisor to
// reload on an edge; bias selects which clock phase is lengthened when
// load is odd. Nothing changes while ce is low.
func (g *ClockGen) Tick(ce bool, load uint8, bias bool) {
	if !ce {
		return
	}
	edge := g.Edge()
	if g.cnt == 0 {
		g.bias = false
	} else {
		g.cnt--
	}
	if edge {
		g.cnt = load >> 1
		g.bias = load&1 == 1 && g.clk != bias
		g.clk = !g.clk
	}
}
