package core

// Sequencer state. The SETUP/HOLD split gives every serial edge a
// single duty: SETUP edges sample the input, HOLD edges optionally
// shift. Sampling always lands one edge before the shift that would
// discard the captured bit, so a just-read bit stays presented for one
// full half-period.
type machineState uint8

const (
	stateIdle machineState = iota
	stateSetup
	stateHold
	stateWait
)

// Machine is the transfer engine: clock generator, shift register and
// bit counter sequenced by a four-state machine that is only enabled on
// serial clock edges. It owns no register-file state; bit counts,
// divisors and data are loaded into it by the register file on the
// start tick.
type Machine struct {
	CG   ClockGen
	Reg  ShiftReg
	Bits BitCount

	// Effective immediately, fed from the live config register.
	DivWrite uint8
	DivRead  uint8
	ClkPhase bool

	state  machineState
	write0 bool // write phase was still active at the last shift edge
}

// NewMachine returns an idle machine with the clock generator in reset.
func NewMachine() Machine {
	return Machine{CG: NewClockGen()}
}

// CS reports whether a transfer is driving the bus: asserted in every
// state but idle, and held across chained transfers.
func (m *Machine) CS() bool { return m.state != stateIdle }

// Done pulses for exactly one tick: the edge in HOLD on which the bit
// counter ran out. Read data is valid and a chained transfer may start
// on this tick.
func (m *Machine) Done() bool {
	return m.CG.Edge() && m.Bits.Done() && m.state == stateHold
}

// OE is the output-enable for half-duplex direction switching: driven
// while write bits remain, plus the one extra shift cycle recorded in
// write0 so the line stays driven through the write-to-read boundary.
func (m *Machine) OE() bool { return m.write0 || m.Bits.Write() }

// sample and shift are the per-state register controls, combinational
// on the current state. start suppresses shifting so a register loaded
// on this very tick is not immediately shifted.
func (m *Machine) sample() bool { return m.state == stateSetup }

func (m *Machine) shift(start bool) bool {
	return m.state == stateHold && !start && !m.Bits.Done()
}

// clockLoad selects the write divisor while write bits remain (or the
// transfer has no read phase at all), switching to the read divisor
// exactly at the write-to-read boundary.
func (m *Machine) clockLoad() uint8 {
	if m.Bits.Write() || !m.Bits.Read() {
		return m.DivWrite
	}
	return m.DivRead
}

// next computes the state transition taken on an edge.
func (m *Machine) next(start, bitsDone bool) machineState {
	switch m.state {
	case stateIdle:
		if start {
			// CPHA=1 samples on the second edge: skip the first
			// setup so the initial edge passes without a sample.
			if m.ClkPhase {
				return stateWait
			}
			return stateSetup
		}
		return stateIdle
	case stateSetup:
		return stateHold
	case stateHold:
		if bitsDone && !start {
			if m.ClkPhase {
				return stateIdle
			}
			return stateWait
		}
		return stateSetup
	default: // stateWait
		if bitsDone {
			return stateIdle
		}
		return stateSetup
	}
}

// Tick advances the machine one system clock. All derived signals are
// evaluated against the current state before anything commits. start
// requests a transfer load this tick; in is the serial input bit as
// seen on the pads.
func (m *Machine) Tick(start, in bool) {
	edge := m.CG.Edge()
	bitsDone := m.Bits.Done()
	sample := m.sample()
	shift := m.shift(start)
	wasWriting := m.Bits.Write()

	// The generator free-runs up to its next edge while idle, then
	// freezes until a transfer keeps it enabled or a start consumes
	// the edge.
	cgEnable := start || m.CS() || !edge
	load := m.clockLoad()
	next := m.state
	if edge {
		next = m.next(start, bitsDone)
	}

	if edge && shift {
		m.write0 = wasWriting
	}
	m.CG.Tick(cgEnable, load, m.ClkPhase)
	m.Reg.Tick(edge, shift, sample, in)
	m.Bits.Tick(edge && sample)
	m.state = next
}
