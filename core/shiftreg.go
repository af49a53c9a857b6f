package core

// DataWidth is the width of the data register: the maximum number of
// bits a single transfer can write plus read.
const DataWidth = 32

// ShiftReg is the bidirectional transfer register. The same register
// outputs write data and captures read data: Out always presents the
// MSB (LSB when lsb-first) regardless of the configured write length,
// and Sample captures the input bit into the opposite end, one tick
// before the shift that would vacate it. A shift keeps the bit at the
// sampling end instead of inserting a zero, which is what makes the
// loopback contents periodic in width-1 shifts.
type ShiftReg struct {
	data uint32
	lsb  bool
}

// Data returns the register contents.
func (r *ShiftReg) Data() uint32 { return r.data }

// SetData loads the register. Used by the register file at transfer
// start.
func (r *ShiftReg) SetData(v uint32) { r.data = v }

// SetLSBFirst selects the shift direction: toward the LSB when set,
// toward the MSB otherwise.
func (r *ShiftReg) SetLSBFirst(lsb bool) { r.lsb = lsb }

// Out is the bit currently presented on the serial output.
func (r *ShiftReg) Out() bool {
	if r.lsb {
		return r.data&1 == 1
	}
	return r.data>>(DataWidth-1) == 1
}

// Tick applies one enabled clock edge. shift moves the register one
// position in the configured direction, preserving the bit at the
// sampling end; sample captures in into the sampling end (MSB when
// lsb-first, LSB otherwise). When both are asserted the sample wins on
// the contested bit.
func (r *ShiftReg) Tick(ce, shift, sample, in bool) {
	if !ce {
		return
	}
	if shift {
		if r.lsb {
			r.data = r.data>>1 | r.data&(1<<(DataWidth-1))
		} else {
			r.data = r.data<<1 | r.data&1
		}
	}
	if sample {
		if r.lsb {
			r.data &^= 1 << (DataWidth - 1)
			if in {
				r.data |= 1 << (DataWidth - 1)
			}
		} else {
			r.data &^= 1
			if in {
				r.data |= 1
			}
		}
	}
}
