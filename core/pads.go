package core

// Line is the logical view of one tri-stated pin: Level is only
// meaningful while Driven is set. Electrical behavior is out of scope;
// this is the contract external models hook into.
type Line struct {
	Driven bool
	Level  bool
}

// CSLines is the chip-select vector, one bit per selectable device.
type CSLines struct {
	Driven bool
	Level  uint16
}

// Pads is the pin interface of the controller. CSn, Clk and MOSI are
// outputs refreshed from controller state every tick; MISO and MOSIIn
// are inputs owned by whatever is wired to the bus. In half-duplex
// mode the mosi line carries both directions and MOSIIn is sampled; in
// full-duplex mode MISO is sampled when present, else the controller
// falls back to MOSIIn.
type Pads struct {
	CSn  CSLines
	Clk  Line
	MOSI Line

	MOSIIn  bool
	MISO    bool
	HasMISO bool
}

// update recomputes the output pads from controller state.
//
//	cs      combinational chip-select from the sequencer
//	csMask  active mask latched at transfer start
func (p *Pads) update(cfg Config, cs bool, csMask uint16, clk, out, oe bool) {
	driven := !cfg.Offline

	// Selected bits follow csMask while a transfer is active; the
	// whole vector is inverted for active-low polarity (the default).
	var sel uint16
	if cs {
		sel = csMask
	}
	deassert := uint16(0xFFFF)
	if cfg.CSPolarity {
		deassert = 0
	}
	p.CSn = CSLines{Driven: driven, Level: sel ^ deassert}

	p.Clk = Line{Driven: driven, Level: (clk && cs) != cfg.ClkPol}

	p.MOSI = Line{
		Driven: driven && cs && (oe || !cfg.HalfDuplex),
		Level:  out,
	}
}

// in selects the serial input bit per the configured duplex mode.
func (p *Pads) in(cfg Config) bool {
	if cfg.HalfDuplex {
		return p.MOSIIn
	}
	if p.HasMISO {
		return p.MISO
	}
	return p.MOSIIn
}
