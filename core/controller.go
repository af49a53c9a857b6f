package core

import "errors"

// ErrBusTimeout is returned when a register access is not acknowledged
// within the tick budget. With the largest divisors and a full-length
// in-flight transfer an acknowledge can legitimately take tens of
// thousands of ticks; anything past the budget means the model is
// wedged, not busy.
var ErrBusTimeout = errors.New("gospi: register bus not acknowledged")

const maxBusTicks = 1 << 21

// Controller is the complete SPI master: the transfer machine plus the
// register file that feeds it and the pad outputs. It owns the
// config/xfer/data registers and the single-slot transfer buffer; the
// machine receives snapshots of the buffered values only on start
// ticks, never live references.
//
// Everything advances in one synchronous clock domain: each Tick
// evaluates all derived signals from current state, then commits the
// next state. At most one transfer is active and at most one more
// buffered; back-pressure is expressed purely as "data write not
// acknowledged until the slot frees".
type Controller struct {
	machine Machine
	pads    Pads

	config    Config
	xfer      Xfer
	dataRead  uint32
	dataWrite uint32
	pending   bool
	csMask    uint16

	req BusRequest
	ack bool

	// Loopback ties the serial input to the controller's own output
	// bit, mirroring a mosi-to-miso jumper. Used by tests and the
	// built-in demo wiring.
	Loopback bool
}

// NewController returns a controller in reset: offline, clock line
// high, nothing pending.
func NewController() *Controller {
	c := &Controller{
		machine: NewMachine(),
		config:  Config{Offline: true},
	}
	c.pads.update(c.config, false, 0, c.machine.CG.Clk(), c.machine.Reg.Out(), false)
	return c
}

// Pads exposes the pin interface for external wiring.
func (c *Controller) Pads() *Pads { return &c.pads }

// Config returns the live configuration, including the registered
// Active/Pending status bits.
func (c *Controller) Config() Config { return c.config }

// Active reports whether a transfer is driving the bus right now.
func (c *Controller) Active() bool { return c.machine.CS() }

// Pending reports whether a transfer is buffered awaiting start.
func (c *Controller) Pending() bool { return c.pending }

// SetRequest presents a register access on the bus. The request must
// be held (not replaced) until Ack is observed.
func (c *Controller) SetRequest(req BusRequest) { c.req = req }

// Ack is the registered acknowledge for the held request. It stays up
// for exactly one tick; the access commits at the end of that tick.
func (c *Controller) Ack() bool { return c.ack }

// BusData is the combinational read-back value for the held request's
// address. Status bits in a config read reflect live state registered
// one tick earlier.
func (c *Controller) BusData() uint32 {
	switch c.req.Addr {
	case RegData:
		return c.dataRead
	case RegXfer:
		return c.xfer.Bits()
	default:
		return c.config.Bits()
	}
}

// Tick advances the whole controller one system clock: evaluate every
// derived signal against current state, then commit.
func (c *Controller) Tick() {
	// Config-fed machine inputs are combinational: refresh them
	// before anything derived is evaluated.
	c.machine.DivWrite = c.config.DivWrite
	c.machine.DivRead = c.config.DivRead
	c.machine.ClkPhase = c.config.ClkPhase
	c.machine.Reg.SetLSBFirst(c.config.LSBFirst)

	// Evaluate. done and cs are combinational on the machine's
	// current state; start chains a buffered transfer either into an
	// idle bus or back-to-back on the completing edge.
	done := c.machine.Done()
	cs := c.machine.CS()
	// start is aligned to a generator edge: the sequencer only acts on
	// edges, so a start raised mid-period would load the counters and
	// clear pending without ever leaving idle. Holding pending until
	// the edge defers the load instead of dropping the transfer.
	start := c.pending && c.machine.CG.Edge() && (!cs || done)
	regData := c.machine.Reg.Data()
	pendingNow := c.pending
	ackNow := c.ack
	req := c.req

	in := c.pads.in(c.config)
	if c.Loopback {
		in = c.machine.Reg.Out()
	}

	// Commit: machine first.
	c.machine.Tick(start, in)

	// Register file. On the done edge the shift register still holds
	// the transfer's final contents (nothing samples or shifts on
	// that edge), so the value captured above is the read data.
	if done {
		c.dataRead = regData
	}
	if start {
		c.csMask = c.xfer.CS
		c.machine.Bits.Load(c.xfer.WriteLen, c.xfer.ReadLen)
		c.machine.Reg.SetData(c.dataWrite)
		c.pending = false
	}

	// Acknowledge rule: reads and non-data writes within a cycle;
	// data writes stall while another transfer is already buffered,
	// freeing on the completing edge.
	c.ack = req.Valid &&
		(!req.Write || req.Addr != RegData || !pendingNow || done)
	if ackNow {
		c.ack = false
		if req.Write {
			switch req.Addr {
			case RegData:
				c.dataWrite = req.Data
				c.pending = true
			case RegXfer:
				c.xfer = XferFromBits(req.Data)
			case RegConfig:
				c.config = ConfigFromBits(req.Data)
			}
		}
	}

	// Status bits lag live state by one tick, like any registered
	// copy of a combinational signal.
	c.config.Active = cs
	c.config.Pending = pendingNow

	c.pads.update(c.config, c.machine.CS(), c.csMask,
		c.machine.CG.Clk(), c.machine.Reg.Out(), c.machine.OE())
}

// WriteReg performs a complete bus write, ticking the model until the
// access is acknowledged and committed.
func (c *Controller) WriteReg(addr uint8, v uint32) error {
	c.req = BusRequest{Valid: true, Write: true, Addr: addr, Data: v}
	defer func() { c.req = BusRequest{} }()
	for i := 0; i < maxBusTicks; i++ {
		c.Tick()
		if c.ack {
			c.Tick() // commit cycle: write applies, ack clears
			return nil
		}
	}
	return ErrBusTimeout
}

// ReadReg performs a complete bus read.
func (c *Controller) ReadReg(addr uint8) (uint32, error) {
	c.req = BusRequest{Valid: true, Addr: addr}
	defer func() { c.req = BusRequest{} }()
	for i := 0; i < maxBusTicks; i++ {
		c.Tick()
		if c.ack {
			v := c.BusData()
			c.Tick()
			return v, nil
		}
	}
	return 0, ErrBusTimeout
}

// Submit queues a transfer: descriptor first, then the data write that
// marks it pending. The data write stalls if a transfer is already
// buffered, which is the double-buffering contract.
func (c *Controller) Submit(x Xfer, data uint32) error {
	if err := c.WriteReg(RegXfer, x.Bits()); err != nil {
		return err
	}
	return c.WriteReg(RegData, data)
}

// WaitIdle ticks until neither an active nor a pending transfer
// remains, then returns the read data of the last completed transfer.
func (c *Controller) WaitIdle() (uint32, error) {
	for i := 0; i < maxBusTicks; i++ {
		v, err := c.ReadReg(RegConfig)
		if err != nil {
			return 0, err
		}
		if v&(cfgActive|cfgPending) == 0 {
			return c.ReadReg(RegData)
		}
	}
	return 0, ErrBusTimeout
}
