// Package spidev adapts a controller model to the SPI bus interface
// from tinygo.org/x/drivers, so device drivers written against that
// interface can be exercised against the simulated master.
package spidev

import (
	"errors"

	"tinygo.org/x/drivers"

	"gospi/core"
)

// Bus presents one chip select on a controller as a drivers.SPI bus.
// Byte semantics require MSB-first full-duplex operation; Configure
// enforces that.
type Bus struct {
	ctrl *core.Controller
	cs   uint16
}

var _ drivers.SPI = (*Bus)(nil)

// ErrNotConfigured is returned for transfers before Configure.
var ErrNotConfigured = errors.New("spidev: bus not configured")

// Mode is one of the four standard SPI timing modes (CPOL<<1 | CPHA).
type Mode uint8

// New returns a bus driving the devices selected by cs.
func New(ctrl *core.Controller, cs uint16) *Bus {
	return &Bus{ctrl: ctrl, cs: cs}
}

// Configure brings the controller online in the given mode with the
// given clock divisor (f_sys/f_spi == div + 2), MSB first, full duplex.
func (b *Bus) Configure(mode Mode, div uint8) error {
	cfg := core.Config{
		ClkPol:   mode&2 != 0,
		ClkPhase: mode&1 != 0,
		DivWrite: div,
		DivRead:  div,
	}
	return b.ctrl.WriteReg(core.RegConfig, cfg.Bits())
}

// Transfer clocks one byte out and returns the byte clocked in.
func (b *Bus) Transfer(w byte) (byte, error) {
	if b.configOffline() {
		return 0, ErrNotConfigured
	}
	x := core.Xfer{CS: b.cs, WriteLen: 8}
	// The output byte occupies the MSB end of the data register; the
	// eight sampled input bits end up in the LSB end.
	if err := b.ctrl.Submit(x, uint32(w)<<(core.DataWidth-8)); err != nil {
		return 0, err
	}
	v, err := b.ctrl.WaitIdle()
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// Tx clocks out w while clocking in r, byte by byte. Either slice may
// be nil; extra receive bytes are clocked with zero writes and extra
// write bytes discard their reads.
func (b *Bus) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		in, err := b.Transfer(out)
		if err != nil {
			return err
		}
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

func (b *Bus) configOffline() bool {
	return b.ctrl.Config().Offline
}
