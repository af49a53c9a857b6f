package core

// Register addresses on the host bus. Word-addressed; each register is
// one 32-bit word.
const (
	RegData   uint8 = 0 // write buffer in, read buffer out
	RegXfer   uint8 = 1 // lengths and chip-select mask for the next transfer
	RegConfig uint8 = 2 // mode bits and divisors, effective immediately
)

// Config register bit assignments.
const (
	cfgOffline    = 1 << 0 // all pins released (reset state)
	cfgActive     = 1 << 1 // read-only: transfer driving the bus
	cfgPending    = 1 << 2 // read-only: transfer buffered, awaiting start
	cfgCSPolarity = 1 << 3
	cfgClkPol     = 1 << 4
	cfgClkPhase   = 1 << 5
	cfgLSBFirst   = 1 << 6
	cfgHalfDuplex = 1 << 7

	cfgDivWriteShift = 16
	cfgDivReadShift  = 24
)

// Config mirrors the config register. Writes take effect immediately,
// never buffered. Active and Pending are read-only status bits; values
// written to them are overwritten from live state every tick.
type Config struct {
	Offline    bool
	Active     bool
	Pending    bool
	CSPolarity bool
	ClkPol     bool
	ClkPhase   bool
	LSBFirst   bool
	HalfDuplex bool
	DivWrite   uint8
	DivRead    uint8
}

// Bits packs the register into its wire layout.
func (c Config) Bits() uint32 {
	var v uint32
	set := func(mask uint32, b bool) {
		if b {
			v |= mask
		}
	}
	set(cfgOffline, c.Offline)
	set(cfgActive, c.Active)
	set(cfgPending, c.Pending)
	set(cfgCSPolarity, c.CSPolarity)
	set(cfgClkPol, c.ClkPol)
	set(cfgClkPhase, c.ClkPhase)
	set(cfgLSBFirst, c.LSBFirst)
	set(cfgHalfDuplex, c.HalfDuplex)
	v |= uint32(c.DivWrite) << cfgDivWriteShift
	v |= uint32(c.DivRead) << cfgDivReadShift
	return v
}

// ConfigFromBits unpacks the wire layout.
func ConfigFromBits(v uint32) Config {
	return Config{
		Offline:    v&cfgOffline != 0,
		Active:     v&cfgActive != 0,
		Pending:    v&cfgPending != 0,
		CSPolarity: v&cfgCSPolarity != 0,
		ClkPol:     v&cfgClkPol != 0,
		ClkPhase:   v&cfgClkPhase != 0,
		LSBFirst:   v&cfgLSBFirst != 0,
		HalfDuplex: v&cfgHalfDuplex != 0,
		DivWrite:   uint8(v >> cfgDivWriteShift),
		DivRead:    uint8(v >> cfgDivReadShift),
	}
}

// CSWidth is the number of chip-select lines.
const CSWidth = 16

// Xfer is the transfer descriptor: immutable once a transfer starts, a
// write only affects the next transfer. Lengths are in bits; the sum
// must not exceed DataWidth for defined results.
type Xfer struct {
	CS       uint16
	WriteLen uint8
	ReadLen  uint8
}

// Bits packs the descriptor: chip-select mask in the low word, the
// 6-bit lengths at bits 16 and 24 with 2-bit reserved gaps.
func (x Xfer) Bits() uint32 {
	return uint32(x.CS) |
		uint32(x.WriteLen&bitCountMask)<<16 |
		uint32(x.ReadLen&bitCountMask)<<24
}

// XferFromBits unpacks the wire layout, truncating lengths to the
// counter width.
func XferFromBits(v uint32) Xfer {
	return Xfer{
		CS:       uint16(v),
		WriteLen: uint8(v>>16) & bitCountMask,
		ReadLen:  uint8(v>>24) & bitCountMask,
	}
}

// BusRequest is one side of the two-phase register interface: the host
// holds a request until the controller acknowledges it. Reads and
// unstalled writes acknowledge within a cycle; a data-register write
// while another transfer is already buffered is held un-acknowledged
// until the in-flight transfer completes.
type BusRequest struct {
	Valid bool
	Write bool
	Addr  uint8
	Data  uint32
}
