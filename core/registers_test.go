package core

import "testing"

func TestConfigBitLayout(t *testing.T) {
	testCases := []struct {
		cfg      Config
		expected uint32
	}{
		{Config{Offline: true}, 1 << 0},
		{Config{Active: true}, 1 << 1},
		{Config{Pending: true}, 1 << 2},
		{Config{CSPolarity: true}, 1 << 3},
		{Config{ClkPol: true}, 1 << 4},
		{Config{ClkPhase: true}, 1 << 5},
		{Config{LSBFirst: true}, 1 << 6},
		{Config{HalfDuplex: true}, 1 << 7},
		{Config{DivWrite: 0xAB}, 0xAB << 16},
		{Config{DivRead: 0xCD}, 0xCD << 24},
	}

	for i, tc := range testCases {
		if got := tc.cfg.Bits(); got != tc.expected {
			t.Errorf("Test case %d: Bits() = %#08x, expected %#08x", i, got, tc.expected)
		}
		if got := ConfigFromBits(tc.expected); got != tc.cfg {
			t.Errorf("Test case %d: ConfigFromBits(%#08x) = %+v, expected %+v",
				i, tc.expected, got, tc.cfg)
		}
	}
}

func TestXferBitLayout(t *testing.T) {
	x := Xfer{CS: 0xBEEF, WriteLen: 5, ReadLen: 33}
	expected := uint32(0xBEEF) | 5<<16 | 33<<24
	if got := x.Bits(); got != expected {
		t.Errorf("Bits() = %#08x, expected %#08x", got, expected)
	}
	if got := XferFromBits(expected); got != x {
		t.Errorf("XferFromBits(%#08x) = %+v, expected %+v", expected, got, x)
	}
}

func TestXferLengthTruncation(t *testing.T) {
	// The two bits above each 6-bit length field are reserved and must
	// be ignored on unpack.
	v := uint32(0xC0C00001)
	x := XferFromBits(v)
	if x.WriteLen != 0 || x.ReadLen != 0 || x.CS != 1 {
		t.Errorf("reserved bits leaked into descriptor: %+v", x)
	}
}
