package spidev

import (
	"bytes"
	"testing"

	"gospi/core"
)

func newLoopbackBus(t *testing.T) *Bus {
	t.Helper()
	ctrl := core.NewController()
	ctrl.Loopback = true
	return New(ctrl, 1)
}

func TestTransferRequiresConfigure(t *testing.T) {
	b := newLoopbackBus(t)
	if _, err := b.Transfer(0x5A); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// A byte clocked into a looped-back bus comes straight back: the eight
// output bits are the eight sampled input bits.
func TestTransferLoopback(t *testing.T) {
	for mode := Mode(0); mode < 4; mode++ {
		b := newLoopbackBus(t)
		if err := b.Configure(mode, 3); err != nil {
			t.Fatalf("mode %d: configure: %v", mode, err)
		}
		for _, v := range []byte{0x00, 0x01, 0x5A, 0xA5, 0xFF} {
			got, err := b.Transfer(v)
			if err != nil {
				t.Fatalf("mode %d: transfer %#02x: %v", mode, v, err)
			}
			if got != v {
				t.Errorf("mode %d: loopback transfer of %#02x returned %#02x", mode, v, got)
			}
		}
	}
}

func TestTxLoopback(t *testing.T) {
	b := newLoopbackBus(t)
	if err := b.Configure(0, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}

	w := []byte{1, 2, 3, 4}
	r := make([]byte, 4)
	if err := b.Tx(w, r); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if !bytes.Equal(r, w) {
		t.Errorf("received %v, expected %v", r, w)
	}

	// Short receive buffer discards the tail.
	r2 := make([]byte, 2)
	if err := b.Tx(w, r2); err != nil {
		t.Fatalf("tx short receive: %v", err)
	}
	if !bytes.Equal(r2, w[:2]) {
		t.Errorf("received %v, expected %v", r2, w[:2])
	}

	// Receive-only clocks zero bytes out.
	r3 := []byte{0xFF, 0xFF, 0xFF}
	if err := b.Tx(nil, r3); err != nil {
		t.Fatalf("tx receive-only: %v", err)
	}
	if !bytes.Equal(r3, []byte{0, 0, 0}) {
		t.Errorf("received %v, expected zeros", r3)
	}
}
