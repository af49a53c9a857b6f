package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{0x01},
		{0x01, 0x02, 0x03, 0x04},
		make([]byte, MaxPayload),
	}

	for i, payload := range payloads {
		frame, err := appendFrame(nil, SeqDest, payload)
		if err != nil {
			t.Fatalf("Test case %d: appendFrame: %v", i, err)
		}
		if len(frame) != MinFrameSize+len(payload) {
			t.Errorf("Test case %d: frame length %d, expected %d",
				i, len(frame), MinFrameSize+len(payload))
		}

		msg, rest, st := scanFrame(frame)
		if st != scanOK {
			t.Fatalf("Test case %d: scan status %d, expected scanOK", i, st)
		}
		if len(rest) != 0 {
			t.Errorf("Test case %d: %d bytes left after scan", i, len(rest))
		}
		if msg.Sequence != SeqDest {
			t.Errorf("Test case %d: sequence 0x%02x, expected 0x%02x",
				i, msg.Sequence, SeqDest)
		}
		if !bytes.Equal(msg.Payload, payload) {
			t.Errorf("Test case %d: payload %v, expected %v", i, msg.Payload, payload)
		}
	}
}

func TestFrameTooLong(t *testing.T) {
	if _, err := appendFrame(nil, SeqDest, make([]byte, MaxPayload+1)); err != ErrFrameTooLong {
		t.Errorf("expected ErrFrameTooLong, got %v", err)
	}
}

func TestScanFrameLeadingSync(t *testing.T) {
	frame, _ := appendFrame([]byte{SyncByte}, SeqDest, []byte{0x01})

	_, rest, st := scanFrame(frame)
	if st != scanSkip {
		t.Fatalf("scan status %d, expected scanSkip", st)
	}
	msg, _, st := scanFrame(rest)
	if st != scanOK {
		t.Fatalf("scan after skip: status %d, expected scanOK", st)
	}
	if !bytes.Equal(msg.Payload, []byte{0x01}) {
		t.Errorf("payload %v, expected [1]", msg.Payload)
	}
}

func TestScanFrameTruncated(t *testing.T) {
	frame, _ := appendFrame(nil, SeqDest, []byte{0x01, 0x02})

	for n := 1; n < len(frame); n++ {
		if _, _, st := scanFrame(frame[:n]); st != scanNeedMore {
			t.Errorf("prefix of %d bytes: status %d, expected scanNeedMore", n, st)
		}
	}
}

func TestScanFrameCorrupt(t *testing.T) {
	good, _ := appendFrame(nil, SeqDest, []byte{0x01, 0x02})

	testCases := []struct {
		name   string
		mangle func([]byte)
	}{
		{"bad crc", func(f []byte) { f[2] ^= 0xFF }},
		{"bad sequence dest", func(f []byte) { f[posSequence] = 0x20 }},
		{"bad length", func(f []byte) { f[posLength] = MaxFrameSize + 1 }},
		{"missing sync", func(f []byte) { f[len(f)-1] = 0x00 }},
	}

	for _, tc := range testCases {
		frame := append([]byte(nil), good...)
		tc.mangle(frame)
		if _, _, st := scanFrame(frame); st != scanDesync {
			t.Errorf("%s: status %d, expected scanDesync", tc.name, st)
		}
	}
}

func TestNextSeqWindow(t *testing.T) {
	seq := uint8(SeqDest)
	seen := map[uint8]bool{}
	for i := 0; i < 16; i++ {
		if seq&^SeqMask != SeqDest {
			t.Fatalf("sequence 0x%02x left the destination window", seq)
		}
		if seen[seq] {
			t.Fatalf("sequence 0x%02x repeated before the window wrapped", seq)
		}
		seen[seq] = true
		seq = nextSeq(seq)
	}
	if seq != SeqDest {
		t.Errorf("after 16 steps sequence is 0x%02x, expected to wrap to 0x%02x", seq, SeqDest)
	}
}
