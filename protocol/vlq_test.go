package protocol

import (
	"bytes"
	"testing"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0,
		1,
		-1,
		31,
		32,
		-32,
		-33,
		95,
		96,
		127,
		-127,
		128,
		-128,
		255,
		-255,
		1000,
		-1000,
		65535,
		-65535,
		1000000,
		-1000000,
		1 << 26,
		-(1 << 26),
		1<<31 - 1,
		-(1 << 31),
	}

	for _, expected := range testCases {
		var output ScratchOutput
		EncodeVLQInt(&output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}

		if len(data) != 0 {
			t.Errorf("VLQ decode didn't consume all bytes for value %d: %d bytes remaining", expected, len(data))
		}
	}
}

func TestVLQEncodedLength(t *testing.T) {
	// Group boundaries of the 7-bit encoding with its sign rule: one
	// byte covers -32..95, two bytes cover -4096..12287, and so on.
	testCases := []struct {
		value int32
		len   int
	}{
		{0, 1},
		{95, 1},
		{96, 2},
		{-32, 1},
		{-33, 2},
		{3<<12 - 1, 2},
		{3 << 12, 3},
		{-(1 << 12), 2},
		{-(1<<12 + 1), 3},
		{-1, 1},
	}

	for _, tc := range testCases {
		var output ScratchOutput
		EncodeVLQInt(&output, tc.value)
		if got := len(output.Result()); got != tc.len {
			t.Errorf("value %d: encoded length %d, expected %d (bytes %v)",
				tc.value, got, tc.len, output.Result())
		}
	}
}

func TestVLQEncodeDecodeUint(t *testing.T) {
	testCases := []uint32{
		0,
		1,
		127,
		128,
		255,
		1000,
		65535,
		1000000,
		0x7FFFFFFF,
		0x80000000,
		0xFFFFFFFF,
	}

	for _, expected := range testCases {
		var output ScratchOutput
		EncodeVLQUint(&output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQUint(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
	}
}

func TestVLQBytes(t *testing.T) {
	testCases := [][]byte{
		{},
		{0x01},
		{0x01, 0x02, 0x03},
		{0xFF, 0xFE, 0xFD},
		make([]byte, 50),
	}

	for i, expected := range testCases {
		var output ScratchOutput
		EncodeVLQBytes(&output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQBytes(&data)
		if err != nil {
			t.Errorf("Test case %d: Failed to decode bytes: %v", i, err)
			continue
		}

		if !bytes.Equal(decoded, expected) {
			t.Errorf("Test case %d: expected %v, got %v", i, expected, decoded)
		}
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	data := []byte{0x80} // continuation bit set, nothing follows
	if _, err := DecodeVLQInt(&data); err != ErrShortBuffer {
		t.Errorf("Expected ErrShortBuffer, got %v", err)
	}

	data = nil
	if _, err := DecodeVLQUint(&data); err != ErrShortBuffer {
		t.Errorf("Expected ErrShortBuffer on empty input, got %v", err)
	}

	data = []byte{0x05, 0x01} // claims 5 bytes, carries 1
	if _, err := DecodeVLQBytes(&data); err != ErrShortBuffer {
		t.Errorf("Expected ErrShortBuffer on truncated byte string, got %v", err)
	}
}
