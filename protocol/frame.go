// Package protocol implements the framed wire protocol that carries
// register accesses between a host and the SPI controller model:
// length/sequence header, VLQ-encoded command payload, CRC16 and a
// sync byte trailer, with ACK/NAK flow control on a 16-entry sequence
// window.
package protocol

import "errors"

const (
	// Frame geometry: a length/sequence header, the payload, then a
	// big-endian CRC16 and the sync byte.
	HeaderSize   = 2
	TrailerSize  = 3
	MinFrameSize = HeaderSize + TrailerSize
	MaxFrameSize = 64
	MaxPayload   = MaxFrameSize - HeaderSize - TrailerSize

	posLength   = 0
	posSequence = 1

	// SyncByte ends every frame. A valid sequence byte carries SeqDest
	// in its high bits and a window counter under SeqMask.
	SyncByte = 0x7E
	SeqMask  = 0x0F
	SeqDest  = 0x10
)

// ErrFrameTooLong is returned when a payload cannot fit a frame.
var ErrFrameTooLong = errors.New("protocol: frame too long")

// Message is one received frame, trimmed to its payload.
type Message struct {
	Sequence uint8
	Payload  []byte
}

// appendFrame appends a complete frame carrying payload to dst.
func appendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MinFrameSize + len(payload)
	if n > MaxFrameSize {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, uint8(n), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), SyncByte), nil
}

// scanStatus reports the outcome of pulling one frame off a stream.
type scanStatus int

const (
	scanOK       scanStatus = iota // valid frame extracted
	scanSkip                       // leading sync byte consumed
	scanNeedMore                   // incomplete frame, wait for data
	scanDesync                     // corrupt stream, resynchronize
)

// scanFrame extracts the next frame from data. On scanOK the message
// payload aliases data; callers that keep it across buffer reuse must
// copy.
func scanFrame(data []byte) (Message, []byte, scanStatus) {
	if data[0] == SyncByte {
		return Message{}, data[1:], scanSkip
	}
	if len(data) < MinFrameSize {
		return Message{}, data, scanNeedMore
	}
	n := int(data[posLength])
	if n < MinFrameSize || n > MaxFrameSize {
		return Message{}, data, scanDesync
	}
	seq := data[posSequence]
	if seq&^SeqMask != SeqDest {
		return Message{}, data, scanDesync
	}
	if len(data) < n {
		return Message{}, data, scanNeedMore
	}
	if data[n-1] != SyncByte {
		return Message{}, data, scanDesync
	}
	crc := uint16(data[n-TrailerSize])<<8 | uint16(data[n-TrailerSize+1])
	if crc != CRC16(data[:n-TrailerSize]) {
		return Message{}, data, scanDesync
	}
	msg := Message{
		Sequence: seq,
		Payload:  data[HeaderSize : n-TrailerSize],
	}
	return msg, data[n:], scanOK
}

// nextSeq advances a sequence byte through its 16-entry window.
func nextSeq(seq uint8) uint8 {
	return (seq+1)&SeqMask | SeqDest
}
