// Package serial abstracts the byte stream between a host and a
// controller, so the client can run over a real serial device, an
// in-process pipe, or a mock.
package serial

import "io"

// Port is the stream the host transport runs over.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port parameters.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud rate. Ignored by USB CDC devices.
	Baud int

	// Read timeout in milliseconds; 0 blocks.
	ReadTimeout int
}

// DefaultConfig returns the standard link settings for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
