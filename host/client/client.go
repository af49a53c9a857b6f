// Package client is the host-side view of a controller: it speaks the
// framed wire protocol over any stream and exposes register-level and
// transfer-level operations.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gospi/core"
	"gospi/host/serial"
	"gospi/protocol"
)

// Dictionary is the controller's identify payload, parsed.
type Dictionary struct {
	Version   string            `json:"version"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
	Config    map[string]uint32 `json:"config"`
}

// Client talks to one controller. Connect (or New), then Identify to
// fetch the command dictionary before any register operation.
type Client struct {
	tr   *protocol.HostTransport
	dict *Dictionary

	// StallTimeout bounds commands that legitimately wait on the
	// model: a data-register write behind a buffered transfer is not
	// acknowledged until the in-flight transfer completes.
	StallTimeout time.Duration
}

// New wraps an already-open stream.
func New(port io.ReadWriteCloser) *Client {
	return &Client{
		tr:           protocol.NewHostTransport(port),
		StallTimeout: 30 * time.Second,
	}
}

// Connect opens the serial device and wraps it.
func Connect(cfg *serial.Config) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return New(port), nil
}

// Close shuts the link down.
func (c *Client) Close() error { return c.tr.Close() }

// Dictionary returns the fetched dictionary, or nil before Identify.
func (c *Client) Dictionary() *Dictionary { return c.dict }

// Bootstrap command IDs: fixed so the dictionary itself is reachable.
const (
	idIdentifyResponse = 0
	idIdentify         = 1
)

// Identify fetches and parses the controller's dictionary.
func (c *Client) Identify() (*Dictionary, error) {
	var buf bytes.Buffer
	offset := uint32(0)
	const chunk = 40
	for i := 0; i < 1000; i++ {
		data, err := c.identifyChunk(offset, chunk)
		if err != nil {
			return nil, fmt.Errorf("identify at offset %d: %w", offset, err)
		}
		buf.Write(data)
		offset += uint32(len(data))
		if len(data) < chunk {
			break
		}
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(buf.Bytes(), dict); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	c.dict = dict
	return dict, nil
}

func (c *Client) identifyChunk(offset uint32, count uint8) ([]byte, error) {
	err := c.tr.SendCommand(idIdentify, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, offset)
		protocol.EncodeVLQUint(o, uint32(count))
	})
	if err != nil {
		return nil, err
	}

	payload, err := c.response(idIdentifyResponse, time.Second)
	if err != nil {
		return nil, err
	}
	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: sent %d, got %d", offset, respOffset)
	}
	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// response waits for the next response frame and checks its command ID.
func (c *Client) response(want uint16, timeout time.Duration) ([]byte, error) {
	msg, err := c.tr.ReceiveResponse(timeout)
	if err != nil {
		return nil, err
	}
	payload := msg.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if uint16(cmdID) != want {
		return nil, fmt.Errorf("unexpected response ID %d (want %d)", cmdID, want)
	}
	return payload, nil
}

func (c *Client) commandID(name string) (uint16, error) {
	if c.dict == nil {
		return 0, fmt.Errorf("dictionary not loaded")
	}
	id, ok := c.dict.Commands[formatOf(c.dict.Commands, name)]
	if !ok {
		return 0, fmt.Errorf("unknown command %q", name)
	}
	return uint16(id), nil
}

func (c *Client) responseID(name string) (uint16, error) {
	if c.dict == nil {
		return 0, fmt.Errorf("dictionary not loaded")
	}
	id, ok := c.dict.Responses[formatOf(c.dict.Responses, name)]
	if !ok {
		return 0, fmt.Errorf("unknown response %q", name)
	}
	return uint16(id), nil
}

// formatOf resolves a bare command name against the dictionary's
// "name arg=%type ..." format keys.
func formatOf(m map[string]int, name string) string {
	if _, ok := m[name]; ok {
		return name
	}
	prefix := name + " "
	for k := range m {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			return k
		}
	}
	return name
}

// WriteReg writes one controller register. A data-register write may
// stall on the double-buffering contract; StallTimeout bounds it.
func (c *Client) WriteReg(reg uint8, value uint32) error {
	id, err := c.commandID("reg_write")
	if err != nil {
		return err
	}
	return c.tr.SendCommandWithTimeout(id, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, uint32(reg))
		protocol.EncodeVLQUint(o, value)
	}, c.StallTimeout)
}

// ReadReg reads one controller register.
func (c *Client) ReadReg(reg uint8) (uint32, error) {
	id, err := c.commandID("reg_read")
	if err != nil {
		return 0, err
	}
	respID, err := c.responseID("reg_read_response")
	if err != nil {
		return 0, err
	}
	err = c.tr.SendCommand(id, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, uint32(reg))
	})
	if err != nil {
		return 0, err
	}
	payload, err := c.response(respID, time.Second)
	if err != nil {
		return 0, err
	}
	respReg, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, err
	}
	if respReg != uint32(reg) {
		return 0, fmt.Errorf("register mismatch: read %d, got %d", reg, respReg)
	}
	return protocol.DecodeVLQUint(&payload)
}

// SetConfig writes the config register. Effective immediately.
func (c *Client) SetConfig(cfg core.Config) error {
	return c.WriteReg(core.RegConfig, cfg.Bits())
}

// Status reads the config register back, including the live
// active/pending bits.
func (c *Client) Status() (core.Config, error) {
	v, err := c.ReadReg(core.RegConfig)
	if err != nil {
		return core.Config{}, err
	}
	return core.ConfigFromBits(v), nil
}

// Queue submits a transfer through raw register writes: descriptor,
// then data. Returns as soon as the transfer is buffered, so a second
// Queue chains back-to-back under chip select.
func (c *Client) Queue(x core.Xfer, data uint32) error {
	if err := c.WriteReg(core.RegXfer, x.Bits()); err != nil {
		return err
	}
	return c.WriteReg(core.RegData, data)
}

// WaitIdle polls until no transfer is active or pending, then returns
// the read data of the last completed transfer.
func (c *Client) WaitIdle() (uint32, error) {
	deadline := time.Now().Add(c.StallTimeout)
	for {
		st, err := c.Status()
		if err != nil {
			return 0, err
		}
		if !st.Active && !st.Pending {
			return c.ReadReg(core.RegData)
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("controller busy past deadline")
		}
	}
}

// Xfer runs one transfer synchronously on the controller and returns
// its read data.
func (c *Client) Xfer(x core.Xfer, data uint32) (uint32, error) {
	id, err := c.commandID("xfer")
	if err != nil {
		return 0, err
	}
	respID, err := c.responseID("xfer_response")
	if err != nil {
		return 0, err
	}
	err = c.tr.SendCommandWithTimeout(id, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, uint32(x.CS))
		protocol.EncodeVLQUint(o, uint32(x.WriteLen))
		protocol.EncodeVLQUint(o, uint32(x.ReadLen))
		protocol.EncodeVLQUint(o, data)
	}, c.StallTimeout)
	if err != nil {
		return 0, err
	}
	payload, err := c.response(respID, c.StallTimeout)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&payload)
}
