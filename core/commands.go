package core

import (
	"errors"

	"gospi/protocol"
)

// ErrBadRegister is returned for accesses outside the register map.
var ErrBadRegister = errors.New("gospi: no such register")

// identifyChunkMax caps one identify response so the frame stays under
// the protocol's size limit.
const identifyChunkMax = 40

// registerCommands declares the wire command set. The bootstrap pair
// must come first: a host fetches the dictionary through identify
// (ID 1) and identify_response (ID 0) before it knows any other ID.
func (s *Server) registerCommands() {
	s.reg.Register("identify_response", "offset=%u data=%*s", nil)
	s.reg.Register("identify", "offset=%u count=%c", s.handleIdentify)

	s.reg.Register("reg_write", "reg=%c value=%u", s.handleRegWrite)
	s.reg.Register("reg_read", "reg=%c", s.handleRegRead)
	s.reg.Register("reg_read_response", "reg=%c value=%u", nil)

	s.reg.Register("xfer", "cs=%u write_len=%c read_len=%c data=%u", s.handleXfer)
	s.reg.Register("xfer_response", "data=%u", nil)
}

// handleIdentify serves one chunk of the JSON dictionary.
func (s *Server) handleIdentify(_ uint16, data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > identifyChunkMax {
		count = identifyChunkMax
	}

	var chunk []byte
	if offset < uint32(len(s.dict)) {
		end := offset + count
		if end > uint32(len(s.dict)) {
			end = uint32(len(s.dict))
		}
		chunk = s.dict[offset:end]
	}

	return s.respond("identify_response", func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, offset)
		protocol.EncodeVLQBytes(o, chunk)
	})
}

// handleRegWrite performs one register bus write. The write ticks the
// model until acknowledged, so a data write behind a full transfer
// buffer delays the frame's ACK: protocol flow control carries the
// bus back-pressure to the host.
func (s *Server) handleRegWrite(_ uint16, data *[]byte) error {
	reg, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if reg > uint32(RegConfig) {
		return ErrBadRegister
	}
	return s.ctrl.WriteReg(uint8(reg), value)
}

// handleRegRead performs one register bus read and responds with the
// value.
func (s *Server) handleRegRead(_ uint16, data *[]byte) error {
	reg, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if reg > uint32(RegConfig) {
		return ErrBadRegister
	}
	value, err := s.ctrl.ReadReg(uint8(reg))
	if err != nil {
		return err
	}
	return s.respond("reg_read_response", func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, reg)
		protocol.EncodeVLQUint(o, value)
	})
}

// handleXfer is the synchronous convenience: queue one transfer, run
// the model to completion and respond with the captured read data.
// Hosts that want chaining use raw reg_write/reg_read instead.
func (s *Server) handleXfer(_ uint16, data *[]byte) error {
	cs, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	writeLen, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	readLen, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	value, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	x := Xfer{CS: uint16(cs), WriteLen: uint8(writeLen), ReadLen: uint8(readLen)}
	if err := s.ctrl.Submit(x, value); err != nil {
		return err
	}
	result, err := s.ctrl.WaitIdle()
	if err != nil {
		return err
	}
	return s.respond("xfer_response", func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, result)
	})
}

func (s *Server) respond(name string, args func(o protocol.OutputBuffer)) error {
	id, ok := s.reg.ID(name)
	if !ok {
		return errors.New("gospi: unregistered response " + name)
	}
	return s.tr.SendResponse(id, args)
}
