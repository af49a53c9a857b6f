package core

import (
	"encoding/json"
	"io"

	"gospi/protocol"
)

// Version identifies the controller model to hosts.
const Version = "gospi-0.1.0"

// dictionary is the identify payload: everything a host needs to talk
// to the controller without shared headers.
type dictionary struct {
	Version   string            `json:"version"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
	Config    map[string]uint32 `json:"config"`
}

// Server exposes one controller over the framed wire protocol. It is
// single-threaded: commands run on the Serve goroutine and tick the
// model inline, which is what makes the two-phase bus semantics (and
// their back-pressure) visible through the link.
type Server struct {
	ctrl *Controller
	reg  *CommandRegistry
	tr   *protocol.Transport
	dict []byte
}

// NewServer wraps ctrl with the wire command set.
func NewServer(ctrl *Controller) *Server {
	s := &Server{
		ctrl: ctrl,
		reg:  NewCommandRegistry(),
	}
	s.registerCommands()
	s.buildDictionary()
	return s
}

// Controller returns the wrapped model, mainly so harnesses can wire
// pads before serving.
func (s *Server) Controller() *Controller { return s.ctrl }

func (s *Server) buildDictionary() {
	commands, responses := s.reg.CommandsAndResponses()
	d := dictionary{
		Version:   Version,
		Commands:  commands,
		Responses: responses,
		Config: map[string]uint32{
			"DATA_WIDTH":      DataWidth,
			"CS_WIDTH":        CSWidth,
			"BIT_COUNT_WIDTH": BitCountWidth,
		},
	}
	// The dictionary is static; a marshal failure would be a
	// programming error surfaced by every test.
	s.dict, _ = json.Marshal(&d)
}

// Serve reads frames from rw until EOF, dispatching the commands they
// carry against the controller. Responses and ACKs are written back to
// rw as they are produced.
func (s *Server) Serve(rw io.ReadWriter) error {
	s.tr = protocol.NewTransport(rw, s.reg.Dispatch)
	fifo := protocol.NewFifoBuffer(1024)
	buf := make([]byte, 256)
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			fifo.Write(buf[:n])
			s.tr.Receive(fifo)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
