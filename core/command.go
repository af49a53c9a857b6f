package core

import (
	"errors"
	"strconv"
	"sync"

	"gospi/protocol"
)

// Command is one entry in the wire-protocol dictionary. Entries with a
// handler are host-to-controller commands; entries without one are
// controller-to-host responses, registered so they get dictionary IDs.
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "reg=%c value=%u"
	Handler protocol.CommandHandler
}

// CommandRegistry assigns dictionary IDs in registration order and
// dispatches incoming commands. Registration order matters for the
// bootstrap pair: identify_response must be 0 and identify 1, because
// a host must be able to fetch the dictionary before it knows any
// other ID.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

// NewCommandRegistry returns an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command and returns its assigned ID. Re-registering
// a name returns the existing ID.
func (r *CommandRegistry) Register(name, format string, handler protocol.CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.nameToID[name]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
	r.nameToID[name] = id
	return id
}

// Lookup returns a command by ID.
func (r *CommandRegistry) Lookup(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// ID returns the dictionary ID for a command name.
func (r *CommandRegistry) ID(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Dispatch runs the handler for one decoded command.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.Lookup(cmdID)
	if !ok || cmd.Handler == nil {
		return errors.New("unknown command ID " + strconv.Itoa(int(cmdID)))
	}
	return cmd.Handler(cmdID, data)
}

// CommandsAndResponses splits the dictionary for serialization: format
// strings ("name arg=%type ...") keyed to IDs, commands and responses
// separately.
func (r *CommandRegistry) CommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)
	for id := uint16(0); id < r.nextID; id++ {
		cmd, ok := r.commands[id]
		if !ok {
			continue
		}
		format := cmd.Name
		if cmd.Format != "" {
			format = cmd.Name + " " + cmd.Format
		}
		if cmd.Handler != nil {
			commands[format] = int(id)
		} else {
			responses[format] = int(id)
		}
	}
	return commands, responses
}
