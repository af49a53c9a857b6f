package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by operations on a closed host transport.
var ErrClosed = errors.New("protocol: transport closed")

// ResponseHandler receives asynchronous responses from the controller.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host-side end of the link: it frames and sends
// commands, waits for the matching ACK, and feeds responses to a
// handler and a receive channel. A background goroutine owns the read
// side.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq uint32 // atomic; next sequence byte to send
	synced     uint32 // atomic bool

	input *FifoBuffer

	ackChan      chan Message
	responseChan chan Message

	responseHandler ResponseHandler

	writeMu sync.Mutex

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a transport over port.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   SeqDest,
		input:        NewFifoBuffer(512),
		ackChan:      make(chan Message, 1),
		responseChan: make(chan Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	atomic.StoreUint32(&t.synced, 1)
	go t.readLoop()
	return t
}

// SetResponseHandler registers a callback for asynchronous responses.
// Must be set before the first command if responses matter.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.responseHandler = handler
}

// SendCommand frames one command, writes it and waits for the ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout is SendCommand with an explicit ACK deadline.
// Commands that stall on controller back-pressure (a data-register
// write behind a full buffer) need a deadline covering the in-flight
// transfer.
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	var scratch ScratchOutput
	EncodeVLQUint(&scratch, uint32(cmdID))
	if args != nil {
		args(&scratch)
	}

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	frame, err := appendFrame(nil, seq, scratch.Result())
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	_, err = t.port.Write(frame)
	t.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return t.waitForAck(timeout)
}

func (t *HostTransport) waitForAck(timeout time.Duration) error {
	select {
	case ack := <-t.ackChan:
		// The controller acknowledges with the sequence it expects
		// next, one past the frame we just sent.
		expected := nextSeq(uint8(atomic.LoadUint32(&t.currentSeq)))
		if ack.Sequence != expected {
			return fmt.Errorf("sequence mismatch: expected 0x%02x, got 0x%02x",
				expected, ack.Sequence)
		}
		atomic.StoreUint32(&t.currentSeq, uint32(expected))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("ACK timeout after %v", timeout)
	case <-t.stopChan:
		return ErrClosed
	}
}

// ReceiveResponse returns the next response frame, waiting up to
// timeout.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Message, error) {
	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-time.After(timeout):
		return Message{}, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return Message{}, ErrClosed
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)
	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}
		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			t.processInput()
		}
		if err != nil {
			if err == io.EOF {
				return
			}
			select {
			case <-t.stopChan:
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

func (t *HostTransport) processInput() {
	data := t.input.Data()

	for len(data) > 0 {
		if atomic.LoadUint32(&t.synced) == 0 {
			i := 0
			for ; i < len(data); i++ {
				if data[i] == SyncByte {
					break
				}
			}
			if i == len(data) {
				data = nil
				break
			}
			data = data[i+1:]
			atomic.StoreUint32(&t.synced, 1)
			continue
		}

		msg, rest, st := scanFrame(data)
		data = rest
		if st == scanSkip {
			continue
		}
		if st == scanNeedMore {
			break
		}
		if st == scanDesync {
			atomic.StoreUint32(&t.synced, 0)
			continue
		}

		// Payload aliases the FIFO window; detach it before the
		// window is popped.
		msg.Payload = append([]byte(nil), msg.Payload...)
		t.dispatch(msg)
	}

	consumed := t.input.Available() - len(data)
	if consumed > 0 {
		t.input.Pop(consumed)
	}
}

func (t *HostTransport) dispatch(msg Message) {
	if len(msg.Payload) == 0 {
		// ACK/NAK frame.
		select {
		case t.ackChan <- msg:
		default:
		}
		return
	}

	if t.responseHandler != nil {
		payload := append([]byte(nil), msg.Payload...)
		if cmdID, err := DecodeVLQUint(&payload); err == nil {
			_ = t.responseHandler(uint16(cmdID), &payload)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		// Receiver is behind; drop the oldest response.
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the read loop and closes the underlying port.
func (t *HostTransport) Close() error {
	close(t.stopChan)
	err := t.port.Close()
	<-t.doneChan
	return err
}
