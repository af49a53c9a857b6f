package protocol

import "io"

// CommandHandler processes one decoded command. The handler decodes
// its own arguments from data, advancing the slice.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the controller-side end of the link. It validates and
// re-sequences incoming frames, dispatches the commands they carry and
// acknowledges every frame; the acknowledge doubles as a NAK carrying
// the expected sequence when a frame was dropped. Commands run on the
// caller's goroutine before the ACK goes out, so a stalled register
// access holds off the host's next command — flow control falls out of
// the framing.
type Transport struct {
	w       io.Writer
	handler CommandHandler

	synced  bool
	nextSeq uint8 // expected sequence of the next host frame

	scratch ScratchOutput
	frame   []byte
	onReset func()
}

// NewTransport returns a transport writing frames to w and dispatching
// commands to handler.
func NewTransport(w io.Writer, handler CommandHandler) *Transport {
	return &Transport{
		w:       w,
		handler: handler,
		synced:  true,
		nextSeq: SeqDest,
	}
}

// SetResetCallback registers a hook invoked when the host restarts its
// sequence window.
func (t *Transport) SetResetCallback(fn func()) { t.onReset = fn }

// Receive drains input, processing every complete frame in it.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synced {
			// Discard up to and including the next sync byte.
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
			t.synced = true
			t.sendAck()
			continue
		}

		msg, rest, st := scanFrame(data)
		data = rest
		switch st {
		case scanSkip:
			continue
		case scanDesync:
			t.synced = false
			continue
		case scanNeedMore:
			goto done
		}

		// Sequence bookkeeping. A host that restarted announces
		// itself by rewinding to the window base.
		if msg.Sequence == SeqDest && t.nextSeq != SeqDest {
			t.nextSeq = SeqDest
			if t.onReset != nil {
				t.onReset()
			}
		}
		if msg.Sequence == t.nextSeq {
			t.nextSeq = nextSeq(msg.Sequence)
			t.dispatch(msg.Payload)
		}
		// ACK regardless: on a sequence mismatch this is the NAK
		// telling the host where the window stands.
		t.sendAck()
	}

done:
	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// dispatch runs every command packed into one frame payload.
func (t *Transport) dispatch(payload []byte) {
	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.synced = false
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			// Handler errors are not framing errors: stay in sync,
			// drop the rest of the frame.
			return
		}
	}
}

// SendResponse frames and writes one response message.
func (t *Transport) SendResponse(cmdID uint16, args func(output OutputBuffer)) error {
	t.scratch.Reset()
	EncodeVLQUint(&t.scratch, uint32(cmdID))
	if args != nil {
		args(&t.scratch)
	}
	frame, err := appendFrame(t.frame[:0], t.nextSeq, t.scratch.Result())
	if err != nil {
		return err
	}
	t.frame = frame
	_, err = t.w.Write(frame)
	return err
}

// sendAck writes the five-byte ACK/NAK frame for the current window.
func (t *Transport) sendAck() {
	frame, err := appendFrame(t.frame[:0], t.nextSeq, nil)
	if err != nil {
		return
	}
	t.frame = frame
	_, _ = t.w.Write(frame)
}
