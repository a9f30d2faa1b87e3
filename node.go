package x328

// NodeState is the sealed set of phases a Node passes through. Each
// transition consumes the current handle and returns the next one, mirroring
// the move-semantics state machine of the original node implementation: Go
// has no type-level "consumed" marker, so the convention is that a handle
// must not be used again once one of its methods has returned a new one.
type NodeState interface {
	isNodeState()
}

// ReceiveData is a node's idle phase: it watches the bus for a command
// addressed to it.
type ReceiveData struct {
	address   Address
	buf       *buffer
	readAgain *Parameter
}

// ReadParam is reached once a full-form or short-form read command for
// parameter has been recognised. The caller looks the parameter up and
// replies by calling Ok, InvalidParameter, ReadFailed or NoReply.
type ReadParam struct {
	address   Address
	buf       *buffer
	readAgain *Parameter
	parameter Parameter
}

// WriteParam is reached once a full-form write command has been recognised.
// The caller applies (or rejects) the write and replies by calling Ok,
// Error or NoReply.
type WriteParam struct {
	address   Address
	buf       *buffer
	readAgain *Parameter
	parameter Parameter
	value     Value
}

// SendData carries reply bytes the caller must write to the bus. Calling
// Sent acknowledges transmission and returns to ReceiveData.
type SendData struct {
	address   Address
	buf       *buffer
	readAgain *Parameter
	reply     []byte
}

func (*ReceiveData) isNodeState() {}
func (*ReadParam) isNodeState()   {}
func (*WriteParam) isNodeState()  {}
func (*SendData) isNodeState()    {}

// NewNode creates a node listening for commands addressed to address.
func NewNode(address Address) *ReceiveData {
	return &ReceiveData{address: address, buf: newBuffer(defaultBufSize)}
}

// Address returns the node's own address.
func (r *ReceiveData) Address() Address { return r.address }

// Receive feeds newly arrived bytes into the node and drives the state
// machine as far as it can go without blocking: noise and commands
// addressed to other nodes are discarded internally, and the loop keeps
// draining the buffer until either more data is required (the returned
// state is r itself) or a command addressed to this node demands the
// caller's attention.
func (r *ReceiveData) Receive(data []byte) NodeState {
	r.buf.Write(data)

	for {
		consumed, tok := parseCommand(r.buf.Bytes())
		if consumed == 0 {
			return r
		}
		r.buf.Consume(consumed)

		// Any consumed token invalidates the previous read-again context:
		// it is only valid for the single short-form command that
		// immediately follows a successful read, and is re-established
		// solely by ReadParam.Ok. Capture it locally before clearing so
		// a read-again token can still act on it this iteration.
		readAgain := r.readAgain
		r.readAgain = nil

		forUs := tok.address.Int() == r.address.Int() || r.address.Int() == 0

		switch tok.kind {
		case cmdNeedData:
			// Noise or an unresolvable EOT-anchored span was discarded;
			// keep draining whatever remains.

		case cmdReadParameter, cmdWriteParameter, cmdInvalidPayload:
			if !forUs {
				// Traffic for another node: ignore it.
				break
			}
			switch tok.kind {
			case cmdReadParameter:
				return &ReadParam{address: r.address, buf: r.buf, readAgain: nil, parameter: tok.parameter}
			case cmdWriteParameter:
				return &WriteParam{address: r.address, buf: r.buf, readAgain: nil, parameter: tok.parameter, value: tok.value}
			default: // cmdInvalidPayload
				return &SendData{address: r.address, buf: r.buf, readAgain: nil, reply: []byte{nak}}
			}

		case cmdReadAgain, cmdReadNext, cmdReadPrev:
			if readAgain == nil {
				// We weren't the last node successfully read from: this
				// short-form command isn't ours to answer.
				break
			}
			param := *readAgain
			ok := true
			switch tok.kind {
			case cmdReadNext:
				param, ok = param.Next()
			case cmdReadPrev:
				param, ok = param.Prev()
			}
			if !ok {
				return &SendData{address: r.address, buf: r.buf, readAgain: nil, reply: []byte{eot}}
			}
			return &ReadParam{address: r.address, buf: r.buf, readAgain: nil, parameter: param}
		}

		if r.buf.Len() == 0 {
			return r
		}
	}
}

// Parameter returns the parameter the controller asked to read.
func (p *ReadParam) Parameter() Parameter { return p.parameter }

// Ok replies with value and anchors the read-again context on this
// parameter, so a following ACK/NAK/BS repeats or steps from it.
func (p *ReadParam) Ok(value Value) *SendData {
	param := p.parameter
	reply := encodeReadReply(param, value)
	return &SendData{address: p.address, buf: p.buf, readAgain: &param, reply: reply}
}

// InvalidParameter replies EOT: the parameter isn't implemented by this node.
func (p *ReadParam) InvalidParameter() *SendData {
	return &SendData{address: p.address, buf: p.buf, readAgain: p.readAgain, reply: []byte{eot}}
}

// ReadFailed replies NAK: the parameter exists but couldn't be read right now.
func (p *ReadParam) ReadFailed() *SendData {
	return &SendData{address: p.address, buf: p.buf, readAgain: p.readAgain, reply: []byte{nak}}
}

// NoReply returns to ReceiveData without transmitting anything.
func (p *ReadParam) NoReply() *ReceiveData {
	return &ReceiveData{address: p.address, buf: p.buf, readAgain: p.readAgain}
}

// Parameter returns the parameter the controller asked to write.
func (w *WriteParam) Parameter() Parameter { return w.parameter }

// Value returns the value the controller asked to write.
func (w *WriteParam) Value() Value { return w.value }

// Ok replies ACK: the write was applied.
func (w *WriteParam) Ok() *SendData {
	return &SendData{address: w.address, buf: w.buf, readAgain: w.readAgain, reply: []byte{ack}}
}

// Error replies NAK: the write was refused.
func (w *WriteParam) Error() *SendData {
	return &SendData{address: w.address, buf: w.buf, readAgain: w.readAgain, reply: []byte{nak}}
}

// NoReply returns to ReceiveData without transmitting anything.
func (w *WriteParam) NoReply() *ReceiveData {
	return &ReceiveData{address: w.address, buf: w.buf, readAgain: w.readAgain}
}

// Bytes returns the reply bytes the caller must write to the bus.
func (s *SendData) Bytes() []byte { return s.reply }

// Sent acknowledges that Bytes was transmitted and returns to ReceiveData.
func (s *SendData) Sent() *ReceiveData {
	return &ReceiveData{address: s.address, buf: s.buf, readAgain: s.readAgain}
}

// encodeReadReply builds the STX PPPP V…V ETX BCC read-response frame.
func encodeReadReply(param Parameter, value Value) []byte {
	reply := make([]byte, 0, 1+4+6+1+1)
	reply = append(reply, stx)
	pb := param.bytes()
	reply = append(reply, pb[:]...)
	reply = append(reply, value.bytes()...)
	reply = append(reply, etx)
	reply = append(reply, bcc(reply[1:]))
	return reply
}
