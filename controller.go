package x328

// controllerWriteBufCap and controllerReadBufCap bound the response buffers
// the Controller allocates per exchange: a write response is at most a
// single byte, a read response at most STX + 4 + 6 + ETX + BCC.
const (
	controllerWriteBufCap = 17
	controllerReadBufCap  = 16
)

// Controller drives the bus-master side of an exchange: build the command
// bytes, hand them to the transport, then feed back whatever bytes the
// transport reads until the exchange resolves. Only one exchange may be in
// flight at a time: dispensing a handle (Write/Read/ReadParameterAgain/
// ReadNext/ReadPrevious/ReadSame) marks the Controller busy, and it stays
// busy until the dispensed handle is either driven to completion (Receive
// returns done) or explicitly abandoned with Cancel. A Controller won't
// build a new command while busy; since Go has no borrow checker to enforce
// the exclusive handle the protocol design calls for, this is checked at
// runtime instead and panics on misuse, the same way buffer.Consume does.
type Controller struct {
	lastRead map[int]Parameter
	busy     bool
}

// NewController creates an idle Controller.
func NewController() *Controller {
	return &Controller{lastRead: make(map[int]Parameter)}
}

func (c *Controller) markBusy() {
	if c.busy {
		panic("x328: controller: an exchange is already in progress")
	}
	c.busy = true
}

// Write prepares a write command addressed to address.
func (c *Controller) Write(address Address, parameter Parameter, value Value) *WriteSend {
	c.markBusy()
	return &WriteSend{ctrl: c, bytes: encodeWriteCommand(address, parameter, value)}
}

// Read prepares a full-form read command addressed to address. Unlike
// ReadNext/ReadPrevious/ReadSame this never emits the short form, and it
// immediately drops any read-again context held for address: only a
// successful reply re-establishes one.
func (c *Controller) Read(address Address, parameter Parameter) *ReadSend {
	delete(c.lastRead, address.Int())
	c.markBusy()
	return &ReadSend{ctrl: c, address: address, parameter: parameter, bytes: encodeReadCommand(address, parameter)}
}

// ReadParameterAgain prepares a read command for (address, parameter),
// using the appropriate short form (ACK/NAK/BS, one wire byte) when the
// previous successful read from address targeted a parameter within one
// step of parameter; otherwise it falls back to a full long-form read
// exactly like Read. A successful reply updates the read-again context to
// (address, parameter), whichever form was used.
func (c *Controller) ReadParameterAgain(address Address, parameter Parameter) *ReadSend {
	if last, ok := c.lastRead[address.Int()]; ok {
		var wire byte
		switch parameter.Int() - last.Int() {
		case 0:
			wire = nak
		case 1:
			wire = ack
		case -1:
			wire = bs
		default:
			return c.Read(address, parameter)
		}
		c.markBusy()
		return &ReadSend{ctrl: c, address: address, parameter: parameter, bytes: []byte{wire}}
	}
	return c.Read(address, parameter)
}

// ReadNext prepares the short-form "read the next higher parameter" command
// (wire byte ACK), continuing from address's last successfully read
// parameter. It fails if nothing has been successfully read from address
// yet, or if that parameter is already the highest possible (9999).
//
// This is a lower-level primitive than ReadParameterAgain: it always emits
// the short form or fails, rather than deciding which form to use.
func (c *Controller) ReadNext(address Address) (*ReadSend, error) {
	return c.readAgain(address, ack, Parameter.Next)
}

// ReadPrevious prepares the short-form "read the next lower parameter"
// command (wire byte BS).
func (c *Controller) ReadPrevious(address Address) (*ReadSend, error) {
	return c.readAgain(address, bs, Parameter.Prev)
}

// ReadSame prepares the short-form "repeat the last read" command (wire
// byte NAK).
func (c *Controller) ReadSame(address Address) (*ReadSend, error) {
	return c.readAgain(address, nak, func(p Parameter) (Parameter, bool) { return p, true })
}

func (c *Controller) readAgain(address Address, wire byte, step func(Parameter) (Parameter, bool)) (*ReadSend, error) {
	last, ok := c.lastRead[address.Int()]
	if !ok {
		return nil, protocolErrorf("no prior successful read to continue from")
	}
	next, ok := step(last)
	if !ok {
		return nil, ErrInvalidParameter
	}
	c.markBusy()
	return &ReadSend{ctrl: c, address: address, parameter: next, bytes: []byte{wire}}, nil
}

// WriteSend carries the bytes of a pending write command.
type WriteSend struct {
	ctrl  *Controller
	bytes []byte
}

// Bytes returns the command bytes to write to the bus.
func (s *WriteSend) Bytes() []byte { return s.bytes }

// Sent acknowledges transmission and returns a handle awaiting the node's
// reply.
func (s *WriteSend) Sent() *WriteRecv {
	return &WriteRecv{ctrl: s.ctrl, buf: newBuffer(controllerWriteBufCap)}
}

// Cancel abandons the command before it's sent, returning the Controller to
// idle without mutating any state.
func (s *WriteSend) Cancel() { s.ctrl.busy = false }

// WriteRecv awaits a node's reply to a write command.
type WriteRecv struct {
	ctrl *Controller
	buf  *buffer
}

// Receive feeds newly read response bytes. done is false while more data is
// required; once true, err is nil on ACK, ErrCommandFailed on NAK,
// ErrInvalidParameter on EOT, or a *ProtocolError for anything else.
func (r *WriteRecv) Receive(data []byte) (done bool, err error) {
	r.buf.Write(data)
	consumed, tok := parseWriteResponse(r.buf.Bytes())
	if consumed == 0 {
		return false, nil
	}
	r.buf.Consume(consumed)
	r.ctrl.busy = false

	switch tok.kind {
	case respWriteOk:
		return true, nil
	case respWriteFailed:
		return true, ErrCommandFailed
	case respInvalidParameter:
		return true, ErrInvalidParameter
	default:
		return true, protocolErrorf("unrecognised write response")
	}
}

// Cancel abandons the exchange while awaiting the node's reply, returning
// the Controller to idle without mutating any state.
func (r *WriteRecv) Cancel() { r.ctrl.busy = false }

// ReadSend carries the bytes of a pending read command (full-form or
// short-form).
type ReadSend struct {
	ctrl      *Controller
	address   Address
	parameter Parameter
	bytes     []byte
}

// Bytes returns the command bytes to write to the bus.
func (s *ReadSend) Bytes() []byte { return s.bytes }

// Sent acknowledges transmission and returns a handle awaiting the node's
// reply.
func (s *ReadSend) Sent() *ReadRecv {
	return &ReadRecv{ctrl: s.ctrl, address: s.address, parameter: s.parameter, buf: newBuffer(controllerReadBufCap)}
}

// Cancel abandons the command before it's sent, returning the Controller to
// idle without mutating any state.
func (s *ReadSend) Cancel() { s.ctrl.busy = false }

// ReadRecv awaits a node's reply to a read command.
type ReadRecv struct {
	ctrl      *Controller
	address   Address
	parameter Parameter
	buf       *buffer
}

// Receive feeds newly read response bytes. done is false while more data is
// required; once true, err is nil and value holds the node's reply on
// success, ErrInvalidParameter on EOT, or a *ProtocolError for a BCC
// mismatch, a parameter that doesn't match what was asked for, or response
// bytes that don't match any recognised frame.
func (r *ReadRecv) Receive(data []byte) (done bool, value Value, err error) {
	r.buf.Write(data)
	consumed, tok := parseReadResponse(r.buf.Bytes())
	if consumed == 0 {
		return false, Value{}, nil
	}
	r.buf.Consume(consumed)
	r.ctrl.busy = false

	switch tok.kind {
	case respReadOk:
		if tok.parameter.Int() != r.parameter.Int() {
			return true, Value{}, protocolErrorf("read reply parameter doesn't match the request")
		}
		r.ctrl.lastRead[r.address.Int()] = r.parameter
		return true, tok.value, nil
	case respInvalidParameter:
		return true, Value{}, ErrInvalidParameter
	default:
		return true, Value{}, protocolErrorf("unrecognised read response")
	}
}

// Cancel abandons the exchange while awaiting the node's reply, returning
// the Controller to idle without mutating any state.
func (r *ReadRecv) Cancel() { r.ctrl.busy = false }

func encodeWriteCommand(address Address, parameter Parameter, value Value) []byte {
	buf := make([]byte, 0, 1+4+1+4+6+1+1)
	buf = append(buf, eot)
	ab := address.bytes()
	buf = append(buf, ab[:]...)
	buf = append(buf, stx)
	bodyStart := len(buf)
	pb := parameter.bytes()
	buf = append(buf, pb[:]...)
	buf = append(buf, value.bytes()...)
	buf = append(buf, etx)
	buf = append(buf, bcc(buf[bodyStart:]))
	return buf
}

func encodeReadCommand(address Address, parameter Parameter) []byte {
	buf := make([]byte, 0, 1+4+4+1)
	buf = append(buf, eot)
	ab := address.bytes()
	buf = append(buf, ab[:]...)
	pb := parameter.bytes()
	buf = append(buf, pb[:]...)
	buf = append(buf, enq)
	return buf
}
