package x328

import "log"

// scanExpect tracks what kind of response the Scanner expects to see next
// on the node→controller wire, based on the most recent command it decoded
// on the controller→node wire.
type scanExpect int

const (
	expectCommand scanExpect = iota
	expectWriteResponse
	expectReadResponse
)

// ControllerEventKind identifies which of the three events ObserveCommand
// can report.
type ControllerEventKind int

const (
	// ControllerEventRead reports a decoded read command (full-form or
	// read-again).
	ControllerEventRead ControllerEventKind = iota
	// ControllerEventWrite reports a decoded write command.
	ControllerEventWrite
	// ControllerEventNodeTimeout reports that the controller issued a new
	// command while a response to the previous one was still expected.
	ControllerEventNodeTimeout
)

// ControllerEvent reports one thing the Scanner observed on the
// controller→node wire.
type ControllerEvent struct {
	Kind      ControllerEventKind
	Address   Address
	Parameter Parameter
	Value     Value // only meaningful for ControllerEventWrite
}

// NodeEventKind identifies which of the three events ObserveResponse can
// report.
type NodeEventKind int

const (
	// NodeEventRead reports the outcome of a read command: Err is nil and
	// Value holds the result on success, or Err names the failure.
	NodeEventRead NodeEventKind = iota
	// NodeEventWrite reports the outcome of a write command the same way.
	NodeEventWrite
	// NodeEventUnexpectedTransmission reports node traffic seen while the
	// Scanner wasn't expecting any response (no outstanding command).
	NodeEventUnexpectedTransmission
)

// NodeEvent reports one thing the Scanner observed on the node→controller
// wire.
type NodeEvent struct {
	Kind      NodeEventKind
	Address   Address
	Parameter Parameter
	Value     Value // only meaningful for NodeEventRead on success
	Err       error
}

// Scanner is a passive bus observer: fed the same bytes a real node and
// controller would exchange, on two separate wires, it reconstructs each
// transaction without taking part in it. It decodes controller→node bytes
// with the same recognizer a Node uses, and node→controller bytes by
// driving an internal Controller it owns for that purpose only, so the
// parameter/value of a read reply is always interpreted against the
// command the Scanner itself last observed.
type Scanner struct {
	ctrlBuf *buffer
	ctrl    *Controller

	expect    scanExpect
	address   Address
	parameter Parameter

	writeRecv *WriteRecv
	readRecv  *ReadRecv

	// Shadow read-again context: which node/parameter a short-form
	// ACK/NAK/BS on the controller wire would apply to next. Tracked
	// independently of the internal Controller's own context, since the
	// Scanner must react to read-again commands it merely observes.
	readAgainAddr  Address
	readAgainParam *Parameter

	logger *log.Logger
}

// NewScanner creates an idle Scanner.
func NewScanner() *Scanner {
	return &Scanner{ctrlBuf: newBuffer(defaultBufSize), ctrl: NewController()}
}

// SetLogger attaches a trace logger: every decoded ControllerEvent and
// NodeEvent is logged through it. Passing nil (the default) disables
// tracing; the logger is never consulted to decide behavior, only to
// observe it.
func (s *Scanner) SetLogger(l *log.Logger) {
	s.logger = l
}

func (s *Scanner) trace(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// ObserveCommand feeds bytes seen on the controller→node wire. It returns
// the number of bytes consumed and, once a full command (or a timeout) has
// been recognised, the corresponding ControllerEvent. A consumed count of 0
// with a nil event means more data is required.
//
// If a response was still expected when this is called, no bytes are
// consumed and a ControllerEventNodeTimeout is reported instead of parsing:
// the controller wire going active again is itself proof the previous
// exchange was abandoned. Call again with the same data to parse it as a
// fresh command.
func (s *Scanner) ObserveCommand(data []byte) (consumed int, ev *ControllerEvent) {
	readAgainAddr, readAgainParam := s.readAgainAddr, s.readAgainParam
	s.readAgainParam = nil

	if s.expect != expectCommand {
		// The previous exchange is being abandoned: release the internal
		// Controller's exclusive handle so the Write/Read call below
		// doesn't find it still busy.
		if s.writeRecv != nil {
			s.writeRecv.Cancel()
			s.writeRecv = nil
		}
		if s.readRecv != nil {
			s.readRecv.Cancel()
			s.readRecv = nil
		}
		s.expect = expectCommand
		s.trace("x328: scanner: node timeout, expected a response but the controller sent more data")
		return 0, &ControllerEvent{Kind: ControllerEventNodeTimeout}
	}

	s.ctrlBuf.Write(data)
	consumed, tok := parseCommand(s.ctrlBuf.Bytes())
	if consumed == 0 {
		return 0, nil
	}
	s.ctrlBuf.Consume(consumed)

	switch tok.kind {
	case cmdWriteParameter:
		s.address, s.parameter = tok.address, tok.parameter
		s.writeRecv = s.ctrl.Write(tok.address, tok.parameter, tok.value).Sent()
		s.expect = expectWriteResponse
		s.trace("x328: scanner: write %s/%s = %s", tok.address, tok.parameter, tok.value)
		return consumed, &ControllerEvent{Kind: ControllerEventWrite, Address: tok.address, Parameter: tok.parameter, Value: tok.value}

	case cmdReadParameter:
		s.address, s.parameter = tok.address, tok.parameter
		s.readRecv = s.ctrl.Read(tok.address, tok.parameter).Sent()
		s.expect = expectReadResponse
		param := tok.parameter
		s.readAgainAddr, s.readAgainParam = tok.address, &param
		s.trace("x328: scanner: read %s/%s", tok.address, tok.parameter)
		return consumed, &ControllerEvent{Kind: ControllerEventRead, Address: tok.address, Parameter: tok.parameter}

	case cmdReadAgain, cmdReadNext, cmdReadPrev:
		if readAgainParam == nil {
			// No read command was observed yet (or this node's shadow
			// context no longer applies): nothing to act on.
			return consumed, nil
		}
		next := *readAgainParam
		ok := true
		switch tok.kind {
		case cmdReadNext:
			next, ok = next.Next()
		case cmdReadPrev:
			next, ok = next.Prev()
		}
		if !ok {
			// Out of range: the node would reply EOT, but there's no
			// command to report and no context change to make.
			return consumed, nil
		}
		s.address, s.parameter = readAgainAddr, next
		s.readRecv = s.ctrl.Read(readAgainAddr, next).Sent()
		s.expect = expectReadResponse
		s.readAgainAddr, s.readAgainParam = readAgainAddr, &next
		s.trace("x328: scanner: read-again %s/%s", readAgainAddr, next)
		return consumed, &ControllerEvent{Kind: ControllerEventRead, Address: readAgainAddr, Parameter: next}

	default: // cmdNeedData (noise was discarded), cmdInvalidPayload
		return consumed, nil
	}
}

// ObserveResponse feeds bytes seen on the node→controller wire. It returns
// the number of bytes consumed and, once the reply is fully decoded, the
// corresponding NodeEvent. A consumed count of 0 with a nil event means
// more data is required.
//
// If no command is currently outstanding, all of data is consumed and
// reported as NodeEventUnexpectedTransmission: the node shouldn't be
// transmitting unsolicited.
func (s *Scanner) ObserveResponse(data []byte) (consumed int, ev *NodeEvent) {
	switch s.expect {
	case expectWriteResponse:
		done, err := s.writeRecv.Receive(data)
		if !done {
			return 0, nil
		}
		s.expect = expectCommand
		s.trace("x328: scanner: write %s/%s result: %v", s.address, s.parameter, err)
		return len(data), &NodeEvent{Kind: NodeEventWrite, Address: s.address, Parameter: s.parameter, Err: err}

	case expectReadResponse:
		done, value, err := s.readRecv.Receive(data)
		if !done {
			return 0, nil
		}
		s.expect = expectCommand
		s.trace("x328: scanner: read %s/%s result: %s, %v", s.address, s.parameter, value, err)
		return len(data), &NodeEvent{Kind: NodeEventRead, Address: s.address, Parameter: s.parameter, Value: value, Err: err}

	default: // expectCommand
		s.trace("x328: scanner: unexpected transmission while no command was pending")
		return len(data), &NodeEvent{Kind: NodeEventUnexpectedTransmission}
	}
}
