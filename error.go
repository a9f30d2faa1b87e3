package x328

import "errors"

var (
	// ErrInvalidAddress indicates that a value isn't a valid X3.28 node address.
	// Valid addresses are in the range [0, 99].
	ErrInvalidAddress = errors.New("x328: invalid address")
	// ErrInvalidParameter indicates that a value isn't a valid X3.28 parameter
	// number, or that a node refused a command (EOT) because it doesn't
	// recognise the addressed parameter.
	// Valid parameters are in the range [0, 9999].
	ErrInvalidParameter = errors.New("x328: invalid parameter")
	// ErrInvalidValue indicates that a value can't be represented in the
	// on-wire format. Valid values are in the range [-99999, 99999] for the
	// wide format, or [-9999, 999999] for the normal format.
	ErrInvalidValue = errors.New("x328: invalid value")
	// ErrCommandFailed is returned by the Controller when a node refuses a
	// write command by replying NAK.
	ErrCommandFailed = errors.New("x328: command failed")
)

// ProtocolError signals that a node's response could not be reconciled with
// the command the Controller sent: a bad BCC, a parameter mismatch on a read
// reply, or response bytes that don't match any recognised frame. Callers
// compare with errors.As rather than a family of sentinels, since recovery
// is always the same regardless of reason: the Controller returns to idle.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "x328: protocol error: " + e.Reason
}

func protocolErrorf(reason string) error {
	return &ProtocolError{Reason: reason}
}
