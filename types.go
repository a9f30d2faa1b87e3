package x328

import "strconv"

// Address is a range-checked [0, 99] integer identifying a node on the bus.
// Address 0 is reserved for broadcast: see NewNode.
type Address struct {
	v int
}

// NewAddress validates address and returns the corresponding Address.
// Returns ErrInvalidAddress if address isn't in [0, 99].
func NewAddress(address int) (Address, error) {
	if address < 0 || address > 99 {
		return Address{}, ErrInvalidAddress
	}
	return Address{v: address}, nil
}

// Int returns the address as a plain int.
func (a Address) Int() int { return a.v }

// bytes encodes the address as its four-byte doubled-digit wire form:
// the tens digit twice, then the units digit twice.
func (a Address) bytes() [4]byte {
	tens := byte('0' + a.v/10)
	units := byte('0' + a.v%10)
	return [4]byte{tens, tens, units, units}
}

func (a Address) String() string { return strconv.Itoa(a.v) }

// Parameter is a range-checked [0, 9999] integer identifying a register
// within a node.
type Parameter struct {
	v int
}

// NewParameter validates parameter and returns the corresponding Parameter.
// Returns ErrInvalidParameter if parameter isn't in [0, 9999].
func NewParameter(parameter int) (Parameter, error) {
	if parameter < 0 || parameter > 9999 {
		return Parameter{}, ErrInvalidParameter
	}
	return Parameter{v: parameter}, nil
}

// Int returns the parameter as a plain int.
func (p Parameter) Int() int { return p.v }

// Next returns the next higher numbered parameter, or false if p is already
// at the maximum (9999).
func (p Parameter) Next() (Parameter, bool) {
	if p.v >= 9999 {
		return Parameter{}, false
	}
	return Parameter{v: p.v + 1}, true
}

// Prev returns the next lower numbered parameter, or false if p is already
// at the minimum (0).
func (p Parameter) Prev() (Parameter, bool) {
	if p.v <= 0 {
		return Parameter{}, false
	}
	return Parameter{v: p.v - 1}, true
}

func (p Parameter) bytes() [4]byte {
	var buf [4]byte
	x := p.v
	for i := 3; i >= 0; i-- {
		buf[i] = byte('0' + x%10)
		x /= 10
	}
	return buf
}

func (p Parameter) String() string { return strconv.Itoa(p.v) }

// ValueFormat selects the on-wire encoding of a Value: Normal (variable
// width, sign omitted for non-negative 6-digit magnitudes) or Wide (always
// six bytes, sign always present).
type ValueFormat int

const (
	// Normal is the default on-wire format, range [-9999, 999999].
	Normal ValueFormat = iota
	// Wide is always exactly six bytes, range [-99999, 99999].
	Wide
)

const (
	valueMin      = -99999
	valueMax      = 999999
	valueNormMin  = -9999
	valueWideBand = 99999
)

// Value is a signed integer that can be sent over the X3.28 wire in either
// the Normal or Wide on-wire format.
type Value struct {
	v      int32
	format ValueFormat
}

// NewValue creates a Value, choosing Wide format automatically when value
// falls below the Normal format's minimum (-9999).
// Returns ErrInvalidValue if value is out of range.
func NewValue(value int) (Value, error) {
	if value < valueMin || value > valueMax {
		return Value{}, ErrInvalidValue
	}
	format := Normal
	if value < valueNormMin {
		format = Wide
	}
	return Value{v: int32(value), format: format}, nil
}

// NewValueFormat creates a Value, forcing the given on-wire format.
// Returns ErrInvalidValue if value can't be represented in that format.
func NewValueFormat(value int, format ValueFormat) (Value, error) {
	if value < valueMin || value > valueMax {
		return Value{}, ErrInvalidValue
	}
	switch format {
	case Normal:
		if value < valueNormMin {
			return Value{}, ErrInvalidValue
		}
	case Wide:
		if value < -valueWideBand || value > valueWideBand {
			return Value{}, ErrInvalidValue
		}
	}
	return Value{v: int32(value), format: format}, nil
}

// Int returns the value as a plain int.
func (val Value) Int() int { return int(val.v) }

// Format returns the on-wire format this Value was constructed with.
func (val Value) Format() ValueFormat { return val.format }

// bytes formats the value into its on-wire representation: a variable-width
// slice of 1..6 bytes for Normal, or exactly 6 bytes for Wide. The digit loop
// mirrors the original reference implementation: digits are pushed
// least-significant first, then the buffer is reversed.
func (val Value) bytes() []byte {
	v := val.v
	neg := v < 0
	mag := v
	if neg {
		mag = -mag
	}

	buf := make([]byte, 0, 6)
	for {
		buf = append(buf, byte('0')+byte(mag%10))
		mag /= 10
		if mag == 0 && (val.format == Normal || len(buf) == 5) {
			break
		}
	}
	if neg {
		buf = append(buf, '-')
	} else if len(buf) < 6 {
		buf = append(buf, '+')
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

func (val Value) String() string { return strconv.Itoa(int(val.v)) }
