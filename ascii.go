package x328

// Control bytes used by the X3.28 wire format.
const (
	stx = 0x02
	etx = 0x03
	eot = 0x04
	enq = 0x05
	ack = 0x06
	bs  = 0x08
	nak = 0x15
)
