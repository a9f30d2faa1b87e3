package x328

import "testing"

func TestNodeReadParameterFlow(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	cmd := encodeReadCommand(addr, mustParam(t, 10))
	state := n.Receive(cmd)

	rp, ok := state.(*ReadParam)
	if !ok {
		t.Fatalf("state = %T, want *ReadParam", state)
	}
	if rp.Parameter().Int() != 10 {
		t.Fatalf("Parameter() = %d, want 10", rp.Parameter().Int())
	}

	sd := rp.Ok(mustValue(t, 56))
	want := encodeReadReply(mustParam(t, 10), mustValue(t, 56))
	if string(sd.Bytes()) != string(want) {
		t.Fatalf("reply = %q, want %q", sd.Bytes(), want)
	}

	back := sd.Sent()
	if _, ok := NodeState(back).(*ReceiveData); !ok {
		t.Fatalf("Sent() = %T, want *ReceiveData", back)
	}
}

func TestNodeWriteParameterFlow(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	cmd := encodeWriteCommand(addr, mustParam(t, 10), mustValue(t, 56))
	state := n.Receive(cmd)

	wp, ok := state.(*WriteParam)
	if !ok {
		t.Fatalf("state = %T, want *WriteParam", state)
	}
	if wp.Parameter().Int() != 10 || wp.Value().Int() != 56 {
		t.Fatalf("wp = %+v", wp)
	}

	sd := wp.Ok()
	if string(sd.Bytes()) != string([]byte{ack}) {
		t.Fatalf("reply = %v, want ACK", sd.Bytes())
	}
}

func TestNodeWriteRejected(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	cmd := encodeWriteCommand(addr, mustParam(t, 10), mustValue(t, 56))
	state := n.Receive(cmd)
	wp := state.(*WriteParam)

	sd := wp.Error()
	if string(sd.Bytes()) != string([]byte{nak}) {
		t.Fatalf("reply = %v, want NAK", sd.Bytes())
	}
}

func TestNodeIgnoresOtherAddress(t *testing.T) {
	n := NewNode(mustAddr(t, 43))

	other := encodeReadCommand(mustAddr(t, 44), mustParam(t, 10))
	state := n.Receive(other)
	if _, ok := state.(*ReceiveData); !ok {
		t.Fatalf("state = %T, want *ReceiveData (not addressed to us)", state)
	}
}

func TestNodeInvalidPayloadRepliesNAK(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	// EOT + valid doubled-digit address, followed by garbage that matches
	// neither the write nor read command grammar.
	ab := addr.bytes()
	garbage := append(append([]byte{eot}, ab[:]...), 'z', 'z', 'z')
	state := n.Receive(garbage)

	sd, ok := state.(*SendData)
	if !ok {
		t.Fatalf("state = %T, want *SendData", state)
	}
	if string(sd.Bytes()) != string([]byte{nak}) {
		t.Fatalf("reply = %v, want NAK", sd.Bytes())
	}
}

func TestNodeInterruptedThenRepeatedCommand(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	// A read command interrupted after only two digits of the parameter
	// arrive, then immediately superseded by a full, freshly addressed
	// read command before the first ever completes.
	partial := []byte{eot, '4', '4', '3', '3', '0', '0'}
	state := n.Receive(partial)
	if state != NodeState(n) {
		t.Fatalf("state after partial = %v, want the same *ReceiveData instance", state)
	}

	full := encodeReadCommand(addr, mustParam(t, 10))
	state = n.Receive(full)

	rp, ok := state.(*ReadParam)
	if !ok {
		t.Fatalf("state = %T, want *ReadParam", state)
	}
	if rp.Parameter().Int() != 10 {
		t.Fatalf("Parameter() = %d, want 10", rp.Parameter().Int())
	}
}

func TestNodeReadAgainAfterSuccessfulRead(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	cmd := encodeReadCommand(addr, mustParam(t, 10))
	state := n.Receive(cmd)
	rp := state.(*ReadParam)
	sd := rp.Ok(mustValue(t, 56))
	n = sd.Sent()

	// ACK: read the next higher parameter.
	state = n.Receive([]byte{ack})
	rp, ok := state.(*ReadParam)
	if !ok || rp.Parameter().Int() != 11 {
		t.Fatalf("state after ACK = %+v, want ReadParam(11)", state)
	}
	sd = rp.Ok(mustValue(t, 57))
	n = sd.Sent()

	// NAK: repeat the last read.
	state = n.Receive([]byte{nak})
	rp, ok = state.(*ReadParam)
	if !ok || rp.Parameter().Int() != 11 {
		t.Fatalf("state after NAK = %+v, want ReadParam(11)", state)
	}
	sd = rp.Ok(mustValue(t, 57))
	n = sd.Sent()

	// BS: read the next lower parameter.
	state = n.Receive([]byte{bs})
	rp, ok = state.(*ReadParam)
	if !ok || rp.Parameter().Int() != 10 {
		t.Fatalf("state after BS = %+v, want ReadParam(10)", state)
	}
}

func TestNodeReadAgainIgnoredWithoutPriorRead(t *testing.T) {
	n := NewNode(mustAddr(t, 43))
	state := n.Receive([]byte{ack})
	if _, ok := state.(*ReceiveData); !ok {
		t.Fatalf("state = %T, want *ReceiveData (no prior read to continue from)", state)
	}
}

func TestNodeReadAgainClearedByInterveningWrite(t *testing.T) {
	addr := mustAddr(t, 43)
	n := NewNode(addr)

	rp := n.Receive(encodeReadCommand(addr, mustParam(t, 10))).(*ReadParam)
	sd := rp.Ok(mustValue(t, 56))
	node := sd.Sent()

	// A write to the same node clears the read-again context, even
	// though it's for the same address.
	wp := node.Receive(encodeWriteCommand(addr, mustParam(t, 20), mustValue(t, 1))).(*WriteParam)
	node = wp.Ok().Sent()

	state := node.Receive([]byte{ack})
	if _, ok := state.(*ReceiveData); !ok {
		t.Fatalf("state after ACK = %T, want *ReceiveData (read-again context was cleared by the write)", state)
	}
}

func TestNodeBroadcastAddressAcceptsAnyAddress(t *testing.T) {
	n := NewNode(mustAddr(t, 0))

	cmd := encodeReadCommand(mustAddr(t, 77), mustParam(t, 10))
	state := n.Receive(cmd)
	rp, ok := state.(*ReadParam)
	if !ok || rp.Parameter().Int() != 10 {
		t.Fatalf("state = %+v, want ReadParam(10) (broadcast node answers any address)", state)
	}
}

func TestNodeReceiveNeedsMoreData(t *testing.T) {
	n := NewNode(mustAddr(t, 43))
	state := n.Receive([]byte{eot, '4', '4'})
	if state != NodeState(n) {
		t.Fatalf("state = %v, want the same *ReceiveData instance", state)
	}
}
