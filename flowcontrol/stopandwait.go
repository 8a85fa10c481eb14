package flowcontrol

import "github.com/sarchlab/arqsim/sim"

// StopAndWait allows at most one packet in flight.
type StopAndWait struct {
	window
	timer singleTimer
}

// CanSend admits seq only if nothing is outstanding and seq is the next
// sequence number.
func (c *StopAndWait) CanSend(seq uint64) bool {
	if seq != c.next || c.next != c.base {
		return false
	}

	c.next++
	c.timer.start(c.deadline())

	return true
}

// OnAck accepts only the ack of the outstanding packet.
func (c *StopAndWait) OnAck(ack uint64) error {
	if ack != c.base || c.base == c.next {
		return c.ackOutOfRange(ack)
	}

	c.base++
	c.next = c.base
	c.timer.stop()

	return nil
}

// NextDeadline returns when the timer of the outstanding packet fires.
func (c *StopAndWait) NextDeadline() (sim.VTick, bool) {
	return c.timer.deadline()
}

// OnTimeout returns the outstanding packet and allows it to be sent again.
func (c *StopAndWait) OnTimeout() ([]uint64, error) {
	if !c.timer.expired(c.timeTeller.Now()) {
		return nil, c.noTimerExpired()
	}

	seq := c.base
	c.next = c.base
	c.timer.stop()

	return []uint64{seq}, nil
}
