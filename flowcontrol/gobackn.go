package flowcontrol

import "github.com/sarchlab/arqsim/sim"

// GoBackN admits up to a window of consecutive sequence numbers and recovers
// from a timeout by resending everything that is outstanding.
type GoBackN struct {
	window
	timer singleTimer
}

// CanSend admits seq if it is the next sequence number and the window is not
// full.
func (c *GoBackN) CanSend(seq uint64) bool {
	if seq != c.next || c.next >= c.limit() {
		return false
	}

	c.next++
	c.timer.start(c.deadline())

	return true
}

// OnAck applies a cumulative ack. All the sequence numbers up to and
// including ack are considered delivered.
func (c *GoBackN) OnAck(ack uint64) error {
	if !c.inFlight(ack) {
		return c.ackOutOfRange(ack)
	}

	c.base = ack + 1

	c.timer.stop()
	if c.base < c.next {
		c.timer.start(c.deadline())
	}

	return nil
}

// NextDeadline returns when the window timer fires.
func (c *GoBackN) NextDeadline() (sim.VTick, bool) {
	return c.timer.deadline()
}

// OnTimeout returns every outstanding sequence number and rewinds next to
// base, so that the window is sent again.
func (c *GoBackN) OnTimeout() ([]uint64, error) {
	if !c.timer.expired(c.timeTeller.Now()) {
		return nil, c.noTimerExpired()
	}

	seqs := make([]uint64, 0, c.next-c.base)
	for seq := c.base; seq < c.next; seq++ {
		seqs = append(seqs, seq)
	}

	c.next = c.base
	c.timer.stop()

	return seqs, nil
}
