package flowcontrol

import (
	"sort"

	"github.com/sarchlab/arqsim/sim"
)

// SelectiveRepeat acknowledges and retransmits packets individually. Every
// outstanding packet has its own timer.
type SelectiveRepeat struct {
	window

	// acked is indexed by seq % size.
	acked  []bool
	timers map[uint64]sim.VTick
}

func (c *SelectiveRepeat) inWindow(seq uint64) bool {
	return seq >= c.base && seq < c.limit()
}

func (c *SelectiveRepeat) isAcked(seq uint64) bool {
	return c.acked[seq%uint64(c.size)]
}

// CanSend admits any sequence number in the window that has not been
// acknowledged yet.
func (c *SelectiveRepeat) CanSend(seq uint64) bool {
	if !c.inWindow(seq) || c.isAcked(seq) {
		return false
	}

	if seq >= c.next {
		c.next = seq + 1
	}

	c.timers[seq] = c.deadline()

	return true
}

// OnAck marks a single sequence number as delivered and slides the window
// over the contiguous run of delivered sequence numbers at its base.
func (c *SelectiveRepeat) OnAck(ack uint64) error {
	if !c.inFlight(ack) {
		return c.ackOutOfRange(ack)
	}

	c.acked[ack%uint64(c.size)] = true
	delete(c.timers, ack)

	for c.isAcked(c.base) {
		c.acked[c.base%uint64(c.size)] = false
		c.base++
	}

	return nil
}

// NextDeadline returns the earliest deadline among the packet timers.
func (c *SelectiveRepeat) NextDeadline() (sim.VTick, bool) {
	var earliest sim.VTick

	found := false
	for _, at := range c.timers {
		if !found || at < earliest {
			earliest = at
			found = true
		}
	}

	return earliest, found
}

// OnTimeout returns the sequence numbers whose own timer expired, in
// ascending order. Their timers stay off until they are sent again.
func (c *SelectiveRepeat) OnTimeout() ([]uint64, error) {
	now := c.timeTeller.Now()

	var seqs []uint64
	for seq, at := range c.timers {
		if now >= at {
			seqs = append(seqs, seq)
		}
	}

	if len(seqs) == 0 {
		return nil, c.noTimerExpired()
	}

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for _, seq := range seqs {
		delete(c.timers, seq)
	}

	return seqs, nil
}
