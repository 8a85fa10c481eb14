// Package flowcontrol provides sliding-window ARQ controllers that decide
// whether a sequence number may be sent on a link.
package flowcontrol

import (
	"errors"
	"fmt"

	"github.com/sarchlab/arqsim/sim"
)

// ErrInvalidSequence is returned when an ack or a timeout refers to a
// sequence number that the controller is not waiting for. The controller
// state is left unchanged.
var ErrInvalidSequence = errors.New("invalid sequence")

// A Controller decides which sequence numbers may be in flight.
type Controller interface {
	// Base returns the lowest unacknowledged sequence number.
	Base() uint64

	// Next returns the next sequence number eligible to send.
	Next() uint64

	// WindowSize returns the number of sequence numbers that can be in
	// flight at the same time.
	WindowSize() int

	// CanSend returns true if seq may be sent now. On true, the window
	// advances and the retransmission timer is (re)started.
	CanSend(seq uint64) bool

	// OnAck applies an acknowledgment.
	OnAck(ack uint64) error

	// NextDeadline returns the earliest tick at which a timer fires.
	NextDeadline() (sim.VTick, bool)

	// OnTimeout fires the expired timers and returns the sequence numbers
	// that need to be retransmitted.
	OnTimeout() ([]uint64, error)
}

// window holds the state shared by all the variants.
type window struct {
	timeTeller sim.TimeTeller
	timeout    sim.VTick
	size       int
	base       uint64
	next       uint64
}

func (w *window) Base() uint64 {
	return w.base
}

func (w *window) Next() uint64 {
	return w.next
}

func (w *window) WindowSize() int {
	return w.size
}

func (w *window) limit() uint64 {
	return w.base + uint64(w.size)
}

func (w *window) inFlight(seq uint64) bool {
	return seq >= w.base && seq < w.next
}

func (w *window) deadline() sim.VTick {
	return w.timeTeller.Now() + w.timeout
}

func (w *window) ackOutOfRange(ack uint64) error {
	return fmt.Errorf("%w: ack %d outside [%d, %d)",
		ErrInvalidSequence, ack, w.base, w.next)
}

func (w *window) noTimerExpired() error {
	return fmt.Errorf("%w: no timer expired at tick %d",
		ErrInvalidSequence, w.timeTeller.Now())
}

// singleTimer is the one retransmission timer of GoBackN and StopAndWait.
type singleTimer struct {
	running bool
	at      sim.VTick
}

func (t *singleTimer) start(at sim.VTick) {
	t.running = true
	t.at = at
}

func (t *singleTimer) stop() {
	t.running = false
}

func (t *singleTimer) expired(now sim.VTick) bool {
	return t.running && now >= t.at
}

func (t *singleTimer) deadline() (sim.VTick, bool) {
	return t.at, t.running
}
