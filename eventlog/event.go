// Package eventlog records the transmission and drop outcomes of forwarding
// nodes.
package eventlog

import (
	"fmt"

	"github.com/sarchlab/arqsim/sim"
)

// Outcome is what happened to a packet.
type Outcome int

// The possible outcomes.
const (
	Sent Outcome = iota
	Dropped
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "Sent"
	case Dropped:
		return "Drop"
	case Rejected:
		return "Rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Reason explains a drop, a rejection or an anomaly.
type Reason int

// The possible reasons.
const (
	NoReason Reason = iota
	NoRoute
	MediumBusy
	WindowFull
	InvalidSequence
	InvalidAddress
	Filtered
	RateLimited
)

func (r Reason) String() string {
	switch r {
	case NoReason:
		return ""
	case NoRoute:
		return "NoRoute"
	case MediumBusy:
		return "MediumBusy"
	case WindowFull:
		return "WindowFull"
	case InvalidSequence:
		return "InvalidSequence"
	case InvalidAddress:
		return "InvalidAddress"
	case Filtered:
		return "Filtered"
	case RateLimited:
		return "RateLimited"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// An Event is one entry of the log.
type Event struct {
	Tick           sim.VTick `json:"tick"`
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	Seq            uint64    `json:"seq"`
	HasSeq         bool      `json:"has_seq"`
	Outcome        Outcome   `json:"outcome"`
	Reason         Reason    `json:"reason"`
	Retransmission bool      `json:"retransmission"`
}

func (e Event) String() string {
	seq := "-"
	if e.HasSeq {
		seq = fmt.Sprintf("%d", e.Seq)
	}

	s := fmt.Sprintf("%d, %s -> %s, seq %s, %s",
		e.Tick, e.Source, e.Destination, seq, e.Outcome)

	if e.Reason != NoReason {
		s += "(" + e.Reason.String() + ")"
	}

	if e.Retransmission {
		s += ", retransmission"
	}

	return s
}

// Hook positions that forwarding nodes publish events at. The item of the
// hook context is always an Event.
var (
	HookPosPacketSent    = &sim.HookPos{Name: "PacketSent"}
	HookPosPacketDropped = &sim.HookPos{Name: "PacketDropped"}
	HookPosRejected      = &sim.HookPos{Name: "Rejected"}
)

// HookPosOf returns the hook position that matches the outcome of the event.
func HookPosOf(e Event) *sim.HookPos {
	switch e.Outcome {
	case Sent:
		return HookPosPacketSent
	case Rejected:
		return HookPosRejected
	default:
		return HookPosPacketDropped
	}
}
