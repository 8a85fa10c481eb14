package forwarding

import (
	"fmt"

	"github.com/sarchlab/arqsim/eventlog"
)

// A Packet is a unit of data admitted by a node. Packets are not modified
// after they are created.
type Packet struct {
	ID      string
	Seq     uint64
	Src     string
	Dst     string
	Payload []byte
}

// A Frame is what a node receives on one of its ports.
type Frame struct {
	Src     string
	Dst     string
	Payload []byte
}

// Outcome is the result of a send attempt.
type Outcome struct {
	Kind   eventlog.Outcome
	Seq    uint64
	Reason eventlog.Reason
}

// Sent returns true if the packet is transmitted.
func (o Outcome) Sent() bool {
	return o.Kind == eventlog.Sent
}

func (o Outcome) String() string {
	switch o.Kind {
	case eventlog.Sent:
		return fmt.Sprintf("Sent(%d)", o.Seq)
	default:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
	}
}
