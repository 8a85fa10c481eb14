package flowcontrol

import (
	"fmt"

	"github.com/sarchlab/arqsim/sim"
)

// Protocol selects the window rule of a controller.
type Protocol int

// The supported protocols.
const (
	GoBackNProtocol Protocol = iota
	StopAndWaitProtocol
	SelectiveRepeatProtocol
)

func (p Protocol) String() string {
	switch p {
	case GoBackNProtocol:
		return "go_back_n"
	case StopAndWaitProtocol:
		return "stop_and_wait"
	case SelectiveRepeatProtocol:
		return "selective_repeat"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol converts the name of a protocol to a Protocol.
func ParseProtocol(name string) (Protocol, error) {
	for _, p := range []Protocol{
		GoBackNProtocol,
		StopAndWaitProtocol,
		SelectiveRepeatProtocol,
	} {
		if p.String() == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown flow control protocol %q", name)
}

// DefaultTimeout is the number of ticks before an unacknowledged packet is
// retransmitted.
const DefaultTimeout sim.VTick = 10

// Builder can build flow controllers.
type Builder struct {
	timeTeller sim.TimeTeller
	protocol   Protocol
	windowSize int
	sizeGiven  bool
	initialSeq uint64
	timeout    sim.VTick
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		protocol:   GoBackNProtocol,
		windowSize: 4,
		timeout:    DefaultTimeout,
	}
}

// WithTimeTeller sets the clock used to arm retransmission timers.
func (b Builder) WithTimeTeller(t sim.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithProtocol sets the window rule.
func (b Builder) WithProtocol(p Protocol) Builder {
	b.protocol = p
	return b
}

// WithWindowSize sets the number of sequence numbers that can be in flight.
func (b Builder) WithWindowSize(n int) Builder {
	b.windowSize = n
	b.sizeGiven = true
	return b
}

// WithInitialSeq sets the first sequence number of the flow.
func (b Builder) WithInitialSeq(seq uint64) Builder {
	b.initialSeq = seq
	return b
}

// WithTimeout sets the number of ticks before retransmission.
func (b Builder) WithTimeout(t sim.VTick) Builder {
	b.timeout = t
	return b
}

// Build creates a new controller. Stop-and-wait uses a window of 1 unless a
// window size is given explicitly.
func (b Builder) Build() Controller {
	if b.protocol == StopAndWaitProtocol && !b.sizeGiven {
		b.windowSize = 1
	}

	b.timeTellerMustBeGiven()
	b.timeoutMustNotBeZero()
	b.windowSizeMustBeValid()

	w := window{
		timeTeller: b.timeTeller,
		timeout:    b.timeout,
		size:       b.windowSize,
		base:       b.initialSeq,
		next:       b.initialSeq,
	}

	switch b.protocol {
	case GoBackNProtocol:
		return &GoBackN{window: w}
	case StopAndWaitProtocol:
		return &StopAndWait{window: w}
	case SelectiveRepeatProtocol:
		return &SelectiveRepeat{
			window: w,
			acked:  make([]bool, b.windowSize),
			timers: make(map[uint64]sim.VTick),
		}
	default:
		panic(fmt.Sprintf("unknown flow control protocol %s", b.protocol))
	}
}

func (b Builder) timeTellerMustBeGiven() {
	if b.timeTeller == nil {
		panic("flow controller requires a time teller to arm timers")
	}
}

func (b Builder) timeoutMustNotBeZero() {
	if b.timeout == 0 {
		panic("flow controller timeout cannot be 0")
	}
}

func (b Builder) windowSizeMustBeValid() {
	if b.windowSize <= 0 {
		panic(fmt.Sprintf("window size must be positive, got %d",
			b.windowSize))
	}

	if b.protocol == StopAndWaitProtocol && b.windowSize != 1 {
		panic(fmt.Sprintf("stop-and-wait window size must be 1, got %d",
			b.windowSize))
	}
}
