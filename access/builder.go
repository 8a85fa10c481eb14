package access

import (
	"fmt"

	"github.com/sarchlab/arqsim/sim"
)

// Protocol selects the access rule.
type Protocol int

// The supported protocols.
const (
	PureAlohaProtocol Protocol = iota
	SlottedAlohaProtocol
	IdleProtocol
)

func (p Protocol) String() string {
	switch p {
	case PureAlohaProtocol:
		return "pure_aloha"
	case SlottedAlohaProtocol:
		return "slotted_aloha"
	case IdleProtocol:
		return "idle"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol converts the name of a protocol to a Protocol.
func ParseProtocol(name string) (Protocol, error) {
	for _, p := range []Protocol{
		PureAlohaProtocol,
		SlottedAlohaProtocol,
		IdleProtocol,
	} {
		if p.String() == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown access protocol %q", name)
}

// DefaultSuccessProbability is the probability that an attempt succeeds if
// not configured.
const DefaultSuccessProbability = 0.1

// DefaultSlotDuration is the number of ticks in a slot if not configured.
const DefaultSlotDuration sim.VTick = 1000

// Builder can build access controllers.
type Builder struct {
	protocol     Protocol
	probability  float64
	slotDuration sim.VTick
	seed         uint64
	rng          RandSource
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		protocol:     PureAlohaProtocol,
		probability:  DefaultSuccessProbability,
		slotDuration: DefaultSlotDuration,
	}
}

// WithProtocol sets the access rule.
func (b Builder) WithProtocol(p Protocol) Builder {
	b.protocol = p
	return b
}

// WithSuccessProbability sets the probability that an attempt succeeds.
func (b Builder) WithSuccessProbability(p float64) Builder {
	b.probability = p
	return b
}

// WithSlotDuration sets the number of ticks in a slot.
func (b Builder) WithSlotDuration(d sim.VTick) Builder {
	b.slotDuration = d
	return b
}

// WithSeed seeds the private random stream of the controller to build.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithRandSource sets the random source directly. The source must not be
// shared with another controller.
func (b Builder) WithRandSource(rng RandSource) Builder {
	b.rng = rng
	return b
}

// Build creates a new access controller.
func (b Builder) Build() Controller {
	b.probabilityMustBeValid()

	rng := b.rng
	if rng == nil {
		rng = NewSeededSource(b.seed)
	}

	switch b.protocol {
	case PureAlohaProtocol:
		return &PureAloha{
			probability: b.probability,
			rng:         rng,
		}
	case SlottedAlohaProtocol:
		b.slotDurationMustNotBeZero()

		return &SlottedAloha{
			probability:     b.probability,
			slotDuration:    b.slotDuration,
			rng:             rng,
			lastDecidedSlot: -1,
		}
	case IdleProtocol:
		return AlwaysIdle{}
	default:
		panic(fmt.Sprintf("unknown access protocol %s", b.protocol))
	}
}

func (b Builder) probabilityMustBeValid() {
	if b.probability < 0 || b.probability > 1 {
		panic(fmt.Sprintf("success probability must be in [0, 1], got %f",
			b.probability))
	}
}

func (b Builder) slotDurationMustNotBeZero() {
	if b.slotDuration == 0 {
		panic("slot duration cannot be 0")
	}
}
