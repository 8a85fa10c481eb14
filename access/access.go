// Package access provides contention-based medium access controllers.
package access

import (
	"math/rand/v2"

	"github.com/sarchlab/arqsim/sim"
)

// A Controller decides if the shared medium may be used at a given tick.
type Controller interface {
	MayTransmit(now sim.VTick) bool
}

// A RandSource produces uniform random numbers in [0, 1).
type RandSource interface {
	Float64() float64
}

// NewSeededSource creates a private random stream. Two sources created with
// the same seed produce the same sequence.
func NewSeededSource(seed uint64) RandSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// PureAloha lets every attempt through with a fixed probability. Calls are
// independent, even within the same tick.
type PureAloha struct {
	probability float64
	rng         RandSource
}

// MayTransmit draws once and succeeds if the draw is below the success
// probability.
func (a *PureAloha) MayTransmit(_ sim.VTick) bool {
	return a.rng.Float64() < a.probability
}

// SlottedAloha decides once per slot. All the calls within the same slot get
// the same answer.
type SlottedAloha struct {
	probability     float64
	slotDuration    sim.VTick
	rng             RandSource
	lastDecidedSlot int64
	lastDecision    bool
}

// Slot returns the slot that a tick belongs to.
func (a *SlottedAloha) Slot(now sim.VTick) int64 {
	return int64(now / a.slotDuration)
}

// MayTransmit returns the decision of the slot that now belongs to, drawing a
// new one on the first call in a slot.
func (a *SlottedAloha) MayTransmit(now sim.VTick) bool {
	slot := a.Slot(now)
	if slot == a.lastDecidedSlot {
		return a.lastDecision
	}

	a.lastDecidedSlot = slot
	a.lastDecision = a.rng.Float64() < a.probability

	return a.lastDecision
}

// AlwaysIdle is a medium that never has contention.
type AlwaysIdle struct{}

// MayTransmit always returns true.
func (AlwaysIdle) MayTransmit(_ sim.VTick) bool {
	return true
}
