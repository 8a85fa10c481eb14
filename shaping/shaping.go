// Package shaping provides rate gates that limit how many packets a node can
// send per tick.
package shaping

import "fmt"

// A Shaper admits or refuses a packet. Shapers regain capacity when ticked.
type Shaper interface {
	Allow() bool
	Tick() bool
}

// TokenBucket spends one token per packet and regains fillRate tokens every
// tick, up to its capacity. A full bucket allows a burst of capacity packets.
type TokenBucket struct {
	capacity int
	fillRate int
	tokens   int
}

// NewTokenBucket creates a full token bucket.
func NewTokenBucket(capacity, fillRate int) *TokenBucket {
	paramsMustBePositive(capacity, fillRate)

	return &TokenBucket{
		capacity: capacity,
		fillRate: fillRate,
		tokens:   capacity,
	}
}

// Tokens returns the number of tokens left.
func (b *TokenBucket) Tokens() int {
	return b.tokens
}

// Allow spends a token if there is one.
func (b *TokenBucket) Allow() bool {
	if b.tokens == 0 {
		return false
	}

	b.tokens--

	return true
}

// Tick refills the bucket.
func (b *TokenBucket) Tick() bool {
	if b.tokens == b.capacity {
		return false
	}

	b.tokens = min(b.tokens+b.fillRate, b.capacity)

	return true
}

// LeakyBucket holds up to capacity packets and drains outflowRate of them
// every tick. A packet that finds the bucket full is refused.
type LeakyBucket struct {
	capacity    int
	outflowRate int
	level       int
}

// NewLeakyBucket creates an empty leaky bucket.
func NewLeakyBucket(capacity, outflowRate int) *LeakyBucket {
	paramsMustBePositive(capacity, outflowRate)

	return &LeakyBucket{
		capacity:    capacity,
		outflowRate: outflowRate,
	}
}

// Level returns the number of packets in the bucket.
func (b *LeakyBucket) Level() int {
	return b.level
}

// Allow pours a packet into the bucket if there is room.
func (b *LeakyBucket) Allow() bool {
	if b.level == b.capacity {
		return false
	}

	b.level++

	return true
}

// Tick drains the bucket.
func (b *LeakyBucket) Tick() bool {
	if b.level == 0 {
		return false
	}

	b.level = max(b.level-b.outflowRate, 0)

	return true
}

func paramsMustBePositive(capacity, rate int) {
	if capacity <= 0 || rate <= 0 {
		panic(fmt.Sprintf(
			"bucket capacity and rate must be positive, got %d and %d",
			capacity, rate))
	}
}
