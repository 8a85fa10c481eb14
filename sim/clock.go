package sim

// VTick is the logical time of the simulation, counted in ticks.
type VTick uint64

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTick
}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick() bool
}

// A Clock is a logical tick counter. It never advances by itself. Time only
// moves when the driver calls Tick.
type Clock struct {
	HookableBase

	now     VTick
	tickers []Ticker
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current tick.
func (c *Clock) Now() VTick {
	return c.now
}

// RegisterTicker makes the ticker be ticked every time the clock advances.
// Tickers are ticked in registration order.
func (c *Clock) RegisterTicker(t Ticker) {
	c.tickers = append(c.tickers, t)
}

// Tick advances the clock by one tick, then ticks all the registered tickers.
// It returns true if any ticker made progress.
func (c *Clock) Tick() bool {
	c.now++

	if c.NumHooks() > 0 {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosTick,
			Item:   c.now,
		})
	}

	madeProgress := false
	for _, t := range c.tickers {
		madeProgress = t.Tick() || madeProgress
	}

	return madeProgress
}

// TickUntil keeps ticking until the clock reaches the given tick.
func (c *Clock) TickUntil(t VTick) {
	for c.now < t {
		c.Tick()
	}
}
