package analysis

import "sync/atomic"

// Publisher hands the latest stable reading from the capture thread to
// display and transport readers. A single writer swaps an immutable
// snapshot atomically, so readers never block the audio thread and never
// observe a torn reading.
type Publisher struct {
	current atomic.Pointer[StableReading]
}

// NewPublisher creates a publisher holding a "no signal" reading.
func NewPublisher() *Publisher {
	p := &Publisher{}
	p.current.Store(&StableReading{})
	return p
}

// Publish stores a new snapshot. Only the capture thread calls this.
func (p *Publisher) Publish(reading StableReading) {
	p.current.Store(&reading)
}

// Latest returns the most recently published reading. Safe for concurrent
// use from any goroutine.
func (p *Publisher) Latest() StableReading {
	return *p.current.Load()
}

// Clear resets the published reading to "no signal", e.g. when capture
// stops or the input device changes.
func (p *Publisher) Clear() {
	p.current.Store(&StableReading{})
}
