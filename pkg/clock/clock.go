// Package clock provides the millisecond time source the control loop feeds
// into the sensor driver.
package clock

import (
	"sync"
	"time"
)

// Clock returns a monotonic millisecond count. The value is allowed to wrap
// around at 2^64.
type Clock interface {
	NowMs() uint64
}

// Monotonic counts milliseconds since it was created, shifted by Offset.
type Monotonic struct {
	start  time.Time
	offset uint64
}

// NewMonotonic starts a clock at offset. A large offset moves the wraparound
// point close to startup.
func NewMonotonic(offset uint64) *Monotonic {
	return &Monotonic{start: time.Now(), offset: offset}
}

func (m *Monotonic) NowMs() uint64 {
	return m.offset + uint64(time.Since(m.start).Milliseconds())
}

// Manual is a Clock driven by hand.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) NowMs() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by ms and returns the new time.
func (m *Manual) Advance(ms uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += ms
	return m.now
}

func (m *Manual) Set(ms uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = ms
}
