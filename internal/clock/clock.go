// Package clock supplies the current time to the presale phase gate.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current unix timestamp in seconds.
type Clock interface {
	Now() int64
}

// System reads wall-clock time.
type System struct{}

// Now returns the current unix time in seconds.
func (System) Now() int64 {
	return time.Now().Unix()
}

// Manual is a settable clock for deterministic runs and tests.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a manual clock set to ts.
func NewManual(ts int64) *Manual {
	return &Manual{now: ts}
}

// Now returns the current manual timestamp.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to ts. Moving backwards is allowed.
func (m *Manual) Set(ts int64) {
	m.mu.Lock()
	m.now = ts
	m.mu.Unlock()
}

// Advance moves the clock forward by seconds and returns the new time.
func (m *Manual) Advance(seconds int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += seconds
	return m.now
}

var (
	_ Clock = System{}
	_ Clock = (*Manual)(nil)
)
