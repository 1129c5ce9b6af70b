package testsupport

import (
	"sync"
	"time"

	"fieldingest/internal/poller"
)

// FakeClock is a manual clock. Tick hands one tick to every live ticker and
// returns once each has accepted it.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*FakeTicker
}

// NewFakeClock starts at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) NewTicker(d time.Duration) poller.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &FakeTicker{
		interval: d,
		ch:       make(chan time.Time),
		stopped:  make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Live returns the number of tickers not yet stopped.
func (c *FakeClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Tick advances the clock by one interval of each ticker. It blocks until
// every live ticker's consumer has received the tick or the ticker stops.
// Returns the number of ticks delivered.
func (c *FakeClock) Tick() int {
	c.mu.Lock()
	tickers := append([]*FakeTicker(nil), c.tickers...)
	c.now = c.now.Add(time.Second)
	now := c.now
	c.mu.Unlock()

	delivered := 0
	for _, t := range tickers {
		if t.isStopped() {
			continue
		}
		select {
		case t.ch <- now:
			delivered++
		case <-t.stopped:
		case <-time.After(2 * time.Second):
		}
	}
	return delivered
}

// TickN calls Tick n times.
func (c *FakeClock) TickN(n int) {
	for i := 0; i < n; i++ {
		c.Tick()
	}
}

// FakeTicker is a ticker driven by FakeClock.
type FakeTicker struct {
	interval time.Duration
	ch       chan time.Time
	once     sync.Once
	stopped  chan struct{}
}

func (t *FakeTicker) C() <-chan time.Time { return t.ch }

func (t *FakeTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *FakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
