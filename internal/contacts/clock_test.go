package contacts

import (
	"sync"
	"time"

	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/store/storetest"
)

func newTestService(m *storetest.Memory, clock *fakeClock) *Service {
	return NewService(logger.Mock(), m.Store()).WithClock(clock.Now)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

