package overwrite

import (
	"sync"
	"time"
)

// Window is how long a written value masks the polled device state.
const Window = 5 * time.Second

type Entry struct {
	Timestamp time.Time
	Value     any
}

// Cache holds optimistic values keyed by "<SECTION>_<FIELD>".
// Entries are never removed explicitly; they stop applying once the window passes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
	window  time.Duration
}

func New(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]Entry),
		now:     now,
		window:  Window,
	}
}

func Key(section, field string) string {
	return section + "_" + field
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Timestamp: c.now(), Value: value}
}

// Get returns the overwrite value while it is still inside the window.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.Timestamp.Add(c.window)) {
		return nil, false
	}
	return e.Value, true
}
