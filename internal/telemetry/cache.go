// Package telemetry holds the most recent successfully decoded reading per
// metric. The poller is its only writer; the exporter reads point-in-time
// snapshots and never touches the live cache.
package telemetry

import (
	"sync"
	"time"

	"pmbus-exporter/pkg/pmbus"
)

// Kind distinguishes numeric readings from status bitfields.
type Kind uint8

const (
	KindNumeric Kind = iota
	KindStatus
)

// Reading is the last known state of one polled metric. A failed poll never
// clears Value/Flags: stale-but-present beats absent, with staleness
// discoverable through LastSuccess and LastError.
type Reading struct {
	Metric string `json:"metric"` // stable exporter-facing identifier, e.g. "input_voltage"
	Module string `json:"module"` // PSU module label
	Sensor string `json:"sensor,omitempty"`
	Unit   string `json:"unit,omitempty"`
	Kind   Kind   `json:"-"`

	Value    float64           `json:"value"`
	Flags    pmbus.StatusFlags `json:"flags,omitempty"`
	HasValue bool              `json:"has_value"`

	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at"`
}

// Key identifies a reading within the cache.
func (r Reading) Key() string {
	k := r.Module + "/" + r.Metric
	if r.Sensor != "" {
		k += "/" + r.Sensor
	}
	return k
}

// Snapshot is an immutable copy of all readings at one instant, in the
// order the metrics were registered.
type Snapshot []Reading

// Cache is the mutex-guarded store behind Snapshot. The metric set is fixed
// at construction; entries are only ever updated in place.
type Cache struct {
	mu       sync.Mutex
	order    []string
	readings map[string]*Reading
}

// NewCache registers the fixed set of metrics. Each entry starts with no
// value and no error.
func NewCache(defs []Reading) *Cache {
	c := &Cache{readings: make(map[string]*Reading, len(defs))}
	for _, d := range defs {
		d := d
		key := d.Key()
		if _, dup := c.readings[key]; dup {
			continue
		}
		c.order = append(c.order, key)
		c.readings[key] = &d
	}
	return c
}

// SetValue records a successful numeric reading: value and timestamp are
// replaced and any previous error is cleared.
func (c *Cache) SetValue(key string, v float64, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.readings[key]
	if !ok {
		return
	}
	r.Value = v
	r.HasValue = true
	r.LastSuccess = at
	r.LastError = ""
	r.LastErrorAt = time.Time{}
}

// SetFlags records a successful status reading.
func (c *Cache) SetFlags(key string, flags pmbus.StatusFlags, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.readings[key]
	if !ok {
		return
	}
	r.Flags = flags
	r.HasValue = true
	r.LastSuccess = at
	r.LastError = ""
	r.LastErrorAt = time.Time{}
}

// SetError records a failed poll. The previous value and its timestamp are
// preserved so a scrape during a transient bus glitch still sees the last
// good reading.
func (c *Cache) SetError(key string, err error, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.readings[key]
	if !ok || err == nil {
		return
	}
	r.LastError = err.Error()
	r.LastErrorAt = at
}

// Snapshot returns a consistent deep copy of every reading. The copy is
// taken under the lock in one step, so a scrape never observes a cycle
// half-applied.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(Snapshot, 0, len(c.order))
	for _, key := range c.order {
		r := *c.readings[key]
		if r.Flags != nil {
			flags := make(pmbus.StatusFlags, len(r.Flags))
			for name, set := range r.Flags {
				flags[name] = set
			}
			r.Flags = flags
		}
		snap = append(snap, r)
	}
	return snap
}
