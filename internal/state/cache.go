package state

import "time"

// override is a locally assumed value shown ahead of remote confirmation.
type override struct {
	on    bool
	setAt time.Time
}

type entry struct {
	confirmed   bool
	confirmedAt time.Time
	optimistic  *override
}

// Cache tracks last-known and optimistic boolean state for remote entities.
//
// An optimistic override is authoritative for rendering until either an
// observation confirms the same value or the grace window elapses; after
// that the confirmed value wins regardless of any lingering override.
//
// When several buttons share one entity, they share one cache entry and the
// override is last-write-wins: a later press replaces the override and
// restamps its clock.
//
// Cache is not safe for concurrent use; it is owned and mutated exclusively
// by the event coordinator.
type Cache struct {
	grace   time.Duration
	entries map[string]*entry
}

// NewCache creates a cache with the given optimistic grace window.
func NewCache(grace time.Duration) *Cache {
	return &Cache{
		grace:   grace,
		entries: make(map[string]*entry),
	}
}

// SetGrace updates the grace window (config reload).
func (c *Cache) SetGrace(grace time.Duration) {
	c.grace = grace
}

// Visible returns the value a button bound to the entity should display at
// the given instant: the optimistic value while it is within the grace
// window, else the confirmed value, else off.
func (c *Cache) Visible(id string, now time.Time) bool {
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	if e.optimistic != nil && now.Sub(e.optimistic.setAt) < c.grace {
		return e.optimistic.on
	}
	return e.confirmed
}

// Press flips the entity optimistically and returns the new visible value.
// Called when a key press is expected to toggle the entity, before the
// network call completes.
func (c *Cache) Press(id string, now time.Time) bool {
	next := !c.Visible(id, now)
	e := c.ensure(id)
	e.optimistic = &override{on: next, setAt: now}
	return next
}

// Observe reconciles a confirmed observation into the cache and reports
// whether the visible value changed (i.e. bound buttons need a re-render).
//
// An override matching the observation is cleared (confirmed). A differing
// override is kept while inside the grace window, assuming eventual
// consistency lag; once the window has elapsed the remote system is ground
// truth and the override is dropped.
func (c *Cache) Observe(id string, on bool, now time.Time) bool {
	before := c.Visible(id, now)

	e := c.ensure(id)
	e.confirmed = on
	e.confirmedAt = now
	if e.optimistic != nil {
		if e.optimistic.on == on {
			e.optimistic = nil
		} else if now.Sub(e.optimistic.setAt) >= c.grace {
			e.optimistic = nil
		}
	}

	return c.Visible(id, now) != before
}

func (c *Cache) ensure(id string) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	return e
}
