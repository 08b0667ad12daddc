package viewstore

import (
	"sync"

	"github.com/rs/zerolog"
)

// Freshness describes how much a cached view value can be trusted.
type Freshness int

const (
	// Absent means no value has ever been written for the key.
	Absent Freshness = iota
	// Stale means the last-known value is retained but a relevant mutation
	// (or a failed refetch) has happened since it was written.
	Stale
	// Fresh means the value reflects the most recent successful fetch and no
	// relevant mutation has occurred since.
	Fresh
)

// String returns the lower-case state name for logging.
func (f Freshness) String() string {
	switch f {
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	default:
		return "absent"
	}
}

// Entry is a point-in-time snapshot of one cached view. Value is nil until
// the first successful fetch; a Stale entry keeps its last good value so the
// UI never blanks while a refresh is pending.
type Entry struct {
	Value    any
	State    Freshness
	InFlight bool
}

// entry is the registry's internal mutable record for one ViewKey.
type entry struct {
	value     any
	state     Freshness
	inFlight  bool
	observers int
}

func (e *entry) snapshot() Entry {
	return Entry{Value: e.value, State: e.state, InFlight: e.inFlight}
}

// Registry is the process-wide keyed store of view entries. All operations
// are synchronous in-memory map updates; the mutex serializes mutations the
// way the source system's cooperative scheduler did. The registry holds no
// fetch logic of its own - the Coordinator drives state transitions around
// backend calls.
type Registry struct {
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[ViewKey]*entry
}

// NewRegistry creates an empty registry. The cache is ephemeral: a new
// session starts from an empty registry and nothing is persisted on teardown.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger.With().Str("component", "Registry").Logger(),
		entries: make(map[ViewKey]*entry),
	}
}

// Observe registers interest in a key and returns the current entry,
// creating an Absent entry if none exists. Each Observe must eventually be
// balanced by a Release for the entry to become evictable.
func (r *Registry) Observe(key ViewKey) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{state: Absent}
		r.entries[key] = e
		r.logger.Debug().Stringer("view", key).Msg("Created view entry.")
	}
	e.observers++
	return e.snapshot()
}

// Release drops one registered interest in a key. Releasing an unknown or
// unobserved key is a no-op.
func (r *Registry) Release(key ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok && e.observers > 0 {
		e.observers--
	}
}

// Get is a non-registering read of the current entry for a key.
func (r *Registry) Get(key ViewKey) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Invalidate transitions a Fresh entry to Stale without clearing its value.
// Absent and already-Stale entries are left as they are; invalidating an
// unknown key is a no-op.
func (r *Registry) Invalidate(key ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || e.state != Fresh {
		return
	}
	e.state = Stale
	r.logger.Debug().Stringer("view", key).Msg("View invalidated.")
}

// Write records a successful fetch result: the entry becomes Fresh with the
// given value and any in-flight mark is cleared. The entry is created if the
// key was never observed, so a fetch completing after its observers released
// still lands harmlessly.
func (r *Registry) Write(key ViewKey, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.value = value
	e.state = Fresh
	e.inFlight = false
}

// Sweep evicts every entry that has no registered observers and no fetch in
// flight, returning the number evicted. Callers decide when memory pressure
// warrants a sweep; entries are never freed implicitly.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for key, e := range r.entries {
		if e.observers == 0 && !e.inFlight {
			delete(r.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug().Int("evicted", evicted).Msg("Swept unobserved view entries.")
	}
	return evicted
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// markInFlight flags the key's entry as having an outstanding fetch,
// creating the entry if needed.
func (r *Registry) markInFlight(key ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{state: Absent}
		r.entries[key] = e
	}
	e.inFlight = true
}

// settleFailure clears the in-flight mark after a failed fetch. An entry
// that holds a previous value reverts to Stale so the last good value stays
// visible; an entry that never had a value returns to Absent.
func (r *Registry) settleFailure(key ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.inFlight = false
	if e.value != nil {
		e.state = Stale
	} else {
		e.state = Absent
	}
}
