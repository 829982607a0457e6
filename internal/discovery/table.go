package discovery

import (
	"sort"
	"sync"
	"time"

	"github.com/windlass-marine/windlass-core/internal/bus"
	"github.com/windlass-marine/windlass-core/internal/device"
)

// table is the bounded known-devices map. last_seen values are
// monotonic: an upsert never moves an entry's last_seen backwards, so
// out-of-order observations cannot make a live device look stale.
type table struct {
	mu      sync.RWMutex
	entries map[bus.Address]device.Info
	max     int
}

func newTable(max int) *table {
	return &table{
		entries: make(map[bus.Address]device.Info),
		max:     max,
	}
}

// upsert inserts or refreshes an entry. When inserting into a full
// table the least recently seen entry is evicted first; the evicted
// address is returned so the caller can log it.
func (t *table) upsert(info device.Info) (evicted bus.Address, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, found := t.entries[info.Address]; found {
		if info.LastSeen.Before(existing.LastSeen) {
			info.LastSeen = existing.LastSeen
		}
		t.entries[info.Address] = info
		return "", false
	}

	if len(t.entries) >= t.max {
		evicted = t.oldestLocked()
		delete(t.entries, evicted)
		ok = true
	}
	t.entries[info.Address] = info
	return evicted, ok
}

// touch refreshes last_seen for addr, inserting a minimal entry when
// the address is not yet known. Used for heartbeats and for bus
// activity observed outside the discovery envelopes.
func (t *table) touch(addr bus.Address, now time.Time) (evicted bus.Address, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, found := t.entries[addr]; found {
		if now.After(existing.LastSeen) {
			existing.LastSeen = now
			t.entries[addr] = existing
		}
		return "", false
	}

	if len(t.entries) >= t.max {
		evicted = t.oldestLocked()
		delete(t.entries, evicted)
		ok = true
	}
	t.entries[addr] = device.Info{
		Address:  addr,
		Status:   device.StatusOnline,
		LastSeen: now,
	}
	return evicted, ok
}

// sweep removes every entry whose silence strictly exceeds timeout and
// returns the removed addresses.
func (t *table) sweep(now time.Time, timeout time.Duration) []bus.Address {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []bus.Address
	for addr, info := range t.entries {
		if now.Sub(info.LastSeen) > timeout {
			delete(t.entries, addr)
			removed = append(removed, addr)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

func (t *table) get(addr bus.Address) (device.Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, found := t.entries[addr]
	if !found {
		return device.Info{}, false
	}
	return info.DeepCopy(), true
}

// snapshot returns deep copies of all entries, ordered by address.
func (t *table) snapshot() []device.Info {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]device.Info, 0, len(t.entries))
	for _, info := range t.entries {
		out = append(out, info.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (t *table) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// oldestLocked finds the least recently seen address. Caller holds the
// write lock. Ties break on address order so eviction is deterministic.
func (t *table) oldestLocked() bus.Address {
	var oldest bus.Address
	var oldestSeen time.Time
	first := true
	for addr, info := range t.entries {
		if first || info.LastSeen.Before(oldestSeen) ||
			(info.LastSeen.Equal(oldestSeen) && addr < oldest) {
			oldest = addr
			oldestSeen = info.LastSeen
			first = false
		}
	}
	return oldest
}
