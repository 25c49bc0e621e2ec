// internal/dedup/memory.go
package dedup

import (
	"sort"
	"sync"
	"time"
)

// MemoryLedger is the default process-local ledger. State does not survive a
// restart; the scheduler accepts at-most-once-per-day best effort semantics.
// Lookup and mark are O(1) on the bucket and member maps.
type MemoryLedger struct {
	mu sync.Mutex
	// bucket (dayKey-type) -> member (entityID-userID) -> record creation time
	buckets map[string]map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		buckets: make(map[string]map[string]time.Time),
	}
}

func (l *MemoryLedger) HasFired(entityID, userID, notificationType string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	members, ok := l.buckets[bucketKey(DayKey(now), notificationType)]
	if !ok {
		return false
	}
	_, fired := members[memberKey(entityID, userID)]
	return fired
}

func (l *MemoryLedger) MarkFired(entityID, userID, notificationType string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := bucketKey(DayKey(now), notificationType)
	members, ok := l.buckets[bucket]
	if !ok {
		members = make(map[string]time.Time)
		l.buckets[bucket] = members
	}

	member := memberKey(entityID, userID)
	if _, exists := members[member]; exists {
		return
	}
	members[member] = now
}

// CleanupOlderThan evicts by record creation wall-clock age, not by parsing
// the bucket's day key.
func (l *MemoryLedger) CleanupOlderThan(days int, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.AddDate(0, 0, -days)
	for bucket, members := range l.buckets {
		for member, createdAt := range members {
			if createdAt.Before(cutoff) {
				delete(members, member)
			}
		}
		if len(members) == 0 {
			delete(l.buckets, bucket)
		}
	}
}

func (l *MemoryLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]map[string]time.Time)
}

func (l *MemoryLedger) Snapshot() map[string][]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string][]string, len(l.buckets))
	for bucket, members := range l.buckets {
		keys := make([]string, 0, len(members))
		for member := range members {
			keys = append(keys, member)
		}
		sort.Strings(keys)
		out[bucket] = keys
	}
	return out
}

// Size returns the total record count, used by the ops status endpoint.
func (l *MemoryLedger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, members := range l.buckets {
		n += len(members)
	}
	return n
}
