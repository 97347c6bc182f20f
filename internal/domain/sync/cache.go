package sync

import (
	"sync"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEDUP CACHE
// ══════════════════════════════════════════════════════════════════════════════

// CacheEntry records that a target page already exists for a student in a
// given epoch, and what content it was last written with.
type CacheEntry struct {
	// PageRef is the target provider's reference for the page.
	PageRef PageRef

	// Fingerprint is the digest of the visible fields last written.
	Fingerprint student.Fingerprint

	// Epoch is the week the page belongs to. An entry whose epoch is not
	// current is stale and must never be used to skip a write.
	Epoch Epoch
}

// DedupCache is the process-local map from student identity to cache entry.
// At most one entry exists per student. The cache is deliberately transient:
// it is rebuilt by the warm-start pass or, worst case, by one extra create
// per student after a restart.
//
// Jobs serialize through the run coordinator, so the internal lock only
// protects against readers outside a job (health/status endpoints).
type DedupCache struct {
	mu      sync.RWMutex
	entries map[student.ID]CacheEntry
}

// NewDedupCache creates an empty cache.
func NewDedupCache() *DedupCache {
	return &DedupCache{entries: make(map[student.ID]CacheEntry)}
}

// Lookup returns the entry for a student if it exists and belongs to the
// given epoch. Entries from any other epoch are reported as absent.
func (c *DedupCache) Lookup(id student.ID, current Epoch) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok || !entry.Epoch.Equal(current) {
		return CacheEntry{}, false
	}
	return entry, true
}

// Put stores or replaces the entry for a student.
func (c *DedupCache) Put(id student.ID, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = entry
}

// Remove deletes the entry for a student, if any.
func (c *DedupCache) Remove(id student.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear drops every entry. Called by the weekly reset.
func (c *DedupCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[student.ID]CacheEntry)
}

// Len returns the number of entries.
func (c *DedupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the current entries, keyed by student ID.
// Used by the weekly reset to know which pages to archive.
func (c *DedupCache) Snapshot() map[student.ID]CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[student.ID]CacheEntry, len(c.entries))
	for id, entry := range c.entries {
		out[id] = entry
	}
	return out
}
