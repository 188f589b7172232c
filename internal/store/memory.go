package store

import (
	"context"
	"sync"
	"time"

	"github.com/solvedigitale/Digitext-last/internal/models"
)

// MemoryDeduper is the in-process fallback Deduper used when Redis is not
// configured. Entries expire after the same 24h window; expired entries are
// swept lazily on insert.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryDeduper creates an empty in-memory deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time)}
}

// FirstDelivery records a provider message id and reports whether it was
// unseen within the dedupe window.
func (d *MemoryDeduper) FirstDelivery(_ context.Context, platform models.Platform, messageID string) bool {
	key := dedupeKey(platform, messageID)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}

	// Sweep a handful of expired entries to bound growth.
	swept := 0
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
		if swept++; swept >= 64 {
			break
		}
	}

	d.seen[key] = now.Add(dedupeTTL)
	return true
}
