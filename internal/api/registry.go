package api

import (
	"sync"

	"github.com/JakeFAU/codecrawler/internal/crawler"
)

// Snapshotter reports live counters for one crawl run.
type Snapshotter interface {
	Snapshot() crawler.Stats
}

// Registry tracks the runs started by this process in start order.
type Registry struct {
	mu   sync.RWMutex
	runs []Snapshotter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a run.
func (r *Registry) Add(run Snapshotter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
}

// List returns a snapshot of every registered run.
func (r *Registry) List() []crawler.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]crawler.Stats, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run.Snapshot())
	}
	return out
}

// Get returns the run with id.
func (r *Registry) Get(id string) (crawler.Stats, bool) {
	for _, stats := range r.List() {
		if stats.RunID == id {
			return stats, true
		}
	}
	return crawler.Stats{}, false
}
