// Package registry holds the name -> source text mapping of an execution.
//
// Every unit compiled while an execution is attached gets a record here.
// After a restart the records are replayed in Seq order to rebuild the units
// with their original names. Records are insert-only: once a name is bound
// to a source text, that text is authoritative.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Record is one source record.
type Record struct {
	Name   string
	Source string

	// Seq is the 1-based insertion order.
	Seq int
}

// Registry is safe for concurrent use. Readers copy under a read lock,
// so persistence snapshots never observe a half-written record.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Record
	order  []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]Record)}
}

// Put records source under name. Returns false and leaves the existing
// record untouched if name is already present.
func (r *Registry) Put(name, source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; ok {
		return false
	}
	r.order = append(r.order, name)
	r.byName[name] = Record{Name: name, Source: source, Seq: len(r.order)}
	return true
}

// Get returns the source recorded under name.
func (r *Registry) Get(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byName[name]
	return rec.Source, ok
}

// Has reports whether name has a record.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Records returns a copy of all records in insertion order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Snapshot returns a copy of the mapping.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.byName))
	for name, rec := range r.byName {
		out[name] = rec.Source
	}
	return out
}

// Restore loads persisted records into an empty registry.
// Records are applied in Seq order; Seq must be 1..N without gaps.
func (r *Registry) Restore(records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) > 0 {
		return fmt.Errorf("restore: registry already holds %d record(s)", len(r.order))
	}
	for i, rec := range sorted {
		if rec.Seq != i+1 {
			return fmt.Errorf("restore: record %q has seq %d, expected %d", rec.Name, rec.Seq, i+1)
		}
		if _, ok := r.byName[rec.Name]; ok {
			return fmt.Errorf("restore: duplicate record %q", rec.Name)
		}
		r.order = append(r.order, rec.Name)
		r.byName[rec.Name] = rec
	}
	return nil
}
