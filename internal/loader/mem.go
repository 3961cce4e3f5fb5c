package loader

import (
	"sort"
	"sync"
)

// MapLoader serves modules and resources from memory.
// Safe for concurrent use.
type MapLoader struct {
	mu        sync.RWMutex
	modules   map[string]string
	resources map[string][]string
}

// NewMapLoader creates a loader with the given module sources.
func NewMapLoader(modules map[string]string) *MapLoader {
	m := &MapLoader{
		modules:   make(map[string]string, len(modules)),
		resources: make(map[string][]string),
	}
	for name, text := range modules {
		m.modules[name] = text
	}
	return m
}

// SetModule adds or replaces a module.
func (m *MapLoader) SetModule(name, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[name] = text
}

// AddResource appends a location for name.
func (m *MapLoader) AddResource(name, location string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[name] = append(m.resources[name], location)
}

// Modules returns the sorted module names.
func (m *MapLoader) Modules() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.modules))
	for name := range m.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadUnit implements Loader.
func (m *MapLoader) LoadUnit(name string) (Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.modules[name]
	if !ok {
		return Source{}, moduleNotFound(name)
	}
	return Source{Name: name, Text: text, Location: "mem:" + name}, nil
}

// FindResource implements Loader.
func (m *MapLoader) FindResource(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	locs := m.resources[name]
	if len(locs) == 0 {
		return "", resourceNotFound(name)
	}
	return locs[0], nil
}

// FindResources implements Loader.
func (m *MapLoader) FindResources(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	locs := m.resources[name]
	out := make([]string, len(locs))
	copy(out, locs)
	return out, nil
}
