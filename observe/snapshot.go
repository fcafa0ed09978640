package observe

import (
	"fmt"
	"sort"
	"sync"
)

// Snapshot keeps the latest value of every registered or proposed variable,
// keyed by fn/ident(type). Requests are handled by the embedded Base.
//
// A variable has one row. Its type is the static type name from Register
// when one was seen, else the dynamic type of the first proposed value.
type Snapshot struct {
	Base

	mu   sync.RWMutex
	vars map[string]snapshotEntry
}

type snapshotEntry struct {
	typeName string
	value    string
}

// NewSnapshot returns an empty Snapshot whose requests are logged by base.
func NewSnapshot(base Base) *Snapshot {
	return &Snapshot{Base: base, vars: make(map[string]snapshotEntry)}
}

func (s *Snapshot) Register(value any, fn, ident, typeName string) any {
	s.set(Path(fn, ident), typeName, true, value)
	return value
}

func (s *Snapshot) Propose(value any, fn, ident string) any {
	s.set(Path(fn, ident), fmt.Sprintf("%T", value), false, value)
	return value
}

func (s *Snapshot) set(path, typeName string, static bool, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vars == nil {
		s.vars = make(map[string]snapshotEntry)
	}
	entry, ok := s.vars[path]
	if !ok || (static && typeName != "") {
		entry.typeName = typeName
	}
	entry.value = fmt.Sprint(value)
	s.vars[path] = entry
}

// Get returns the latest value recorded under key.
func (s *Snapshot) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for path, entry := range s.vars {
		if snapshotKey(path, entry) == key {
			return entry.value, true
		}
	}
	return "", false
}

// Report returns "key: value" lines sorted by key.
func (s *Snapshot) Report() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, 0, len(s.vars))
	for path, entry := range s.vars {
		lines = append(lines, snapshotKey(path, entry)+": "+entry.value)
	}
	sort.Strings(lines)
	return lines
}

func snapshotKey(path string, entry snapshotEntry) string {
	return path + "(" + entry.typeName + ")"
}

// Len returns the number of tracked variables.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}

// Clear forgets every value.
func (s *Snapshot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.vars)
}
