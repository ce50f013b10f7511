package selection

import (
	"sort"
	"strings"
	"sync"
)

// Normalize returns the canonical string form of an identifier.
func Normalize(id string) string {
	return strings.TrimSpace(id)
}

// Set is a deduplicated collection of selected product identifiers. Membership tests and
// mutations are O(1); IDs enumerates in insertion order.
type Set struct {
	mu      sync.RWMutex
	members map[string]uint64
	next    uint64
}

// NewSet builds a Set seeded with ids (duplicates and blanks are dropped).
func NewSet(ids ...string) *Set {
	s := &Set{members: make(map[string]uint64, len(ids))}
	for _, id := range ids {
		s.addLocked(Normalize(id))
	}
	return s
}

func (s *Set) addLocked(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.members[id]; ok {
		return false
	}
	s.next++
	s.members[id] = s.next
	return true
}

// Toggle adds id if absent and removes it if present. It returns the new membership.
func (s *Set) Toggle(id string) bool {
	id = Normalize(id)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; ok {
		delete(s.members, id)
		return false
	}
	s.addLocked(id)
	return true
}

// Add inserts id and reports whether it was newly added.
func (s *Set) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(Normalize(id))
}

// Remove deletes id and reports whether it was present.
func (s *Set) Remove(id string) bool {
	id = Normalize(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	return true
}

// Clear removes every identifier.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[string]uint64)
}

// Contains reports membership.
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[Normalize(id)]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// IDs returns the members in the order they were added.
func (s *Set) IDs() []string {
	s.mu.RLock()
	type entry struct {
		id  string
		seq uint64
	}
	entries := make([]entry, 0, len(s.members))
	for id, seq := range s.members {
		entries = append(entries, entry{id: id, seq: seq})
	}
	s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}
