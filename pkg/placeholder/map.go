package placeholder

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Map holds resolved manifest placeholder values by placeholder name.
type Map map[string]string

// Get returns the value of name and whether it is present.
func (m Map) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Len returns the number of placeholders.
func (m Map) Len() int {
	return len(m)
}

// Names returns the placeholder names, sorted.
func (m Map) Names() []string {
	names := maps.Keys(m)
	slices.Sort(names)
	return names
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	maps.Copy(out, m)
	return out
}

// Merge returns a new map with the entries of m overridden by other.
func (m Map) Merge(other Map) Map {
	out := m.Clone()
	maps.Copy(out, other)
	return out
}
