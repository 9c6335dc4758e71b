package permission

import "sort"

// Set is an unordered set of permission or role names.
type Set map[string]struct{}

// NewSet builds a set from names. Empty names are skipped.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	s.Add(names...)
	return s
}

// Add inserts names. Duplicates are no-ops.
func (s Set) Add(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		s[name] = struct{}{}
	}
}

// Has reports membership. A nil set contains nothing.
func (s Set) Has(name string) bool {
	if s == nil || name == "" {
		return false
	}
	_, ok := s[name]
	return ok
}

// Union returns a new set holding every member of s and others.
func (s Set) Union(others ...Set) Set {
	out := make(Set, len(s))
	for name := range s {
		out[name] = struct{}{}
	}
	for _, other := range others {
		for name := range other {
			out[name] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
