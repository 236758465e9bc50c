package xrecord

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// Cache remembers which members of a type participate in a given result
// set shape. Entries are keyed by the type's full name plus the sorted,
// lower-cased, de-duplicated column names, with one map per MemberKind.
// The first writer of a key wins; later computations for the same key are
// discarded.
//
// A Cache is owned by a DB (or created directly in tests) and is safe for
// concurrent use.
type Cache struct {
	entries [kindCount]sync.Map // cacheKey -> []Member
}

func NewCache() *Cache { return &Cache{} }

// SelectedMembers returns the members of d whose names appear in columns,
// compared case-insensitively. Fields come first, then accessors, each in
// declaration order. The returned slice is shared and must not be modified.
func (c *Cache) SelectedMembers(d Descriptor, columns []string) []Member {
	ms, _, _ := c.lookup(d, columns)
	return ms
}

// lookup is SelectedMembers that also returns the cache key and reports
// whether every kind was served from the cache.
func (c *Cache) lookup(d Descriptor, columns []string) ([]Member, string, bool) {
	key := cacheKey(d, columns)
	var (
		out     []Member
		hit     = true
		present map[string]struct{}
		all     []Member
	)
	for k := MemberKind(0); k < kindCount; k++ {
		if v, ok := c.entries[k].Load(key); ok {
			out = append(out, v.([]Member)...)
			continue
		}
		if all == nil {
			all = d.Members()
			present = make(map[string]struct{}, len(columns))
			for _, col := range columns {
				present[normalizeColAscii(col)] = struct{}{}
			}
		}
		var kinded, selected []Member
		for _, m := range all {
			if m.Kind != k {
				continue
			}
			kinded = append(kinded, m)
			if _, ok := present[toLowerAscii(m.Name)]; ok {
				selected = append(selected, m)
			}
		}
		// Types with no members of this kind never get an entry.
		if len(kinded) == 0 {
			continue
		}
		hit = false
		v, _ := c.entries[k].LoadOrStore(key, selected)
		out = append(out, v.([]Member)...)
	}
	return out, key, hit
}

// Len reports the number of cached entries for kind.
func (c *Cache) Len(kind MemberKind) int {
	n := 0
	c.entries[kind].Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() {
	for k := range c.entries {
		c.entries[k].Clear()
	}
}

func cacheKey(d Descriptor, columns []string) string {
	cols := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = normalizeColAscii(col)
	}
	sort.Strings(cols)
	cols = slices.Compact(cols)
	return typeFullName(d.Type()) + "|" + strings.Join(cols, ",")
}

func normalizeColAscii(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerAscii(s)
}

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
