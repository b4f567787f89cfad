// Package lookup holds the name lookup tables the importer populates: one
// table per foreign module plus one for headers included directly through
// the bridging header.
package lookup

import (
	"sort"
	"sync"

	"github.com/biyu6/swift/internal/foreign"
)

// BridgingModule is the table name used for the bridging-header unit.
const BridgingModule = "__ObjC"

// Entry is one name registered in a table.
type Entry struct {
	// Name is the host base name the declaration is found under.
	Name string `json:"name"`
	// Context is the host name of the enclosing type for members, "" for
	// top-level entries.
	Context string        `json:"context,omitempty"`
	Decl    *foreign.Decl `json:"-"`
	// Alias marks an entry registered under the declaration's alias name.
	Alias bool `json:"alias,omitempty"`
}

// IsObjCMember reports whether the entry is an Objective-C method or
// property.
func (e Entry) IsObjCMember() bool {
	return e.Decl != nil && (e.Decl.Kind == foreign.KindMethod || e.Decl.Kind == foreign.KindProperty)
}

// IsMacro reports whether the entry was added from a macro.
func (e Entry) IsMacro() bool {
	return e.Decl != nil && e.Decl.Kind == foreign.KindMacro
}

type entryKey struct {
	name    string
	context string
	decl    *foreign.Decl
}

// Table indexes the entries of one module by name and by context.
type Table struct {
	mu      sync.RWMutex
	module  string
	entries []Entry

	seen      map[entryKey]bool
	byName    map[string][]int
	byContext map[string][]int
}

// NewTable creates an empty table for module.
func NewTable(module string) *Table {
	return &Table{
		module:    module,
		seen:      make(map[entryKey]bool),
		byName:    make(map[string][]int),
		byContext: make(map[string][]int),
	}
}

// Module returns the module name the table belongs to.
func (t *Table) Module() string { return t.module }

// Add records e. Adding the same (name, context, declaration) twice is a
// no-op; it reports whether the entry was new.
func (t *Table) Add(e Entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := entryKey{e.Name, e.Context, e.Decl}
	if t.seen[k] {
		return false
	}
	t.seen[k] = true
	idx := len(t.entries)
	t.entries = append(t.entries, e)
	t.byName[e.Name] = append(t.byName[e.Name], idx)
	t.byContext[e.Context] = append(t.byContext[e.Context], idx)
	return true
}

// Lookup returns the entries named name within context ("" for top level).
func (t *Table) Lookup(name, context string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for _, i := range t.byName[name] {
		if t.entries[i].Context == context {
			out = append(out, t.entries[i])
		}
	}
	return out
}

// LookupAnyContext returns every entry named name regardless of context.
func (t *Table) LookupAnyContext(name string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collect(t.byName[name])
}

// Members returns the entries whose context is the given type name.
func (t *Table) Members(context string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if context == "" {
		return nil
	}
	return t.collect(t.byContext[context])
}

// TopLevel returns the entries without a context.
func (t *Table) TopLevel() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collect(t.byContext[""])
}

// ObjCMembers returns the Objective-C method and property entries named
// name, in every context.
func (t *Table) ObjCMembers(name string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for _, i := range t.byName[name] {
		if t.entries[i].IsObjCMember() {
			out = append(out, t.entries[i])
		}
	}
	return out
}

// AllObjCMembers returns every Objective-C method and property entry.
func (t *Table) AllObjCMembers() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for _, e := range t.entries {
		if e.IsObjCMember() {
			out = append(out, e)
		}
	}
	return out
}

// All returns a copy of every entry in insertion order.
func (t *Table) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns the distinct names in the table, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of entries.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Clear removes every entry.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.seen = make(map[entryKey]bool)
	t.byName = make(map[string][]int)
	t.byContext = make(map[string][]int)
}

func (t *Table) collect(indices []int) []Entry {
	out := make([]Entry, 0, len(indices))
	for _, i := range indices {
		if i < len(t.entries) {
			out = append(out, t.entries[i])
		}
	}
	return out
}

// Set holds the tables of every module seen by a session.
type Set struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{tables: make(map[string]*Table)}
}

// Table returns the table for module, creating it when absent.
func (s *Set) Table(module string) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[module]; ok {
		return t
	}
	t := NewTable(module)
	s.tables[module] = t
	return t
}

// Bridging returns the bridging-header table.
func (s *Set) Bridging() *Table { return s.Table(BridgingModule) }

// Get returns the table for module, or nil.
func (s *Set) Get(module string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[module]
}

// Modules returns the module names with tables, sorted.
func (s *Set) Modules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for n := range s.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// All returns every table ordered by module name.
func (s *Set) All() []*Table {
	mods := s.Modules()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Table, 0, len(mods))
	for _, m := range mods {
		out = append(out, s.tables[m])
	}
	return out
}
