package importer

import (
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/lookup"
	"github.com/biyu6/swift/internal/names"
)

// AddEntryToLookupTable registers d, and the members and enumerators it
// contains, under their imported names.
func (s *Session) AddEntryToLookupTable(t *lookup.Table, d *foreign.Decl) {
	if d == nil || d.Kind == foreign.KindParam {
		return
	}
	if d.Kind != foreign.KindCategory && !(d.Forward && s.foreign.Definition(d) == nil) {
		name, ctx := s.ImportFullName(d, ImportNameOptions{})
		if name.OK() {
			context := ""
			if ctx != nil {
				cn, _ := s.ImportFullName(ctx, ImportNameOptions{})
				context = cn.Name.Base
			}
			t.Add(lookup.Entry{Name: name.Name.Base, Context: context, Decl: d})
			if !name.Alias.IsEmpty() {
				t.Add(lookup.Entry{Name: name.Alias.Base, Context: context, Decl: d, Alias: true})
			}
		}
	}
	switch d.Kind {
	case foreign.KindClass, foreign.KindProtocol, foreign.KindCategory, foreign.KindRecord, foreign.KindEnum:
		for _, m := range d.Members {
			s.AddEntryToLookupTable(t, m)
		}
	}
}

// AddMacrosToLookupTable registers the object-like macros of a module.
func (s *Session) AddMacrosToLookupTable(t *lookup.Table, macros []*foreign.Decl) {
	for _, m := range macros {
		if m.Kind != foreign.KindMacro || m.Name == "" {
			continue
		}
		t.Add(lookup.Entry{Name: m.Name, Decl: m})
	}
}

// RegisterModule fills the lookup table of m and makes its declarations
// visible by moving to a new generation. The bridging-header unit shares
// one table.
func (s *Session) RegisterModule(m *foreign.Module) *lookup.Table {
	name := m.Name
	if m.Bridging {
		name = lookup.BridgingModule
	}
	t := s.tables.Table(name)
	for _, d := range m.Decls {
		s.AddEntryToLookupTable(t, d)
	}
	s.AddMacrosToLookupTable(t, m.Macros)
	s.BumpGeneration()
	return t
}

// LookupValue imports every top-level declaration named name.
func (s *Session) LookupValue(name string) []*hostast.Decl {
	scope := s.coord.Enter()
	defer scope.Exit()

	var out []*hostast.Decl
	seen := make(map[*hostast.Decl]bool)
	for _, t := range s.tables.All() {
		for _, e := range t.Lookup(name, "") {
			hd := s.importTransparent(e.Decl)
			if e.Alias {
				if alt := s.AlternateDecl(hd); alt != nil {
					hd = alt
				}
			}
			if hd != nil && !seen[hd] {
				seen[hd] = true
				out = append(out, hd)
			}
		}
	}
	return out
}

// LookupVisibleDecls imports every top-level declaration of every table.
// The result is cached until the next generation bump; a re-entrant call
// made while the list is being built sees the partial list.
func (s *Session) LookupVisibleDecls() []*hostast.Decl {
	switch s.visibleState {
	case visibleValid, visibleInProgress:
		return s.visible
	case visibleInvalid:
	}
	s.visibleState = visibleInProgress
	s.visible = nil
	s.visibleRebuilds++

	scope := s.coord.Enter()
	defer scope.Exit()

	seen := make(map[*hostast.Decl]bool)
	for _, t := range s.tables.All() {
		for _, e := range t.TopLevel() {
			if e.Alias {
				continue
			}
			hd := s.importTransparent(e.Decl)
			if hd != nil && !seen[hd] {
				seen[hd] = true
				s.visible = append(s.visible, hd)
			}
		}
	}
	s.visibleState = visibleValid
	return s.visible
}

// LookupObjCMembers imports every Objective-C method and property found
// under name in any table.
func (s *Session) LookupObjCMembers(name string) []*hostast.Decl {
	scope := s.coord.Enter()
	defer scope.Exit()

	var out []*hostast.Decl
	for _, t := range s.tables.All() {
		out = s.appendImported(out, t.ObjCMembers(name))
	}
	return out
}

// LookupAllObjCMembers imports every Objective-C method and property of
// every table.
func (s *Session) LookupAllObjCMembers() []*hostast.Decl {
	scope := s.coord.Enter()
	defer scope.Exit()

	var out []*hostast.Decl
	for _, t := range s.tables.All() {
		out = s.appendImported(out, t.AllObjCMembers())
	}
	return out
}

func (s *Session) appendImported(out []*hostast.Decl, entries []lookup.Entry) []*hostast.Decl {
	for _, e := range entries {
		if hd := s.importDeclImpl(e.Decl); hd != nil {
			out = append(out, hd)
		}
	}
	return out
}

// ImportSelector maps an Objective-C selector to a host name.
func (s *Session) ImportSelector(sel names.Selector) names.DeclName {
	return s.interner.InternName(names.ImportSelector(sel))
}

// ExportSelector maps a host name back to a selector. See
// names.ExportSelector for allowSimpleName.
func (s *Session) ExportSelector(n names.DeclName, allowSimpleName bool) (names.Selector, bool) {
	return names.ExportSelector(n, allowSimpleName)
}
