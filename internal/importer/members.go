package importer

import (
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/names"
)

// LoadAllMembers implements hostast.LazyMemberLoader. contextData is the
// token handed out when d was imported. Loading a declaration a second
// time does nothing.
func (s *Session) LoadAllMembers(d *hostast.Decl, contextData uint64) {
	if s.loadedMembers[d] {
		return
	}
	s.loadedMembers[d] = true
	fd := s.lazyDecl(contextData)

	scope := s.coord.Enter()
	defer scope.Exit()

	switch fd.Kind {
	case foreign.KindClass, foreign.KindProtocol, foreign.KindCategory:
		s.loadObjCMembers(d, fd)
		if fd.Kind == foreign.KindClass {
			s.loadMirroredMembers(d, fd)
			if fd.Super == nil {
				s.loadClassMethodVersions(d, fd)
			}
		}
	case foreign.KindEnum:
		for _, c := range fd.Members {
			if c.Kind != foreign.KindEnumConstant {
				continue
			}
			if m := s.importDeclImpl(c); m != nil && m.Context == d {
				d.AddMember(m)
			}
		}
	case foreign.KindRecord:
		for _, f := range fd.Members {
			if f.Kind != foreign.KindField {
				continue
			}
			if m := s.importDeclImpl(f); m != nil {
				d.AddMember(m)
			}
		}
	}
}

// subscriptPair collects the accessors of one subscript flavor.
type subscriptPair struct {
	getter, setter *foreign.Decl
}

func (s *Session) loadObjCMembers(d *hostast.Decl, fd *foreign.Decl) {
	accessors := make(map[selectorKey]bool)
	for _, m := range fd.Members {
		if m.Kind != foreign.KindProperty {
			continue
		}
		accessors[selectorKey{getterSelector(m), m.Instance}] = true
		if !m.ReadOnly {
			accessors[selectorKey{setterSelector(m), m.Instance}] = true
		}
	}

	subscripts := map[string]*subscriptPair{"indexed": {}, "keyed": {}}
	for _, m := range fd.Members {
		switch m.Kind {
		case foreign.KindMethod:
			if accessors[selectorKey{m.Selector.String(), m.Instance}] {
				continue
			}
			hm := s.importDeclImpl(m)
			if hm == nil {
				continue
			}
			d.AddMember(hm)
			if name, _ := s.ImportFullName(m, ImportNameOptions{}); name.IsSubscriptAccessor {
				collectSubscript(subscripts, m)
			}
		case foreign.KindProperty:
			if hp := s.importDeclImpl(m); hp != nil {
				d.AddMember(hp)
			}
		}
	}
	for _, flavor := range []string{"indexed", "keyed"} {
		if sub := s.importSubscript(d, subscripts[flavor]); sub != nil {
			d.AddMember(sub)
		}
	}
}

func collectSubscript(subs map[string]*subscriptPair, m *foreign.Decl) {
	switch m.Selector.String() {
	case "objectAtIndexedSubscript:":
		subs["indexed"].getter = m
	case "setObject:atIndexedSubscript:":
		subs["indexed"].setter = m
	case "objectForKeyedSubscript:":
		subs["keyed"].getter = m
	case "setObject:forKeyedSubscript:":
		subs["keyed"].setter = m
	}
}

// importSubscript pairs a subscript getter with its optional setter. A
// setter without a getter does not form a subscript.
func (s *Session) importSubscript(d *hostast.Decl, p *subscriptPair) *hostast.Decl {
	if p.getter == nil {
		return nil
	}
	name, _ := s.ImportFullName(p.getter, ImportNameOptions{})
	sig, err := s.importMethodType(p.getter, name, SpecialSubscriptGetter)
	if err != nil {
		s.skip(p.getter, err)
		return nil
	}
	sub := &hostast.Decl{
		Kind:     hostast.KindSubscript,
		Name:     names.CompoundName("subscript", ""),
		Module:   d.Module,
		Foreign:  p.getter,
		Params:   sig.Params,
		Type:     sig.Result,
		Implicit: true,
		Getter:   s.importDeclImpl(p.getter),
	}
	if p.setter != nil {
		sub.Setter = s.importDeclImpl(p.setter)
		sub.Settable = sub.Setter != nil
	}
	s.coord.Register(sub)
	return sub
}

// loadMirroredMembers copies required members of adopted protocols that
// the class does not declare anywhere in its hierarchy.
func (s *Session) loadMirroredMembers(d *hostast.Decl, cls *foreign.Decl) {
	seen := make(map[*foreign.Decl]bool)
	var visit func(p *foreign.Decl)
	visit = func(p *foreign.Decl) {
		if p == nil || seen[p] {
			return
		}
		seen[p] = true
		for _, req := range p.Members {
			if req.Optional {
				continue
			}
			switch req.Kind {
			case foreign.KindMethod:
				if s.HasObjCMethod(cls, req.Selector, req.Instance) {
					continue
				}
			case foreign.KindProperty:
				if hasProperty(s.foreign, cls, req.Name, req.Instance) {
					continue
				}
			default:
				continue
			}
			if m := s.ImportMirroredDecl(req, d, false); m != nil {
				d.AddMember(m)
			}
		}
		for _, inherited := range p.Protocols {
			visit(inherited)
		}
	}
	for _, p := range cls.Protocols {
		visit(p)
	}
}

// loadClassMethodVersions gives a root class the class-member twins of its
// instance methods, since class objects are instances of the root class.
func (s *Session) loadClassMethodVersions(d *hostast.Decl, cls *foreign.Decl) {
	for _, m := range cls.Members {
		if m.Kind != foreign.KindMethod || !m.Instance || m.IsInit() {
			continue
		}
		if cls.Method(m.Selector.String(), false) != nil {
			continue
		}
		if c := s.ImportClassMethodVersionOf(m); c != nil {
			d.AddMember(c)
		}
	}
}

// HasObjCMethod reports whether cls, its superclasses or their categories
// declare a method with sel. A query that re-enters itself for the same
// selector reports false.
func (s *Session) HasObjCMethod(cls *foreign.Decl, sel names.Selector, instance bool) bool {
	return s.coord.WithSelectorGuard(sel, instance, func() bool {
		key := sel.String()
		for c := cls; c != nil; c = c.Super {
			if c.Method(key, instance) != nil {
				return true
			}
			for _, cat := range s.foreign.Categories(c) {
				if cat.Method(key, instance) != nil {
					return true
				}
			}
		}
		return false
	})
}

func hasProperty(p foreign.Provider, cls *foreign.Decl, name string, instance bool) bool {
	for c := cls; c != nil; c = c.Super {
		if m := c.Member(foreign.KindProperty, name); m != nil && m.Instance == instance {
			return true
		}
		for _, cat := range p.Categories(c) {
			if m := cat.Member(foreign.KindProperty, name); m != nil && m.Instance == instance {
				return true
			}
		}
	}
	return false
}

// LoadAllConformances implements hostast.LazyMemberLoader. contextData is
// the delayed-conformance ticket; the conformances it holds are scheduled
// for completion once the outermost import returns.
func (s *Session) LoadAllConformances(d *hostast.Decl, contextData uint64) []*hostast.Conformance {
	if list, ok := s.loadedConformances[d]; ok {
		return list
	}
	scope := s.coord.Enter()
	defer scope.Exit()

	list := s.coord.TakeDelayedConformance(Ticket(contextData))
	s.loadedConformances[d] = list
	for _, c := range list {
		s.coord.ScheduleConformance(c)
	}
	return list
}

// completeConformance finds a witness for every requirement of the
// conformance's protocol. A missing non-optional requirement makes the
// conformance invalid.
func (s *Session) completeConformance(c *hostast.Conformance) {
	if c.State != hostast.ConformanceIncomplete {
		return
	}
	c.Witnesses = make(map[string]*hostast.Decl)
	fp := c.Protocol.Foreign
	if fp == nil {
		c.State = hostast.ConformanceComplete
		return
	}
	for _, req := range fp.Members {
		var key string
		switch req.Kind {
		case foreign.KindMethod:
			key = req.Selector.String()
		case foreign.KindProperty:
			key = req.Name
		default:
			continue
		}
		if !req.Instance {
			key = "+" + key
		}
		if w := s.findWitness(c.Type, req); w != nil {
			c.Witnesses[key] = w
			continue
		}
		if !req.Optional {
			c.Missing = append(c.Missing, key)
		}
	}
	if len(c.Missing) > 0 {
		c.State = hostast.ConformanceInvalid
		return
	}
	c.State = hostast.ConformanceComplete
}

func (s *Session) findWitness(t *hostast.Decl, req *foreign.Decl) *hostast.Decl {
	for cur := t; cur != nil; {
		candidates := append([]*hostast.Decl(nil), cur.Members()...)
		if cur.Kind == hostast.KindClass {
			for _, ext := range s.ClassExtensions(cur) {
				candidates = append(candidates, ext.Members()...)
			}
		}
		for _, m := range candidates {
			if witnesses(m, req) {
				return m
			}
		}
		switch cur.Kind {
		case hostast.KindClass:
			cur = cur.Superclass
		case hostast.KindExtension:
			if cur.Type == nil {
				return nil
			}
			cur = cur.Type.Decl
		default:
			return nil
		}
	}
	return nil
}

func witnesses(m *hostast.Decl, req *foreign.Decl) bool {
	f := m.Foreign
	if f == nil || f.Kind != req.Kind || f.Instance != req.Instance || m.IsStatic == req.Instance {
		return false
	}
	if req.Kind == foreign.KindMethod {
		return f.Selector.Equal(req.Selector)
	}
	return f.Name == req.Name
}
