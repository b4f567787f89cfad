package importer

import (
	"strconv"
	"strings"

	"github.com/biyu6/swift/internal/enums"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/names"
)

// ImportDecl returns the host declaration for d, or nil when d is not
// imported. Superfluous typedefs resolve to the declaration they name.
// Repeated calls return the same declaration.
func (s *Session) ImportDecl(d *foreign.Decl) *hostast.Decl {
	if d == nil {
		return nil
	}
	scope := s.coord.Enter()
	defer scope.Exit()
	return s.importTransparent(d)
}

// ImportDeclReal is ImportDecl without typedef transparency: a superfluous
// typedef yields its own implicit alias declaration.
func (s *Session) ImportDeclReal(d *foreign.Decl) *hostast.Decl {
	if d == nil {
		return nil
	}
	scope := s.coord.Enter()
	defer scope.Exit()
	return s.importDeclImpl(d)
}

func (s *Session) importTransparent(d *foreign.Decl) *hostast.Decl {
	for d.Kind == foreign.KindTypedef {
		target := s.superfluousTarget(d)
		if target == nil {
			break
		}
		if target.Kind != foreign.KindTypedef && s.importDeclImpl(target) == nil {
			break
		}
		d = target
	}
	return s.importDeclImpl(d)
}

// superfluousTarget returns the declaration a typedef only renames: an
// anonymous tag, or a tag or typedef spelled the same up to leading
// underscores.
func (s *Session) superfluousTarget(td *foreign.Decl) *foreign.Decl {
	t := td.Type
	if t == nil || t.Decl == nil {
		return nil
	}
	switch t.Kind {
	case foreign.TypeEnum, foreign.TypeRecord, foreign.TypeTypedef:
	default:
		return nil
	}
	if _, ok := mappedTypedefs[td.Name]; ok {
		return nil
	}
	target := t.Decl
	switch {
	case target.Anonymous && t.Kind != foreign.TypeTypedef:
		return target
	case target.Name == td.Name, target.Name == "_"+td.Name, target.Name == "__"+td.Name:
		return target
	}
	return nil
}

// importDeclImpl is the identity map. A declaration in progress yields its
// shell so that cycles terminate.
func (s *Session) importDeclImpl(d *foreign.Decl) *hostast.Decl {
	if d == nil {
		return nil
	}
	if e, ok := s.imported[d]; ok {
		return e.decl
	}
	if d.Forward && s.foreign.Definition(d) == nil && !s.opts.ImportForwardDeclarations {
		// Not cached: a module loaded later may complete it.
		return nil
	}

	scope := s.coord.Enter()
	defer scope.Exit()

	e := &cacheEntry{state: stateInProgress}
	s.imported[d] = e
	hd, err := s.materialize(d, e)
	if err != nil {
		s.skip(d, err)
		switch {
		case e.decl != nil:
			// Others may already refer to the shell; it stays and turns
			// into the stub.
			hd = e.decl
			hd.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: "*", Message: err.Error()})
		case s.opts.CreateUnavailableStubs:
			if name, _ := s.ImportFullName(d, ImportNameOptions{}); name.OK() {
				hd = s.CreateUnavailableDecl(d, name.Name, err.Error())
			}
		}
	}
	e.state = stateComplete
	e.decl = hd
	if hd != nil && hd.Foreign == d {
		s.importAttributes(d, hd)
		s.coord.Register(hd)
	}
	return hd
}

func (s *Session) materialize(d *foreign.Decl, e *cacheEntry) (*hostast.Decl, error) {
	if d.Kind == foreign.KindRecord {
		if td := s.cfTypedefFor(d); td != nil {
			return s.importDeclImpl(td), nil
		}
	}
	name, _ := s.ImportFullName(d, ImportNameOptions{})
	if !name.OK() {
		return nil, nil
	}
	switch d.Kind {
	case foreign.KindClass:
		return s.importClass(d, name, e), nil
	case foreign.KindProtocol:
		return s.importProtocol(d, name, e), nil
	case foreign.KindCategory:
		return s.importCategory(d, name, e)
	case foreign.KindRecord:
		return s.importRecord(d, name, e), nil
	case foreign.KindEnum:
		return s.importEnum(d, name, e)
	case foreign.KindEnumConstant:
		return s.importEnumConstant(d, name)
	case foreign.KindTypedef:
		return s.importTypedef(d, name, e)
	case foreign.KindFunction:
		return s.importFunction(d, name)
	case foreign.KindVar:
		return s.importVar(d, name)
	case foreign.KindMacro:
		return s.importMacro(d, name)
	case foreign.KindMethod:
		return s.importMethod(d, name)
	case foreign.KindProperty:
		return s.importProperty(d, name)
	case foreign.KindField:
		return s.importField(d, name)
	}
	return nil, nil
}

func (s *Session) newDecl(kind hostast.DeclKind, d *foreign.Decl, name ImportedName) *hostast.Decl {
	return &hostast.Decl{Kind: kind, Name: name.Name, Module: s.moduleName(d), Foreign: d}
}

func (s *Session) importClass(d *foreign.Decl, name ImportedName, e *cacheEntry) *hostast.Decl {
	hd := s.newDecl(hostast.KindClass, d, name)
	e.decl = hd
	if d.Super != nil {
		hd.Superclass = s.importDeclImpl(d.Super)
	}
	s.importProtocols(hd, d.Protocols)
	hd.SetLazyMembers(s, s.lazyToken(d))
	return hd
}

// importProtocols records the adopted protocols of hd and parks the
// conformances under a ticket until the host asks for them.
func (s *Session) importProtocols(hd *hostast.Decl, protos []*foreign.Decl) {
	var confs []*hostast.Conformance
	for _, p := range protos {
		hp := s.importDeclImpl(p)
		if hp == nil {
			continue
		}
		hd.Inherited = append(hd.Inherited, hp)
		confs = append(confs, &hostast.Conformance{Type: hd, Protocol: hp, State: hostast.ConformanceIncomplete})
	}
	if len(confs) > 0 {
		t := s.coord.AllocateDelayedConformance(confs)
		hd.SetLazyConformances(s, uint64(t))
	}
}

func (s *Session) importProtocol(d *foreign.Decl, name ImportedName, e *cacheEntry) *hostast.Decl {
	hd := s.newDecl(hostast.KindProtocol, d, name)
	e.decl = hd
	for _, p := range d.Protocols {
		if hp := s.importDeclImpl(p); hp != nil {
			hd.Inherited = append(hd.Inherited, hp)
		}
	}
	hd.SetLazyMembers(s, s.lazyToken(d))
	return hd
}

func (s *Session) importCategory(d *foreign.Decl, name ImportedName, e *cacheEntry) (*hostast.Decl, error) {
	cls := s.importDeclImpl(d.Extended)
	if cls == nil {
		return nil, unrepresentable("category %s extends unknown class", d.Name)
	}
	hd := s.newDecl(hostast.KindExtension, d, name)
	hd.Type = hostast.NominalType(cls)
	e.decl = hd
	s.importProtocols(hd, d.Protocols)
	hd.SetLazyMembers(s, s.lazyToken(d))
	return hd, nil
}

func (s *Session) importRecord(d *foreign.Decl, name ImportedName, e *cacheEntry) *hostast.Decl {
	hd := s.newDecl(hostast.KindStruct, d, name)
	e.decl = hd
	hd.SetLazyMembers(s, s.lazyToken(d))
	return hd
}

func (s *Session) importEnum(d *foreign.Decl, name ImportedName, e *cacheEntry) (*hostast.Decl, error) {
	raw, err := s.enumRawType(d)
	if err != nil {
		return nil, err
	}
	var hd *hostast.Decl
	switch s.enums.Classify(d) {
	case enums.CasesEnum:
		hd = s.newDecl(hostast.KindEnum, d, name)
		hd.Type = raw
		e.decl = hd
		hd.SetLazyMembers(s, s.lazyToken(d))
	case enums.OptionsSet:
		hd = s.newDecl(hostast.KindStruct, d, name)
		hd.Type = raw
		hd.Inherited = []*hostast.Decl{s.stdlibProtocol("OptionSet")}
		e.decl = hd
		s.addRawValueMembers(hd, raw)
		hd.SetLazyMembers(s, s.lazyToken(d))
	case enums.OpaqueConstants:
		hd = s.newDecl(hostast.KindStruct, d, name)
		hd.Type = raw
		hd.Inherited = []*hostast.Decl{s.stdlibProtocol("RawRepresentable")}
		e.decl = hd
		s.addRawValueMembers(hd, raw)
	case enums.RawConstants:
		hd = s.newDecl(hostast.KindTypeAlias, d, name)
		hd.Type = raw
	}
	return hd, nil
}

// addRawValueMembers gives a struct-shaped enum its init(rawValue:) and
// rawValue property.
func (s *Session) addRawValueMembers(hd *hostast.Decl, raw *hostast.Type) {
	ctor := &hostast.Decl{
		Kind:     hostast.KindConstructor,
		Name:     names.CompoundName("init", "rawValue"),
		Params:   []*hostast.Param{{Label: "rawValue", Name: "rawValue", Type: raw}},
		InitKind: hostast.InitDesignated,
		Implicit: true,
	}
	rawValue := &hostast.Decl{
		Kind:     hostast.KindVar,
		Name:     names.SimpleName("rawValue"),
		Type:     raw,
		Settable: true,
		Implicit: true,
	}
	hd.AddMember(ctor)
	hd.AddMember(rawValue)
	s.coord.Register(ctor)
	s.coord.Register(rawValue)
}

func (s *Session) importEnumConstant(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	enum := d.Parent
	if enum == nil {
		return nil, unrepresentable("enumerator %s outside an enum", d.Name)
	}
	he := s.importDeclImpl(enum)
	value := strconv.FormatInt(d.Value, 10)
	switch s.enums.Classify(enum) {
	case enums.CasesEnum:
		if he == nil {
			return nil, nil
		}
		elem := s.newDecl(hostast.KindEnumElement, d, name)
		elem.Context = he
		elem.RawValue = value
		canon, fresh := s.constants.Record(enum, d.Value, elem)
		if fresh {
			return elem, nil
		}
		// A second name for an existing value becomes a static alias of the
		// first case.
		alias := s.newDecl(hostast.KindVar, d, name)
		alias.Context = he
		alias.IsStatic = true
		alias.Type = hostast.NominalType(he)
		alias.RawValue = canon.Name.Base
		alias.IsLet = true
		return alias, nil
	case enums.OptionsSet:
		if he == nil || d.Value == 0 {
			// The empty set is spelled [].
			return nil, nil
		}
		opt := s.newDecl(hostast.KindVar, d, name)
		opt.Context = he
		opt.IsStatic = true
		opt.IsLet = true
		opt.Type = hostast.NominalType(he)
		opt.RawValue = value
		return opt, nil
	}
	g := s.newDecl(hostast.KindVar, d, name)
	g.IsLet = true
	g.RawValue = value
	if he != nil {
		g.Type = hostast.NominalType(he)
		return g, nil
	}
	raw, err := s.enumRawType(enum)
	if err != nil {
		return nil, err
	}
	g.Type = raw
	return g, nil
}

func (s *Session) importTypedef(d *foreign.Decl, name ImportedName, e *cacheEntry) (*hostast.Decl, error) {
	if _, ok := s.cfRecord(d); ok {
		return s.importCFType(d, name, e), nil
	}
	alias := s.newDecl(hostast.KindTypeAlias, d, name)
	e.decl = alias
	if mapped, ok := mappedTypedefs[d.Name]; ok {
		alias.Type = hostast.Named(mapped)
		return alias, nil
	}
	if target := s.superfluousTarget(d); target != nil {
		if ht := s.importTransparent(target); ht != nil {
			alias.Type = hostast.NominalType(ht)
			alias.Implicit = true
			return alias, nil
		}
	}
	t, err := s.importType(d.Type, RoleTypedef, false, false, hostast.OptionalNone)
	if err != nil {
		return nil, err
	}
	alias.Type = t
	return alias, nil
}

// importCFType imports a "…Ref" typedef as a class named after its stem.
// The literal typedef name survives as an alternate alias declaration.
func (s *Session) importCFType(d *foreign.Decl, name ImportedName, e *cacheEntry) *hostast.Decl {
	cls := s.newDecl(hostast.KindClass, d, name)
	e.decl = cls
	alias := s.newDecl(hostast.KindTypeAlias, d, ImportedName{Name: name.Alias})
	alias.Type = hostast.NominalType(cls)
	s.alternates[cls] = alias
	s.coord.Register(alias)
	return cls
}

// AlternateDecl returns the second declaration produced alongside hd, such
// as the "…Ref" alias of a CF class.
func (s *Session) AlternateDecl(hd *hostast.Decl) *hostast.Decl {
	return s.alternates[hd]
}

func (s *Session) importFunction(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	sig, err := s.importFunctionType(d, name)
	if err != nil {
		return nil, err
	}
	fn := s.newDecl(hostast.KindFunc, d, name)
	fn.Params = sig.Params
	fn.Result = sig.Result
	return fn, nil
}

func (s *Session) importVar(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	role := RoleVariable
	if d.Attrs.CFAudited {
		role = RoleAuditedVariable
	}
	t := d.Type
	note := s.notes.Global(s.notesModule(d), d.Name)
	if note != nil {
		t = withNote(t, note.Nullability)
	}
	ht, err := s.importType(t, role, s.WidenedIntegerAllowed(d), true, hostast.ImplicitlyUnwrapped)
	if err != nil {
		return nil, err
	}
	v := s.newDecl(hostast.KindVar, d, name)
	v.Type = ht
	v.IsLet = d.Type.Const
	if note != nil && note.Mutable != nil {
		v.IsLet = !*note.Mutable
	}
	v.Settable = !v.IsLet
	return v, nil
}

// importMacro imports an object-like macro whose body is a single literal
// as a constant.
func (s *Session) importMacro(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	lit, t, ok := macroConstant(d.MacroValue)
	if !ok {
		return nil, nil
	}
	v := s.newDecl(hostast.KindVar, d, name)
	v.IsLet = true
	v.Type = t
	v.RawValue = lit
	return v, nil
}

func macroConstant(body string) (string, *hostast.Type, bool) {
	v := strings.TrimSpace(body)
	for len(v) > 2 && v[0] == '(' && v[len(v)-1] == ')' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	if v == "" {
		return "", nil, false
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v, hostast.Named("String"), true
	}
	if len(v) >= 3 && v[0] == '@' && v[1] == '"' && v[len(v)-1] == '"' {
		return v[1:], hostast.Named("String"), true
	}
	num := strings.TrimRight(v, "uUlL")
	if n, err := strconv.ParseInt(num, 0, 64); err == nil {
		if n < -1<<31 || n > 1<<31-1 {
			return strconv.FormatInt(n, 10), hostast.Named("Int"), true
		}
		return strconv.FormatInt(n, 10), hostast.Named("Int32"), true
	}
	num = strings.TrimRight(v, "fFlL")
	if _, err := strconv.ParseFloat(num, 64); err == nil {
		return num, hostast.Named("Double"), true
	}
	return "", nil, false
}

func (s *Session) importMethod(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	container := s.importDeclImpl(d.Parent)
	if container == nil {
		return nil, nil
	}
	if name.IsInit() {
		sig, err := s.importMethodType(d, name, SpecialConstructor)
		if err != nil {
			return nil, err
		}
		ctor := s.newDecl(hostast.KindConstructor, d, name)
		ctor.Context = container
		ctor.Params = sig.Params
		ctor.Failable = sig.Failable
		ctor.Throws = sig.Throws
		ctor.Error = sig.Error
		ctor.InitKind = name.InitKind
		ctor.Selector = d.Selector.String()
		ctor.Optional = d.Optional
		if note := s.methodNote(d); note != nil {
			ctor.Required = note.Required
		}
		return ctor, nil
	}
	kind := SpecialRegular
	if accessedProperty(d) != nil {
		kind = SpecialPropertyAccessor
	}
	sig, err := s.importMethodType(d, name, kind)
	if err != nil {
		return nil, err
	}
	fn := s.newDecl(hostast.KindFunc, d, name)
	fn.Context = container
	fn.Params = sig.Params
	fn.Result = sig.Result
	fn.Throws = sig.Throws
	fn.Error = sig.Error
	fn.IsStatic = !d.Instance
	fn.Optional = d.Optional
	fn.Selector = d.Selector.String()
	return fn, nil
}

func (s *Session) importProperty(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	container := s.importDeclImpl(d.Parent)
	if container == nil {
		return nil, nil
	}
	t := d.Type
	if note := s.propertyNote(d); note != nil {
		t = withNote(t, note.Nullability)
	}
	ht, err := s.importType(t, RoleProperty, s.WidenedIntegerAllowed(d), true, hostast.ImplicitlyUnwrapped)
	if err != nil {
		return nil, err
	}
	v := s.newDecl(hostast.KindVar, d, name)
	v.Context = container
	v.Type = ht
	v.Settable = !d.ReadOnly
	v.IsStatic = !d.Instance
	v.Optional = d.Optional
	if m := d.Parent.Method(getterSelector(d), d.Instance); m != nil {
		v.Getter = s.importDeclImpl(m)
	}
	if !d.ReadOnly {
		if m := d.Parent.Method(setterSelector(d), d.Instance); m != nil {
			v.Setter = s.importDeclImpl(m)
		}
	}
	return v, nil
}

// accessedProperty returns the property m is the getter or setter of.
func accessedProperty(m *foreign.Decl) *foreign.Decl {
	if m.Parent == nil {
		return nil
	}
	sel := m.Selector.String()
	for _, p := range m.Parent.Members {
		if p.Kind != foreign.KindProperty || p.Instance != m.Instance {
			continue
		}
		if sel == getterSelector(p) || (!p.ReadOnly && sel == setterSelector(p)) {
			return p
		}
	}
	return nil
}

func getterSelector(p *foreign.Decl) string {
	if p.Getter != "" {
		return p.Getter
	}
	return p.Name
}

func setterSelector(p *foreign.Decl) string {
	if p.Setter != "" {
		return p.Setter
	}
	return "set" + names.UpperFirst(p.Name) + ":"
}

func (s *Session) importField(d *foreign.Decl, name ImportedName) (*hostast.Decl, error) {
	rec := s.importDeclImpl(d.Parent)
	if rec == nil {
		return nil, nil
	}
	ht, err := s.importType(d.Type, RoleRecordField, false, false, hostast.ImplicitlyUnwrapped)
	if err != nil {
		return nil, err
	}
	f := s.newDecl(hostast.KindVar, d, name)
	f.Context = rec
	f.Type = ht
	f.Settable = true
	return f, nil
}

// CreateUnavailableDecl builds a stand-in for d that carries an unavailable
// attribute with msg, so uses of it are diagnosed at the use site.
func (s *Session) CreateUnavailableDecl(d *foreign.Decl, name names.DeclName, msg string) *hostast.Decl {
	kind := hostast.KindVar
	switch d.Kind {
	case foreign.KindClass:
		kind = hostast.KindClass
	case foreign.KindProtocol:
		kind = hostast.KindProtocol
	case foreign.KindRecord, foreign.KindEnum:
		kind = hostast.KindStruct
	case foreign.KindTypedef:
		kind = hostast.KindTypeAlias
	case foreign.KindFunction:
		kind = hostast.KindFunc
	case foreign.KindMethod:
		kind = hostast.KindFunc
		if d.IsInit() {
			kind = hostast.KindConstructor
		}
	}
	stub := &hostast.Decl{Kind: kind, Name: name, Module: s.moduleName(d), Foreign: d, Implicit: true}
	if kind == hostast.KindFunc {
		stub.Result = hostast.Void()
	}
	if d.Kind == foreign.KindMethod || d.Kind == foreign.KindProperty || d.Kind == foreign.KindField {
		stub.Context = s.importDeclImpl(d.Parent)
		stub.IsStatic = d.Kind != foreign.KindField && !d.Instance
	}
	stub.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: "*", Message: msg})
	return stub
}

// ClassExtensions returns the extensions of cls built from its categories.
// The list is rebuilt whenever the generation moved since it was computed.
func (s *Session) ClassExtensions(cls *hostast.Decl) []*hostast.Decl {
	if c, ok := s.extensions[cls]; ok && c.generation == s.generation {
		return c.decls
	}
	scope := s.coord.Enter()
	defer scope.Exit()

	var out []*hostast.Decl
	if fd := cls.Foreign; fd != nil && fd.Kind == foreign.KindClass {
		for _, cat := range s.foreign.Categories(fd) {
			if ext := s.importDeclImpl(cat); ext != nil {
				out = append(out, ext)
			}
		}
	}
	s.extensions[cls] = &cachedExtensions{decls: out, generation: s.generation}
	s.extensionRebuilds++
	return out
}

// ImportMirroredDecl copies the protocol member d into dc, the type that
// adopts the protocol. forceClassMethod turns the copy into a class member.
func (s *Session) ImportMirroredDecl(d *foreign.Decl, dc *hostast.Decl, forceClassMethod bool) *hostast.Decl {
	key := mirrorKey{decl: d, context: dc, forceClass: forceClassMethod}
	if m, ok := s.mirrored[key]; ok {
		return m
	}
	scope := s.coord.Enter()
	defer scope.Exit()

	orig := s.importDeclImpl(d)
	if orig == nil {
		s.mirrored[key] = nil
		return nil
	}
	m := orig.Clone()
	m.Context = dc
	m.Module = dc.Module
	m.Implicit = true
	m.Optional = false
	if forceClassMethod {
		m.IsStatic = true
	}
	s.mirrored[key] = m
	s.coord.Register(m)
	return m
}

// ImportClassMethodVersionOf returns the class-member twin of an instance
// method declared by a root class.
func (s *Session) ImportClassMethodVersionOf(method *foreign.Decl) *hostast.Decl {
	if method == nil || method.Kind != foreign.KindMethod || !method.Instance {
		return nil
	}
	if c := method.Container(); c == nil || c.Kind != foreign.KindClass || c.Super != nil {
		return nil
	}
	scope := s.coord.Enter()
	defer scope.Exit()

	orig := s.importDeclImpl(method)
	if orig == nil {
		return nil
	}
	if c, ok := s.classMethods[orig]; ok {
		return c
	}
	c := orig.Clone()
	c.IsStatic = true
	c.Implicit = true
	s.classMethods[orig] = c
	s.coord.Register(c)
	return c
}
