package importer

import (
	"strings"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/enums"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/names"
)

// ImportedErrorInfo describes the error out-parameter of a throwing member.
type ImportedErrorInfo struct {
	Kind       hostast.ErrorKind
	IsOwned    bool
	ParamIndex int
	// ReplaceParamWithVoid keeps the parameter slot as a Void parameter
	// instead of dropping it.
	ReplaceParamWithVoid bool
}

// ImportedName is the host name chosen for a foreign declaration. The zero
// value means the declaration is not imported.
type ImportedName struct {
	Name names.DeclName
	// Alias is a second name also registered in lookup tables.
	Alias               names.DeclName
	HasCustomName       bool
	DroppedVariadic     bool
	IsSubscriptAccessor bool
	InitKind            hostast.InitKind
	// PrefixLength is the length of the initializer prefix stripped from the
	// first selector piece.
	PrefixLength int
	Error        *ImportedErrorInfo
}

// OK reports whether a name was produced.
func (n ImportedName) OK() bool { return !n.Name.IsEmpty() }

// IsInit reports whether the declaration imports as an initializer.
func (n ImportedName) IsInit() bool { return n.InitKind != hostast.InitNone }

// ImportNameOptions adjusts name import.
type ImportNameOptions struct {
	// SuppressFactoryMethodAsInit keeps class factory methods as class
	// methods.
	SuppressFactoryMethodAsInit bool
}

var droppableVariadics = map[string]bool{
	"arrayWithObjects:":             true,
	"dictionaryWithObjectsAndKeys:": true,
	"setWithObjects:":               true,
	"initWithObjects:":              true,
	"initWithObjectsAndKeys:":       true,
}

var subscriptSelectors = map[string]bool{
	"objectAtIndexedSubscript:":     true,
	"setObject:atIndexedSubscript:": true,
	"objectForKeyedSubscript:":      true,
	"setObject:forKeyedSubscript:":  true,
}

// ImportFullName returns the host name for d and the foreign declaration
// that acts as its effective context: the enum for hoisted enumerators, the
// class for category members, nil for top-level declarations.
func (s *Session) ImportFullName(d *foreign.Decl, opts ImportNameOptions) (ImportedName, *foreign.Decl) {
	if d == nil {
		return ImportedName{}, nil
	}
	key := nameKey{d, opts}
	if r, ok := s.nameCache[key]; ok {
		return r.name, r.ctx
	}
	n := s.importFullName(d, opts)
	if n.OK() {
		n.Name = s.interner.InternName(n.Name)
		if !n.Alias.IsEmpty() {
			n.Alias = s.interner.InternName(n.Alias)
		}
	}
	ctx := s.effectiveContext(d)
	s.nameCache[key] = importedNameResult{n, ctx}
	return n, ctx
}

func (s *Session) effectiveContext(d *foreign.Decl) *foreign.Decl {
	switch d.Kind {
	case foreign.KindEnumConstant:
		switch s.enums.Classify(d.Parent) {
		case enums.CasesEnum, enums.OptionsSet:
			return d.Parent
		}
		return nil
	case foreign.KindMethod, foreign.KindProperty:
		return d.Container()
	case foreign.KindField:
		return d.Parent
	}
	return nil
}

func (s *Session) importFullName(d *foreign.Decl, opts ImportNameOptions) ImportedName {
	var errInfo *ImportedErrorInfo
	if d.Kind == foreign.KindMethod {
		errInfo = s.errorInfo(d)
	}

	if custom, ok := s.customName(d); ok {
		n := ImportedName{Name: custom, HasCustomName: true, Error: errInfo}
		if d.Kind == foreign.KindMethod && custom.Base == "init" {
			n.InitKind = s.initKind(d)
		}
		if d.Kind == foreign.KindMethod && d.Variadic {
			if !droppableVariadics[d.Selector.String()] {
				return ImportedName{}
			}
			n.DroppedVariadic = true
		}
		return n
	}

	switch d.Kind {
	case foreign.KindMethod:
		return s.importMethodName(d, opts, errInfo)
	case foreign.KindProperty, foreign.KindField, foreign.KindVar, foreign.KindMacro:
		if d.Name == "" {
			return ImportedName{}
		}
		return ImportedName{Name: names.SimpleName(d.Name)}
	case foreign.KindFunction:
		labels := make([]string, len(d.Params))
		return ImportedName{Name: names.DeclName{Base: d.Name, Labels: labels}}
	case foreign.KindEnumConstant:
		return s.importEnumeratorName(d)
	case foreign.KindEnum, foreign.KindRecord:
		name := enums.Name(d)
		if name == "" {
			return ImportedName{}
		}
		if stem := strings.TrimLeft(name, "_"); stem != name && stem != "" {
			if td := s.foreign.LookupTypedef(stem); td != nil && s.renames(td, d) {
				name = stem
			}
		}
		return ImportedName{Name: names.SimpleName(name)}
	case foreign.KindTypedef:
		if _, ok := s.cfRecord(d); ok {
			return ImportedName{
				Name:  names.SimpleName(strings.TrimSuffix(d.Name, "Ref")),
				Alias: names.SimpleName(d.Name),
			}
		}
		return ImportedName{Name: names.SimpleName(d.Name)}
	case foreign.KindClass:
		return ImportedName{Name: names.SimpleName(d.Name)}
	case foreign.KindProtocol:
		name := d.Name
		if cls := s.foreign.LookupClass(name); cls != nil && s.foreign.Definition(cls) != nil {
			name += "Protocol"
		}
		return ImportedName{Name: names.SimpleName(name)}
	case foreign.KindCategory:
		if d.Extended == nil {
			return ImportedName{}
		}
		return ImportedName{Name: names.SimpleName(d.Extended.Name)}
	}
	return ImportedName{}
}

// renames reports whether td reaches tag through superfluous typedefs only.
func (s *Session) renames(td, tag *foreign.Decl) bool {
	for cur := td; cur != nil; cur = s.superfluousTarget(cur) {
		if cur == tag {
			return true
		}
		if cur.Kind != foreign.KindTypedef {
			return false
		}
	}
	return false
}

// customName returns an explicit rename from the declaration's attribute or
// its API notes entry.
func (s *Session) customName(d *foreign.Decl) (names.DeclName, bool) {
	spelled := d.Attrs.SwiftName
	if c := s.noteCommon(d); c != nil && c.SwiftName != "" {
		spelled = c.SwiftName
	}
	if spelled == "" {
		return names.DeclName{}, false
	}
	n, ok := names.ParseDeclName(spelled)
	if !ok {
		return names.DeclName{}, false
	}
	if d.Kind == foreign.KindMethod && !n.IsSimple() {
		args := d.Selector.NumArgs()
		if errInfo := s.errorInfo(d); errInfo != nil && !errInfo.ReplaceParamWithVoid {
			args--
		}
		if len(n.Labels) != args {
			return names.DeclName{}, false
		}
	}
	return n, true
}

func (s *Session) importEnumeratorName(d *foreign.Decl) ImportedName {
	enum := d.Parent
	if enum == nil {
		return ImportedName{Name: names.SimpleName(d.Name)}
	}
	switch s.enums.Classify(enum) {
	case enums.CasesEnum, enums.OptionsSet:
		stripped := s.enums.StripPrefix(d)
		if s.opts.OmitNeedlessWords {
			stripped = names.LowerFirstWord(stripped)
		}
		return ImportedName{Name: names.SimpleName(stripped)}
	}
	return ImportedName{Name: names.SimpleName(d.Name)}
}

func (s *Session) importMethodName(d *foreign.Decl, opts ImportNameOptions, errInfo *ImportedErrorInfo) ImportedName {
	sel := d.Selector
	if sel.IsNull() {
		return ImportedName{}
	}
	out := ImportedName{Error: errInfo}
	if d.Variadic {
		if !droppableVariadics[sel.String()] {
			return ImportedName{}
		}
		out.DroppedVariadic = true
	}
	if d.Instance && subscriptSelectors[sel.String()] {
		out.IsSubscriptAccessor = true
	}

	if n, prefix, ok := s.initName(d, opts); ok {
		out.Name = s.dropErrorLabel(n, errInfo)
		out.InitKind = s.initKindFor(d)
		out.PrefixLength = prefix
		return out
	}

	n := names.ImportSelector(sel)
	n = s.dropErrorLabel(n, errInfo)
	if s.opts.OmitNeedlessWords && !n.IsSimple() {
		n = s.omitNeedlessWords(d, n, errInfo)
	}
	out.Name = n
	return out
}

// initName recognizes init-family instance methods and class factory
// methods that restate their class name.
func (s *Session) initName(d *foreign.Decl, opts ImportNameOptions) (names.DeclName, int, bool) {
	sel := d.Selector
	first := sel.Piece(0)
	if d.IsInit() {
		rest := first[len("init"):]
		if sel.NumArgs() == 0 {
			if rest != "" {
				return names.DeclName{}, 0, false
			}
			return names.SimpleName("init"), len("init"), true
		}
		prefix := len("init")
		if strings.HasPrefix(rest, "With") && names.IsWordBoundary(rest, len("With")) {
			rest = rest[len("With"):]
			prefix += len("With")
		}
		labels := make([]string, sel.NumArgs())
		labels[0] = names.LowerFirstWord(rest)
		for i := 1; i < sel.NumArgs(); i++ {
			labels[i] = sel.Piece(i)
		}
		return names.DeclName{Base: "init", Labels: labels}, prefix, true
	}

	if d.Instance || opts.SuppressFactoryMethodAsInit || sel.NumArgs() == 0 {
		return names.DeclName{}, 0, false
	}
	class := d.Container()
	if class == nil || class.Kind != foreign.KindClass || !s.returnsClassInstance(d, class) {
		return names.DeclName{}, 0, false
	}
	forced := false
	if note := s.methodNote(d); note != nil {
		switch note.FactoryAsInit {
		case "C":
			return names.DeclName{}, 0, false
		case "A":
			forced = true
		}
	}
	prefix, ok := factoryPrefix(first, class.Name)
	if !ok {
		if !forced {
			return names.DeclName{}, 0, false
		}
		if i := strings.Index(first, "With"); i >= 0 && names.IsWordBoundary(first, i) {
			prefix = i + len("With")
		} else {
			prefix = len(first)
		}
	}
	labels := make([]string, sel.NumArgs())
	labels[0] = names.LowerFirstWord(first[prefix:])
	for i := 1; i < sel.NumArgs(); i++ {
		labels[i] = sel.Piece(i)
	}
	return names.DeclName{Base: "init", Labels: labels}, prefix, true
}

// factoryPrefix matches "<classWord>With" at the start of a selector piece,
// where classWord is the class name without its framework prefix, or its
// last word, lowercased.
func factoryPrefix(piece, class string) (int, bool) {
	candidates := []string{names.LowerFirstWord(names.StripTypePrefix(class))}
	if words := names.SplitWords(class); len(words) > 1 {
		candidates = append(candidates, strings.ToLower(words[len(words)-1]))
	}
	for _, c := range candidates {
		if c == "" || !strings.HasPrefix(piece, c+"With") {
			continue
		}
		end := len(c) + len("With")
		if names.IsWordBoundary(piece, end) {
			return end, true
		}
	}
	return 0, false
}

func (s *Session) returnsClassInstance(d *foreign.Decl, class *foreign.Decl) bool {
	r := d.Result.Desugar()
	if r == nil {
		return false
	}
	switch r.Kind {
	case foreign.TypeInstanceType:
		return true
	case foreign.TypeObjCPointer:
		return r.Decl == class
	}
	return false
}

// initKindFor classifies an initializer recognized by initName. Factory
// methods become factory initializers; init-family methods go through the
// designated initializer policy.
func (s *Session) initKindFor(d *foreign.Decl) hostast.InitKind {
	if !d.Instance {
		if r := d.Result.Desugar(); r != nil && r.Kind == foreign.TypeInstanceType {
			return hostast.InitConvenienceFactory
		}
		return hostast.InitFactory
	}
	return s.initKind(d)
}

// initKind: an init marked designated is designated; when the class marks
// no initializer as designated every init is designated; otherwise inits
// are convenience.
func (s *Session) initKind(d *foreign.Decl) hostast.InitKind {
	if !d.Instance {
		return s.initKindFor(d)
	}
	if s.isDesignated(d) {
		return hostast.InitDesignated
	}
	class := d.Container()
	if class == nil || class.Kind != foreign.KindClass {
		return hostast.InitDesignated
	}
	for _, m := range s.classInits(class) {
		if s.isDesignated(m) {
			return hostast.InitConvenience
		}
	}
	return hostast.InitDesignated
}

func (s *Session) classInits(class *foreign.Decl) []*foreign.Decl {
	var out []*foreign.Decl
	collect := func(c *foreign.Decl) {
		for _, m := range c.Members {
			if m.IsInit() {
				out = append(out, m)
			}
		}
	}
	collect(class)
	for _, cat := range s.foreign.Categories(class) {
		collect(cat)
	}
	return out
}

func (s *Session) isDesignated(d *foreign.Decl) bool {
	if d.Attrs.DesignatedInit {
		return true
	}
	if note := s.methodNote(d); note != nil && note.DesignatedInit {
		return true
	}
	return false
}

// errorInfo finds the NSError** out-parameter of a method, preferring the
// API notes override. Members whose result cannot signal failure get no
// convention.
func (s *Session) errorInfo(d *foreign.Decl) *ImportedErrorInfo {
	idx := -1
	if note := s.methodNote(d); note != nil && note.ErrorParam != nil {
		idx = *note.ErrorParam
		if idx < 0 || idx >= len(d.Params) {
			return nil
		}
	} else {
		for i := len(d.Params) - 1; i >= 0; i-- {
			if isErrorOutParam(d.Params[i].Type) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil
	}
	info := &ImportedErrorInfo{
		ParamIndex:           idx,
		IsOwned:              d.Params[idx].Attrs.Consumed,
		ReplaceParamWithVoid: idx != len(d.Params)-1,
	}
	r := d.Result.Desugar()
	switch {
	case r == nil || r.Kind == foreign.TypeVoid:
		info.Kind = hostast.ErrorNonNilError
	case isBoolType(d.Result):
		info.Kind = hostast.ErrorZeroResult
	case r.IsPointerLike() && d.Result.Nullability != foreign.NullNonNull:
		info.Kind = hostast.ErrorNilResult
	default:
		return nil
	}
	return info
}

func isErrorOutParam(t *foreign.Type) bool {
	p := t.Desugar()
	if p == nil || p.Kind != foreign.TypePointer {
		return false
	}
	return p.Pointee.IsClass("NSError")
}

func isBoolType(t *foreign.Type) bool {
	for t != nil {
		switch t.Kind {
		case foreign.TypeTypedef:
			if t.Decl != nil && (t.Decl.Name == "BOOL" || t.Decl.Name == "Boolean") {
				return true
			}
			if t.Decl == nil {
				return false
			}
			t = t.Decl.Type
		case foreign.TypeBuiltin:
			return t.Name == "bool" || t.Name == "_Bool"
		default:
			return false
		}
	}
	return false
}

// dropErrorLabel removes the error parameter's label. When the error
// parameter was the only argument, an "AndReturnError" or "WithError"
// suffix on the base name goes with it.
func (s *Session) dropErrorLabel(n names.DeclName, info *ImportedErrorInfo) names.DeclName {
	if info == nil || info.ReplaceParamWithVoid || info.ParamIndex >= len(n.Labels) {
		return n
	}
	labels := make([]string, 0, len(n.Labels)-1)
	labels = append(labels, n.Labels[:info.ParamIndex]...)
	labels = append(labels, n.Labels[info.ParamIndex+1:]...)
	base := n.Base
	if len(labels) == 0 && base != "init" {
		for _, suffix := range []string{"AndReturnError", "WithError", "Error"} {
			if trimmed := strings.TrimSuffix(base, suffix); trimmed != base && trimmed != "" && names.IsWordBoundary(base, len(trimmed)) {
				base = trimmed
				break
			}
		}
	}
	return names.DeclName{Base: base, Labels: labels}
}

func (s *Session) omitNeedlessWords(d *foreign.Decl, n names.DeclName, info *ImportedErrorInfo) names.DeclName {
	var params []*foreign.Decl
	for i, p := range d.Params {
		if info != nil && !info.ReplaceParamWithVoid && i == info.ParamIndex {
			continue
		}
		params = append(params, p)
	}
	if len(params) != len(n.Labels) {
		return n
	}
	in := make([]names.OmissionParam, len(params))
	for i, p := range params {
		in[i] = names.OmissionParam{Label: n.Labels[i], TypeName: omissionTypeName(p.Type)}
	}
	res := names.OmitNeedlessWords(n.Base, in)
	if !res.Changed {
		return n
	}
	return names.DeclName{Base: res.Base, Labels: res.Labels}
}

// omissionTypeName is the type name words of an argument are compared
// with.
func omissionTypeName(t *foreign.Type) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case foreign.TypeTypedef, foreign.TypeEnum, foreign.TypeRecord:
		if t.Decl == nil {
			return ""
		}
		if t.Kind == foreign.TypeTypedef && (t.Decl.Name == "BOOL" || t.Decl.Name == "Boolean") {
			return "Bool"
		}
		return names.StripTypePrefix(enums.Name(t.Decl))
	case foreign.TypeObjCPointer:
		if t.Decl == nil {
			if len(t.Protocols) == 1 {
				return names.StripTypePrefix(t.Protocols[0].Name)
			}
			return ""
		}
		return names.StripTypePrefix(t.Decl.Name)
	case foreign.TypeObjCSel:
		return "Selector"
	case foreign.TypeBuiltin:
		switch t.Name {
		case "int", "long", "long long", "short":
			return "Int"
		case "float":
			return "Float"
		case "double":
			return "Double"
		case "bool", "_Bool":
			return "Bool"
		}
	}
	return ""
}

// noteCommon returns the shared API notes fields for d.
func (s *Session) noteCommon(d *foreign.Decl) *apinotes.Common {
	mod := s.notesModule(d)
	if mod == "" {
		return nil
	}
	switch d.Kind {
	case foreign.KindClass:
		if c := s.notes.Class(mod, d.Name); c != nil {
			return &c.Common
		}
	case foreign.KindProtocol:
		if c := s.notes.Protocol(mod, d.Name); c != nil {
			return &c.Common
		}
	case foreign.KindFunction:
		if f := s.notes.Function(mod, d.Name); f != nil {
			return &f.Common
		}
	case foreign.KindVar:
		if g := s.notes.Global(mod, d.Name); g != nil {
			return &g.Common
		}
	case foreign.KindEnumConstant:
		return s.notes.Enumerator(mod, d.Name)
	case foreign.KindEnum, foreign.KindRecord:
		if t := s.notes.Tag(mod, enums.Name(d)); t != nil {
			return &t.Common
		}
	case foreign.KindTypedef:
		return s.notes.Typedef(mod, d.Name)
	case foreign.KindMethod:
		if m := s.methodNote(d); m != nil {
			return &m.Common
		}
	case foreign.KindProperty:
		if p := s.propertyNote(d); p != nil {
			return &p.Common
		}
	}
	return nil
}

func (s *Session) methodNote(d *foreign.Decl) *apinotes.Method {
	c := d.Container()
	if c == nil {
		return nil
	}
	mod := s.notesModule(d)
	if c.Kind == foreign.KindProtocol {
		return s.notes.Method(mod, c.Name, d.Selector.String(), d.Instance)
	}
	if m := s.notes.Method(mod, c.Name, d.Selector.String(), d.Instance); m != nil {
		return m
	}
	// Notes for a class usually live with the class's own module.
	if cm := s.notesModule(c); cm != mod {
		return s.notes.Method(cm, c.Name, d.Selector.String(), d.Instance)
	}
	return nil
}

func (s *Session) propertyNote(d *foreign.Decl) *apinotes.Property {
	c := d.Container()
	if c == nil {
		return nil
	}
	if p := s.notes.Property(s.notesModule(d), c.Name, d.Name, d.Instance); p != nil {
		return p
	}
	return s.notes.Property(s.notesModule(c), c.Name, d.Name, d.Instance)
}

// cfRecord recognizes a CF-style "…Ref" typedef of a pointer to a record
// and returns that record.
func (s *Session) cfRecord(d *foreign.Decl) (*foreign.Decl, bool) {
	if d.Kind != foreign.KindTypedef || !strings.HasSuffix(d.Name, "Ref") || len(d.Name) == len("Ref") || d.Type == nil {
		return nil, false
	}
	t := d.Type
	if t.Kind != foreign.TypePointer || t.Pointee == nil {
		return nil, false
	}
	p := t.Pointee
	if p.Kind == foreign.TypeTypedef {
		p = p.Desugar()
	}
	if p.Kind != foreign.TypeRecord || p.Decl == nil {
		return nil, false
	}
	rec := p.Decl
	stem := strings.TrimSuffix(d.Name, "Ref")
	if rec.Attrs.ObjCBridge != "" || rec.Name == "__"+stem || rec.Name == "_"+stem {
		return rec, true
	}
	return nil, false
}
