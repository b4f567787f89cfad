// Package hostast is the host-language AST the importer produces: nominal
// declarations, members, types and protocol conformances.
package hostast

import (
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/names"
)

// DeclKind identifies the kind of a host declaration.
type DeclKind int

const (
	KindStruct DeclKind = iota
	KindEnum
	KindEnumElement
	KindClass
	KindProtocol
	KindExtension
	KindFunc
	KindConstructor
	KindVar
	KindSubscript
	KindTypeAlias
)

var declKindNames = [...]string{
	KindStruct:      "struct",
	KindEnum:        "enum",
	KindEnumElement: "case",
	KindClass:       "class",
	KindProtocol:    "protocol",
	KindExtension:   "extension",
	KindFunc:        "func",
	KindConstructor: "init",
	KindVar:         "var",
	KindSubscript:   "subscript",
	KindTypeAlias:   "typealias",
}

func (k DeclKind) String() string {
	if int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return "unknown"
}

// IsNominal reports whether the kind introduces a nominal type.
func (k DeclKind) IsNominal() bool {
	switch k {
	case KindStruct, KindEnum, KindClass, KindProtocol:
		return true
	}
	return false
}

// InitKind classifies initializers.
type InitKind int

const (
	InitNone InitKind = iota
	InitDesignated
	InitConvenience
	InitFactory
	InitConvenienceFactory
)

func (k InitKind) String() string {
	switch k {
	case InitDesignated:
		return "designated"
	case InitConvenience:
		return "convenience"
	case InitFactory:
		return "factory"
	case InitConvenienceFactory:
		return "convenience-factory"
	default:
		return "none"
	}
}

// ErrorKind is the convention a foreign API uses to report errors.
type ErrorKind int

const (
	// ErrorZeroResult: a false or zero result signals failure.
	ErrorZeroResult ErrorKind = iota
	// ErrorNonZeroResult: a non-zero result signals failure.
	ErrorNonZeroResult
	// ErrorNilResult: a nil object result signals failure.
	ErrorNilResult
	// ErrorNonNilError: failure is signalled only through the error out
	// parameter.
	ErrorNonNilError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorZeroResult:
		return "zero-result"
	case ErrorNonZeroResult:
		return "non-zero-result"
	case ErrorNilResult:
		return "nil-result"
	default:
		return "non-nil-error"
	}
}

// ErrorConvention records how a throwing member maps onto its foreign
// error out-parameter.
type ErrorConvention struct {
	Kind                 ErrorKind
	ParamIndex           int
	IsOwned              bool
	ReplaceParamWithVoid bool
	// ForeignResult is the result type before the convention rewrote it.
	ForeignResult *Type
}

// Param is a function or initializer parameter.
type Param struct {
	Label string
	Name  string
	Type  *Type
	// Default is the spelled default argument, "" when none.
	Default string
}

// AttrKind identifies a declaration attribute.
type AttrKind int

const (
	AttrAvailable AttrKind = iota
	AttrDeprecated
	AttrUnavailable
	AttrObsoleted
)

// Attribute is an availability-style attribute.
type Attribute struct {
	Kind       AttrKind
	Platform   string
	Introduced string
	Version    string
	Message    string
	Renamed    string
}

// ConformanceState tracks whether witness checking has run.
type ConformanceState int

const (
	ConformanceIncomplete ConformanceState = iota
	ConformanceComplete
	ConformanceInvalid
)

// Conformance records that a nominal type conforms to a protocol.
type Conformance struct {
	Type      *Decl
	Protocol  *Decl
	State     ConformanceState
	Witnesses map[string]*Decl
	Missing   []string
}

// LazyMemberLoader fills in members and conformances of a declaration on
// first access. Implementations must be idempotent.
type LazyMemberLoader interface {
	LoadAllMembers(d *Decl, contextData uint64)
	LoadAllConformances(d *Decl, contextData uint64) []*Conformance
}

// Decl is a host declaration.
type Decl struct {
	Kind    DeclKind
	Name    names.DeclName
	Context *Decl
	Module  string
	// Foreign is the declaration this one was imported from.
	Foreign *foreign.Decl

	// Type is the type of a variable or subscript element, the underlying
	// type of an alias, and the raw type of an enum.
	Type   *Type
	Params []*Param
	Result *Type
	Throws bool
	Error  *ErrorConvention

	Failable OptionalKind
	InitKind InitKind
	Required bool
	IsStatic bool
	IsLet    bool
	Settable bool
	Optional bool
	Implicit bool

	Superclass *Decl
	Inherited  []*Decl
	RawValue   string
	Selector   string
	Getter     *Decl
	Setter     *Decl
	Attrs      []Attribute

	members       []*Decl
	memberLoader  LazyMemberLoader
	memberData    uint64
	membersLoaded bool

	conformances       []*Conformance
	conformanceLoader  LazyMemberLoader
	conformanceData    uint64
	conformancesLoaded bool
}

// QualifiedName is the dotted name of the declaration through its nominal
// contexts.
func (d *Decl) QualifiedName() string {
	if d.Context != nil && d.Context.Kind != KindExtension {
		return d.Context.QualifiedName() + "." + d.Name.Base
	}
	return d.Name.Base
}

// NominalContext returns the nominal type a member belongs to, looking
// through extensions.
func (d *Decl) NominalContext() *Decl {
	c := d.Context
	if c != nil && c.Kind == KindExtension && c.Type != nil {
		return c.Type.Decl
	}
	return c
}

// Clone returns a shallow copy of d without members, conformances or
// loaders.
func (d *Decl) Clone() *Decl {
	c := &Decl{
		Kind: d.Kind, Name: d.Name, Context: d.Context, Module: d.Module, Foreign: d.Foreign,
		Type: d.Type, Result: d.Result, Throws: d.Throws, Error: d.Error,
		Failable: d.Failable, InitKind: d.InitKind, Required: d.Required, IsStatic: d.IsStatic,
		IsLet: d.IsLet, Settable: d.Settable, Optional: d.Optional, Implicit: d.Implicit,
		Superclass: d.Superclass, RawValue: d.RawValue, Selector: d.Selector,
		Getter: d.Getter, Setter: d.Setter,
	}
	c.Params = append([]*Param(nil), d.Params...)
	c.Inherited = append([]*Decl(nil), d.Inherited...)
	c.Attrs = append([]Attribute(nil), d.Attrs...)
	return c
}

// AddMember appends m to the member list and makes d its context.
func (d *Decl) AddMember(m *Decl) {
	m.Context = d
	if m.Module == "" {
		m.Module = d.Module
	}
	d.members = append(d.members, m)
}

// SetLazyMembers installs a loader that runs on the first Members call.
func (d *Decl) SetLazyMembers(l LazyMemberLoader, contextData uint64) {
	d.memberLoader = l
	d.memberData = contextData
	d.membersLoaded = false
}

// SetLazyConformances installs a loader that runs on the first
// Conformances call.
func (d *Decl) SetLazyConformances(l LazyMemberLoader, contextData uint64) {
	d.conformanceLoader = l
	d.conformanceData = contextData
	d.conformancesLoaded = false
}

// HasLazyMembers reports whether members have not been loaded yet.
func (d *Decl) HasLazyMembers() bool {
	return d.memberLoader != nil && !d.membersLoaded
}

// Members returns all members, loading them first when needed. A re-entrant
// call made while loading sees the members added so far.
func (d *Decl) Members() []*Decl {
	if d.memberLoader != nil && !d.membersLoaded {
		d.membersLoaded = true
		d.memberLoader.LoadAllMembers(d, d.memberData)
	}
	return d.members
}

// LoadedMembers returns the members present without triggering a load.
func (d *Decl) LoadedMembers() []*Decl {
	return d.members
}

// Conformances returns the protocol conformances, loading them first when
// needed.
func (d *Decl) Conformances() []*Conformance {
	if d.conformanceLoader != nil && !d.conformancesLoaded {
		d.conformancesLoaded = true
		d.conformances = append(d.conformances, d.conformanceLoader.LoadAllConformances(d, d.conformanceData)...)
	}
	return d.conformances
}

// AddConformance records an eagerly known conformance.
func (d *Decl) AddConformance(c *Conformance) {
	d.conformances = append(d.conformances, c)
}

// AddAttr appends an attribute.
func (d *Decl) AddAttr(a Attribute) {
	d.Attrs = append(d.Attrs, a)
}

// IsUnavailable reports whether an unavailable attribute is attached.
func (d *Decl) IsUnavailable() bool {
	for _, a := range d.Attrs {
		if a.Kind == AttrUnavailable {
			return true
		}
	}
	return false
}

// UnavailableMessage returns the message of the first unavailable
// attribute.
func (d *Decl) UnavailableMessage() string {
	for _, a := range d.Attrs {
		if a.Kind == AttrUnavailable {
			return a.Message
		}
	}
	return ""
}

// LookupMember returns loaded or lazily loaded members with the given base
// name.
func (d *Decl) LookupMember(base string) []*Decl {
	var out []*Decl
	for _, m := range d.Members() {
		if m.Name.Base == base {
			out = append(out, m)
		}
	}
	return out
}
