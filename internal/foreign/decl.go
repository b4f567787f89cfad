// Package foreign models the C and Objective-C declarations a header frontend
// produces. Declarations are compared by pointer identity; the importer
// borrows them and never mutates them.
package foreign

import (
	"github.com/biyu6/swift/internal/names"
)

// DeclKind identifies the kind of a foreign declaration.
type DeclKind int

const (
	KindFunction DeclKind = iota
	KindMethod
	KindProperty
	KindClass
	KindProtocol
	KindCategory
	KindEnum
	KindEnumConstant
	KindRecord
	KindField
	KindTypedef
	KindVar
	KindMacro
	KindParam
)

var kindNames = [...]string{
	KindFunction:     "function",
	KindMethod:       "method",
	KindProperty:     "property",
	KindClass:        "class",
	KindProtocol:     "protocol",
	KindCategory:     "category",
	KindEnum:         "enum",
	KindEnumConstant: "enumerator",
	KindRecord:       "record",
	KindField:        "field",
	KindTypedef:      "typedef",
	KindVar:          "variable",
	KindMacro:        "macro",
	KindParam:        "parameter",
}

func (k DeclKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsTag reports whether declarations of this kind live in the tag namespace.
func (k DeclKind) IsTag() bool {
	return k == KindEnum || k == KindRecord
}

// IsContainer reports whether the kind holds Objective-C members.
func (k DeclKind) IsContainer() bool {
	return k == KindClass || k == KindProtocol || k == KindCategory
}

// Nullability of a pointer-like type.
type Nullability int

const (
	NullUnspecified Nullability = iota
	NullNonNull
	NullNullable
)

func (n Nullability) String() string {
	switch n {
	case NullNonNull:
		return "nonnull"
	case NullNullable:
		return "nullable"
	default:
		return "null_unspecified"
	}
}

// EnumExtensibility mirrors the enum_extensibility attribute.
type EnumExtensibility int

const (
	ExtensibilityNone EnumExtensibility = iota
	ExtensibilityOpen
	ExtensibilityClosed
)

// EnumMacro records which declaration macro introduced an enum.
type EnumMacro int

const (
	MacroNone EnumMacro = iota
	MacroNSEnum
	MacroNSClosedEnum
	MacroNSOptions
	MacroCFEnum
	MacroCFOptions
)

// Availability is one availability attribute.
type Availability struct {
	Platform    string
	Introduced  string
	Deprecated  string
	Obsoleted   string
	Unavailable bool
	Message     string
	Renamed     string
}

// Attrs carries the attributes the importer consults.
type Attrs struct {
	SwiftName          string
	Availability       []Availability
	FlagEnum           bool
	Extensibility      EnumExtensibility
	EnumMacro          EnumMacro
	DesignatedInit     bool
	ReturnsRetained    bool
	ReturnsNotRetained bool
	CFAudited          bool
	NoReturn           bool
	NonNullParams      []int
	Unavailable        bool
	UnavailableMsg     string
	ObjCBridge         string
	Consumed           bool
}

// Decl is a foreign declaration.
type Decl struct {
	Kind   DeclKind
	Name   string
	Module *Module
	// Parent is the semantic context: the container of a method or property,
	// the enum of an enumerator, the record of a field.
	Parent *Decl

	// Type is the declared type of variables, fields, parameters and
	// properties, the underlying type of a typedef, and the integer type of
	// an enum.
	Type *Type
	// Result is the result type of functions and methods.
	Result   *Type
	Params   []*Decl
	Variadic bool

	Selector names.Selector
	Instance bool
	Optional bool
	ReadOnly bool
	Getter   string
	Setter   string

	Members   []*Decl
	Super     *Decl
	Protocols []*Decl
	// Extended is the class a category extends.
	Extended *Decl

	Value      int64
	MacroValue string

	Forward   bool
	Anonymous bool
	Union     bool
	// TypedefName is the typedef that names an otherwise anonymous tag.
	TypedefName *Decl

	Attrs Attrs
	File  string
	Line  int
}

// IsInit reports whether a method belongs to the init family.
func (d *Decl) IsInit() bool {
	if d.Kind != KindMethod || !d.Instance {
		return false
	}
	return names.HasWordPrefix(d.Selector.Piece(0), "init")
}

// Container returns the class a member ultimately belongs to: the extended
// class for category members, the parent otherwise.
func (d *Decl) Container() *Decl {
	p := d.Parent
	if p != nil && p.Kind == KindCategory && p.Extended != nil {
		return p.Extended
	}
	return p
}

// Member returns the first member with the given name and kind.
func (d *Decl) Member(kind DeclKind, name string) *Decl {
	for _, m := range d.Members {
		if m.Kind == kind && m.Name == name {
			return m
		}
	}
	return nil
}

// Method returns the method with the given selector and instance-ness.
func (d *Decl) Method(sel string, instance bool) *Decl {
	for _, m := range d.Members {
		if m.Kind == KindMethod && m.Instance == instance && m.Selector.String() == sel {
			return m
		}
	}
	return nil
}

// NewParam builds a parameter declaration.
func NewParam(name string, t *Type) *Decl {
	return &Decl{Kind: KindParam, Name: name, Type: t}
}

// NewMethod builds an Objective-C method declaration. The name is the
// textual selector.
func NewMethod(selector string, instance bool, result *Type, params ...*Decl) *Decl {
	m := &Decl{
		Kind:     KindMethod,
		Name:     selector,
		Selector: names.ParseSelector(selector),
		Instance: instance,
		Result:   result,
		Params:   params,
	}
	for _, p := range params {
		p.Parent = m
	}
	return m
}

// NewFunction builds a C function declaration.
func NewFunction(name string, result *Type, params ...*Decl) *Decl {
	f := &Decl{Kind: KindFunction, Name: name, Result: result, Params: params}
	for _, p := range params {
		p.Parent = f
	}
	return f
}

// NewProperty builds an Objective-C property declaration.
func NewProperty(name string, t *Type, instance bool) *Decl {
	return &Decl{Kind: KindProperty, Name: name, Type: t, Instance: instance}
}

// Module is a unit of foreign declarations. The bridging-header unit is a
// module with Bridging set.
type Module struct {
	Name     string
	Dir      string
	Bridging bool
	Imports  []string
	Decls    []*Decl
	Macros   []*Decl
}
