package hostast

import (
	"strings"
)

// OptionalKind is the optionality wrapped around an imported type.
type OptionalKind int

const (
	OptionalNone OptionalKind = iota
	Optional
	ImplicitlyUnwrapped
)

func (k OptionalKind) String() string {
	switch k {
	case Optional:
		return "optional"
	case ImplicitlyUnwrapped:
		return "implicitly-unwrapped"
	default:
		return "none"
	}
}

// TypeKind identifies the shape of a host type.
type TypeKind int

const (
	// TypeNamed is a standard-library or builtin type referenced by name.
	TypeNamed TypeKind = iota
	// TypeNominal refers to an imported declaration.
	TypeNominal
	// TypeGeneric is a named generic applied to Args.
	TypeGeneric
	TypeOptional
	TypeFunction
	TypeTuple
	TypeComposition
	TypeDynamicSelf
)

// Type is a host type.
type Type struct {
	Kind TypeKind
	Name string
	Decl *Decl
	Args []*Type
	// Result and Convention describe function types; Args holds the
	// parameter types.
	Result     *Type
	Convention string
	Throws     bool
	Optional   OptionalKind
}

// Named returns a standard-library type by name ("Int", "Bool").
func Named(name string) *Type { return &Type{Kind: TypeNamed, Name: name} }

// NominalType refers to an imported declaration.
func NominalType(d *Decl) *Type { return &Type{Kind: TypeNominal, Decl: d} }

// Generic applies a generic standard-library type to arguments.
func Generic(name string, args ...*Type) *Type {
	return &Type{Kind: TypeGeneric, Name: name, Args: args}
}

// OptionalOf wraps t. OptionalNone returns t unchanged, and an already
// optional type is never wrapped twice.
func OptionalOf(t *Type, kind OptionalKind) *Type {
	if kind == OptionalNone || t == nil || t.Kind == TypeOptional {
		return t
	}
	return &Type{Kind: TypeOptional, Args: []*Type{t}, Optional: kind}
}

// Unwrapped strips one level of optionality.
func (t *Type) Unwrapped() *Type {
	if t != nil && t.Kind == TypeOptional {
		return t.Args[0]
	}
	return t
}

// Void is the empty tuple.
func Void() *Type { return &Type{Kind: TypeTuple} }

// Never is the uninhabited result of non-returning functions.
func Never() *Type { return Named("Never") }

// Tuple builds a tuple type.
func Tuple(elems ...*Type) *Type { return &Type{Kind: TypeTuple, Args: elems} }

// FunctionOf builds a function type with the given calling convention
// ("" for a native closure, "c" or "block").
func FunctionOf(params []*Type, result *Type, convention string) *Type {
	return &Type{Kind: TypeFunction, Args: params, Result: result, Convention: convention}
}

// Composition builds a protocol composition.
func Composition(elems ...*Type) *Type {
	return &Type{Kind: TypeComposition, Args: elems}
}

// DynamicSelf is the Self type of a class member.
func DynamicSelf() *Type { return &Type{Kind: TypeDynamicSelf} }

// IsVoid reports whether t is the empty tuple.
func (t *Type) IsVoid() bool {
	return t != nil && t.Kind == TypeTuple && len(t.Args) == 0
}

// IsNamed reports whether t is the named standard-library type.
func (t *Type) IsNamed(name string) bool {
	return t != nil && t.Kind == TypeNamed && t.Name == name
}

// IsOptional reports whether t is optional of any kind.
func (t *Type) IsOptional() bool {
	return t != nil && t.Kind == TypeOptional
}

// Equal compares two types structurally.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Name != o.Name || t.Decl != o.Decl ||
		t.Convention != o.Convention || t.Optional != o.Optional || t.Throws != o.Throws {
		return false
	}
	if len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return t.Result.Equal(o.Result)
}

func (t *Type) String() string {
	if t == nil {
		return "<error>"
	}
	switch t.Kind {
	case TypeNamed:
		return t.Name
	case TypeNominal:
		if t.Decl == nil {
			return "<error>"
		}
		return t.Decl.QualifiedName()
	case TypeGeneric:
		switch {
		case t.Name == "Array" && len(t.Args) == 1:
			return "[" + t.Args[0].String() + "]"
		case t.Name == "Dictionary" && len(t.Args) == 2:
			return "[" + t.Args[0].String() + ": " + t.Args[1].String() + "]"
		}
		return t.Name + "<" + joinTypes(t.Args, ", ") + ">"
	case TypeOptional:
		inner := t.Args[0].String()
		if k := t.Args[0].Kind; k == TypeFunction || k == TypeComposition {
			inner = "(" + inner + ")"
		}
		if t.Optional == ImplicitlyUnwrapped {
			return inner + "!"
		}
		return inner + "?"
	case TypeFunction:
		var sb strings.Builder
		if t.Convention != "" {
			sb.WriteString("@convention(" + t.Convention + ") ")
		}
		sb.WriteString("(" + joinTypes(t.Args, ", ") + ")")
		if t.Throws {
			sb.WriteString(" throws")
		}
		sb.WriteString(" -> ")
		sb.WriteString(t.Result.String())
		return sb.String()
	case TypeTuple:
		return "(" + joinTypes(t.Args, ", ") + ")"
	case TypeComposition:
		return joinTypes(t.Args, " & ")
	case TypeDynamicSelf:
		return "Self"
	}
	return "<error>"
}

func joinTypes(ts []*Type, sep string) string {
	parts := make([]string, len(ts))
	for i, a := range ts {
		parts[i] = a.String()
	}
	return strings.Join(parts, sep)
}
