package foreign

import (
	"fmt"
	"strings"
)

// TypeKind identifies the shape of a foreign type.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeBuiltin
	TypePointer
	// TypeObjCPointer is a pointer to an Objective-C object. Decl is the
	// class, or nil for id.
	TypeObjCPointer
	TypeObjCClass
	TypeObjCSel
	TypeInstanceType
	TypeTypedef
	TypeEnum
	TypeRecord
	TypeFunction
	TypeBlock
	TypeConstantArray
	TypeVariableArray
	TypeIncompleteArray
	TypeVector
)

// Type is a foreign type. Types are values built by frontends; the importer
// treats them as read-only.
type Type struct {
	Kind TypeKind
	// Name is the builtin spelling ("int", "unsigned long").
	Name string

	Pointee   *Type
	Decl      *Decl
	Protocols []*Decl
	TypeArgs  []*Type
	KindOf    bool

	Result      *Type
	Params      []*Type
	Variadic    bool
	CallingConv string

	Size        int
	Nullability Nullability
	Const       bool
}

// Void is the void type.
func Void() *Type { return &Type{Kind: TypeVoid, Name: "void"} }

// Builtin returns a builtin arithmetic type.
func Builtin(name string) *Type { return &Type{Kind: TypeBuiltin, Name: name} }

// PointerTo returns a C pointer to t.
func PointerTo(t *Type) *Type { return &Type{Kind: TypePointer, Pointee: t} }

// ObjCPointer returns a pointer to an instance of class (nil for id),
// optionally qualified by protocols.
func ObjCPointer(class *Decl, protocols ...*Decl) *Type {
	return &Type{Kind: TypeObjCPointer, Decl: class, Protocols: protocols}
}

// ObjCClassType is the Class type.
func ObjCClassType() *Type { return &Type{Kind: TypeObjCClass} }

// SelType is the SEL type.
func SelType() *Type { return &Type{Kind: TypeObjCSel} }

// InstanceType is instancetype.
func InstanceType() *Type { return &Type{Kind: TypeInstanceType} }

// TypedefType refers to a typedef declaration.
func TypedefType(d *Decl) *Type { return &Type{Kind: TypeTypedef, Decl: d} }

// TagType refers to an enum or record declaration.
func TagType(d *Decl) *Type {
	if d.Kind == KindEnum {
		return &Type{Kind: TypeEnum, Decl: d}
	}
	return &Type{Kind: TypeRecord, Decl: d}
}

// FunctionType builds a function prototype.
func FunctionType(result *Type, params ...*Type) *Type {
	return &Type{Kind: TypeFunction, Result: result, Params: params}
}

// BlockType builds a block pointer to the given function prototype.
func BlockType(fn *Type) *Type { return &Type{Kind: TypeBlock, Pointee: fn} }

// ConstantArray builds T[n].
func ConstantArray(elem *Type, n int) *Type {
	return &Type{Kind: TypeConstantArray, Pointee: elem, Size: n}
}

// VariableArray builds a variable-length array of elem.
func VariableArray(elem *Type) *Type {
	return &Type{Kind: TypeVariableArray, Pointee: elem}
}

// IncompleteArray builds T[].
func IncompleteArray(elem *Type) *Type {
	return &Type{Kind: TypeIncompleteArray, Pointee: elem}
}

// WithNullability returns a copy of t carrying the given nullability.
func (t *Type) WithNullability(n Nullability) *Type {
	c := *t
	c.Nullability = n
	return &c
}

// WithConst returns a const-qualified copy of t.
func (t *Type) WithConst() *Type {
	c := *t
	c.Const = true
	return &c
}

// IsPointerLike reports whether values of t can be null.
func (t *Type) IsPointerLike() bool {
	switch t.Kind {
	case TypePointer, TypeObjCPointer, TypeObjCClass, TypeObjCSel, TypeInstanceType, TypeBlock:
		return true
	case TypeTypedef:
		return t.Decl != nil && t.Decl.Type != nil && t.Decl.Type.IsPointerLike()
	}
	return false
}

// Desugar strips typedefs.
func (t *Type) Desugar() *Type {
	for t != nil && t.Kind == TypeTypedef && t.Decl != nil && t.Decl.Type != nil {
		t = t.Decl.Type
	}
	return t
}

// IsObjCObject reports whether t (after typedefs) is an object pointer.
func (t *Type) IsObjCObject() bool {
	d := t.Desugar()
	if d == nil {
		return false
	}
	switch d.Kind {
	case TypeObjCPointer, TypeObjCClass, TypeInstanceType:
		return true
	}
	return false
}

// IsClass reports whether t is a pointer to the named class.
func (t *Type) IsClass(name string) bool {
	d := t.Desugar()
	return d != nil && d.Kind == TypeObjCPointer && d.Decl != nil && d.Decl.Name == name
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	var s string
	switch t.Kind {
	case TypeVoid:
		s = "void"
	case TypeBuiltin:
		s = t.Name
	case TypePointer:
		s = t.Pointee.String() + " *"
	case TypeObjCPointer:
		base := "id"
		if t.Decl != nil {
			base = t.Decl.Name
		}
		if len(t.TypeArgs) > 0 {
			args := make([]string, len(t.TypeArgs))
			for i, a := range t.TypeArgs {
				args[i] = a.String()
			}
			base += "<" + strings.Join(args, ", ") + ">"
		}
		if len(t.Protocols) > 0 {
			ps := make([]string, len(t.Protocols))
			for i, p := range t.Protocols {
				ps[i] = p.Name
			}
			base += "<" + strings.Join(ps, ", ") + ">"
		}
		if t.Decl != nil {
			base += " *"
		}
		s = base
	case TypeObjCClass:
		s = "Class"
	case TypeObjCSel:
		s = "SEL"
	case TypeInstanceType:
		s = "instancetype"
	case TypeTypedef, TypeEnum, TypeRecord:
		if t.Decl != nil {
			s = t.Decl.Name
		}
		if t.Kind == TypeEnum {
			s = "enum " + s
		} else if t.Kind == TypeRecord {
			s = "struct " + s
		}
	case TypeFunction, TypeBlock:
		fn := t
		sep := "(*)"
		if t.Kind == TypeBlock {
			fn = t.Pointee
			sep = "(^)"
		}
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.String()
		}
		if fn.Variadic {
			params = append(params, "...")
		}
		s = fmt.Sprintf("%s %s(%s)", fn.Result, sep, strings.Join(params, ", "))
	case TypeConstantArray:
		s = fmt.Sprintf("%s[%d]", t.Pointee, t.Size)
	case TypeVariableArray:
		s = t.Pointee.String() + "[*]"
	case TypeIncompleteArray:
		s = t.Pointee.String() + "[]"
	case TypeVector:
		s = "vector " + t.Name
	}
	if t.Const {
		s = "const " + s
	}
	if t.Nullability != NullUnspecified {
		s += " _" + strings.ToUpper(t.Nullability.String()[:1]) + t.Nullability.String()[1:]
	}
	return s
}
