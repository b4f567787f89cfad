package importer

import (
	"fmt"
	"strings"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/enums"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/names"
)

// Role is the context a type is imported in.
type Role int

const (
	RoleAbstract Role = iota
	RoleTypedef
	RoleValue
	RoleBridgedValue
	RoleVariable
	RoleAuditedVariable
	RoleRecordField
	RoleResult
	RoleAuditedResult
	RoleParameter
	RoleCFRetainedOutParameter
	RoleCFUnretainedOutParameter
	RolePointee
	RoleProperty
	RolePropertyAccessor
	RoleEnum
)

func (r Role) String() string {
	switch r {
	case RoleAbstract:
		return "abstract"
	case RoleTypedef:
		return "typedef"
	case RoleValue:
		return "value"
	case RoleBridgedValue:
		return "bridged-value"
	case RoleVariable:
		return "variable"
	case RoleAuditedVariable:
		return "audited-variable"
	case RoleRecordField:
		return "record-field"
	case RoleResult:
		return "result"
	case RoleAuditedResult:
		return "audited-result"
	case RoleParameter:
		return "parameter"
	case RoleCFRetainedOutParameter:
		return "cf-retained-out-parameter"
	case RoleCFUnretainedOutParameter:
		return "cf-unretained-out-parameter"
	case RolePointee:
		return "pointee"
	case RoleProperty:
		return "property"
	case RolePropertyAccessor:
		return "property-accessor"
	case RoleEnum:
		return "enum"
	}
	panic(fmt.Sprintf("importer: unknown type role %d", int(r)))
}

// bridges reports whether the role may substitute host value types for
// bridgeable foreign types.
func (r Role) bridges() bool {
	switch r {
	case RoleBridgedValue, RoleResult, RoleAuditedResult, RoleParameter,
		RoleCFRetainedOutParameter, RoleCFUnretainedOutParameter,
		RoleProperty, RolePropertyAccessor:
		return true
	case RoleAbstract, RoleTypedef, RoleValue, RoleVariable, RoleAuditedVariable,
		RoleRecordField, RolePointee, RoleEnum:
		return false
	}
	panic(fmt.Sprintf("importer: unknown type role %d", int(r)))
}

// audited reports whether reference-counted CF pointers keep their managed
// shape. Unaudited roles wrap them in Unmanaged.
func (r Role) audited() bool {
	switch r {
	case RoleAbstract, RoleTypedef, RoleValue, RoleBridgedValue, RoleAuditedVariable,
		RoleAuditedResult, RoleParameter, RoleCFRetainedOutParameter,
		RoleCFUnretainedOutParameter, RoleProperty, RolePropertyAccessor, RoleEnum:
		return true
	case RoleVariable, RoleRecordField, RoleResult, RolePointee:
		return false
	}
	panic(fmt.Sprintf("importer: unknown type role %d", int(r)))
}

// mappedTypedefs lists typedef names imported directly as host types.
var mappedTypedefs = map[string]string{
	"BOOL":              "Bool",
	"Boolean":           "Bool",
	"NSInteger":         "Int",
	"NSUInteger":        "UInt",
	"CGFloat":           "CGFloat",
	"NSTimeInterval":    "TimeInterval",
	"size_t":            "Int",
	"ssize_t":           "Int",
	"ptrdiff_t":         "Int",
	"intptr_t":          "Int",
	"uintptr_t":         "UInt",
	"int8_t":            "Int8",
	"int16_t":           "Int16",
	"int32_t":           "Int32",
	"int64_t":           "Int64",
	"uint8_t":           "UInt8",
	"uint16_t":          "UInt16",
	"uint32_t":          "UInt32",
	"uint64_t":          "UInt64",
	"unichar":           "UInt16",
	"UniChar":           "UInt16",
	"va_list":           "CVaListPointer",
	"__builtin_va_list": "CVaListPointer",
}

var builtinTypes = map[string]string{
	"bool":               "Bool",
	"_Bool":              "Bool",
	"char":               "CChar",
	"signed char":        "Int8",
	"unsigned char":      "UInt8",
	"short":              "Int16",
	"unsigned short":     "UInt16",
	"int":                "Int32",
	"unsigned int":       "UInt32",
	"unsigned":           "UInt32",
	"long":               "Int",
	"unsigned long":      "UInt",
	"long long":          "Int64",
	"unsigned long long": "UInt64",
	"float":              "Float",
	"double":             "Double",
	"long double":        "Float80",
	"wchar_t":            "Int32",
	"char16_t":           "UInt16",
	"char32_t":           "UInt32",
}

// bridgedClasses maps Foundation classes with a host value-type
// counterpart.
var bridgedClasses = map[string]string{
	"NSString": "String",
	"NSData":   "Data",
	"NSDate":   "Date",
	"NSURL":    "URL",
}

var supportedConventions = map[string]bool{
	"":      true,
	"c":     true,
	"cdecl": true,
}

func unrepresentable(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnrepresentable}, args...)...)
}

// ImportType translates t in the given role. allowWidenedInteger lets
// NSUInteger import as Int; allowFullBridging enables bridging in roles that
// support it; optionality is the default applied to pointer-like types
// without a nullability annotation.
func (s *Session) ImportType(t *foreign.Type, role Role, allowWidenedInteger, allowFullBridging bool, optionality hostast.OptionalKind) (*hostast.Type, error) {
	scope := s.coord.Enter()
	defer scope.Exit()
	return s.importType(t, role, allowWidenedInteger, allowFullBridging, optionality)
}

func (s *Session) importType(t *foreign.Type, role Role, widen, bridge bool, optionality hostast.OptionalKind) (*hostast.Type, error) {
	if t == nil {
		return nil, unrepresentable("missing type")
	}
	ht, err := s.importShape(t, role, widen, bridge && role.bridges())
	if err != nil {
		return nil, err
	}
	if !t.IsPointerLike() {
		return ht, nil
	}
	return hostast.OptionalOf(ht, resolveOptionality(t, role, optionality)), nil
}

// resolveOptionality applies an explicit annotation when present (looking
// through typedefs), otherwise the caller's default. Pointees never use an
// implicitly unwrapped optional.
func resolveOptionality(t *foreign.Type, role Role, def hostast.OptionalKind) hostast.OptionalKind {
	n := foreign.NullUnspecified
	for cur := t; cur != nil; {
		if cur.Nullability != foreign.NullUnspecified {
			n = cur.Nullability
			break
		}
		if cur.Kind != foreign.TypeTypedef || cur.Decl == nil {
			break
		}
		cur = cur.Decl.Type
	}
	switch n {
	case foreign.NullNonNull:
		return hostast.OptionalNone
	case foreign.NullNullable:
		return hostast.Optional
	}
	if role == RolePointee {
		return hostast.Optional
	}
	return def
}

// withNote applies an API notes nullability when t carries no annotation
// of its own.
func withNote(t *foreign.Type, n apinotes.Nullability) *foreign.Type {
	if t == nil || n == "" || t.Nullability != foreign.NullUnspecified || n.Foreign() == foreign.NullUnspecified {
		return t
	}
	return t.WithNullability(n.Foreign())
}

func (s *Session) importShape(t *foreign.Type, role Role, widen, bridge bool) (*hostast.Type, error) {
	switch t.Kind {
	case foreign.TypeVoid:
		return hostast.Void(), nil
	case foreign.TypeBuiltin:
		name, ok := builtinTypes[t.Name]
		if !ok {
			return nil, unrepresentable("builtin type %q", t.Name)
		}
		return hostast.Named(name), nil
	case foreign.TypeTypedef:
		return s.importTypedefType(t, role, widen, bridge)
	case foreign.TypeEnum, foreign.TypeRecord:
		return s.importTagType(t, role)
	case foreign.TypePointer:
		return s.importPointer(t, role)
	case foreign.TypeObjCPointer:
		return s.importObjCPointer(t, bridge)
	case foreign.TypeObjCClass:
		return hostast.Named("AnyClass"), nil
	case foreign.TypeObjCSel:
		return hostast.Named("Selector"), nil
	case foreign.TypeInstanceType:
		return hostast.DynamicSelf(), nil
	case foreign.TypeFunction:
		return s.importFunctionPointer(t, "c")
	case foreign.TypeBlock:
		if t.Pointee == nil {
			return nil, unrepresentable("block without prototype")
		}
		return s.importFunctionPointer(t.Pointee, "block")
	case foreign.TypeConstantArray:
		if role == RoleParameter {
			return s.importPointer(foreign.PointerTo(t.Pointee), role)
		}
		elem, err := s.importType(t.Pointee, RoleValue, false, false, hostast.ImplicitlyUnwrapped)
		if err != nil {
			return nil, err
		}
		elems := make([]*hostast.Type, t.Size)
		for i := range elems {
			elems[i] = elem
		}
		return hostast.Tuple(elems...), nil
	case foreign.TypeIncompleteArray:
		if role == RoleParameter {
			return s.importPointer(foreign.PointerTo(t.Pointee), role)
		}
		return nil, unrepresentable("incomplete array type %s", t)
	case foreign.TypeVariableArray:
		return nil, unrepresentable("variable-length array type %s", t)
	case foreign.TypeVector:
		return nil, unrepresentable("vector type %s", t)
	}
	return nil, unrepresentable("type %s", t)
}

func (s *Session) importTypedefType(t *foreign.Type, role Role, widen, bridge bool) (*hostast.Type, error) {
	d := t.Decl
	if d == nil {
		return nil, unrepresentable("typedef without declaration")
	}
	if mapped, ok := mappedTypedefs[d.Name]; ok {
		switch {
		case mapped == "Bool" && role == RolePointee && d.Name == "BOOL":
			return hostast.Named("ObjCBool"), nil
		case d.Name == "NSUInteger" && widen && role != RolePointee:
			return hostast.Named("Int"), nil
		}
		return hostast.Named(mapped), nil
	}
	if _, ok := s.cfRecord(d); ok {
		cls := s.importDeclImpl(d)
		if cls == nil {
			return nil, unrepresentable("CF type %s", d.Name)
		}
		ht := hostast.NominalType(cls)
		if !role.audited() && !d.Attrs.CFAudited {
			ht = hostast.Generic("Unmanaged", ht)
		}
		return ht, nil
	}
	if bridge && d.Type != nil && d.Type.IsObjCObject() {
		if b, ok := s.bridgedObject(d.Type.Desugar()); ok {
			return b, nil
		}
	}
	hd := s.importTransparent(d)
	if hd == nil {
		if d.Type == nil {
			return nil, unrepresentable("typedef %s", d.Name)
		}
		return s.importShape(d.Type, role, widen, bridge)
	}
	return hostast.NominalType(hd), nil
}

func (s *Session) importTagType(t *foreign.Type, role Role) (*hostast.Type, error) {
	d := t.Decl
	if d == nil {
		return nil, unrepresentable("tag type without declaration")
	}
	if hd := s.importDeclImpl(d); hd != nil {
		return hostast.NominalType(hd), nil
	}
	if d.Kind == foreign.KindEnum {
		return s.enumRawType(d)
	}
	return nil, unrepresentable("record %s has no definition", enums.Name(d))
}

// enumRawType is the integer type an enum's values have.
func (s *Session) enumRawType(e *foreign.Decl) (*hostast.Type, error) {
	if e.Type != nil {
		return s.importType(e.Type, RoleEnum, false, false, hostast.OptionalNone)
	}
	for _, m := range e.Members {
		if m.Kind == foreign.KindEnumConstant && m.Value < 0 {
			return hostast.Named("Int32"), nil
		}
	}
	return hostast.Named("UInt32"), nil
}

func (s *Session) importPointer(t *foreign.Type, role Role) (*hostast.Type, error) {
	p := t.Pointee
	if p == nil {
		return nil, unrepresentable("pointer without pointee")
	}
	dp := p.Desugar()
	switch dp.Kind {
	case foreign.TypeVoid:
		if p.Const {
			return hostast.Named("UnsafeRawPointer"), nil
		}
		return hostast.Named("UnsafeMutableRawPointer"), nil
	case foreign.TypeFunction:
		return s.importFunctionPointer(dp, "c")
	case foreign.TypeRecord:
		if dp.Decl == nil {
			break
		}
		if td := s.cfTypedefFor(dp.Decl); td != nil {
			return s.importTypedefType(foreign.TypedefType(td), role, false, false)
		}
		if s.foreign.Definition(dp.Decl) == nil {
			return hostast.Named("OpaquePointer"), nil
		}
	}
	pointee, err := s.importType(p, RolePointee, false, false, hostast.Optional)
	if err != nil {
		return nil, err
	}
	if p.IsObjCObject() && role != RoleCFRetainedOutParameter && role != RoleCFUnretainedOutParameter {
		return hostast.Generic("AutoreleasingUnsafeMutablePointer", pointee), nil
	}
	if p.Const {
		return hostast.Generic("UnsafePointer", pointee), nil
	}
	return hostast.Generic("UnsafeMutablePointer", pointee), nil
}

func (s *Session) importFunctionPointer(fn *foreign.Type, convention string) (*hostast.Type, error) {
	if fn.Kind != foreign.TypeFunction {
		return nil, unrepresentable("function type %s", fn)
	}
	if !supportedConventions[strings.ToLower(fn.CallingConv)] {
		return nil, unrepresentable("calling convention %q", fn.CallingConv)
	}
	if fn.Variadic {
		return nil, unrepresentable("variadic function type %s", fn)
	}
	bridge := convention == "block"
	params := make([]*hostast.Type, len(fn.Params))
	for i, p := range fn.Params {
		pt, err := s.importType(p, RoleParameter, false, bridge, hostast.ImplicitlyUnwrapped)
		if err != nil {
			return nil, err
		}
		params[i] = pt
	}
	result, err := s.importType(fn.Result, RoleResult, false, bridge, hostast.ImplicitlyUnwrapped)
	if err != nil {
		return nil, err
	}
	return hostast.FunctionOf(params, result, convention), nil
}

func (s *Session) importObjCPointer(t *foreign.Type, bridge bool) (*hostast.Type, error) {
	protos := make([]*hostast.Type, 0, len(t.Protocols))
	for _, p := range t.Protocols {
		hp := s.importDeclImpl(p)
		if hp == nil {
			return nil, unrepresentable("protocol %s", p.Name)
		}
		protos = append(protos, hostast.NominalType(hp))
	}
	if t.Decl == nil {
		switch len(protos) {
		case 0:
			if bridge {
				return hostast.Named("Any"), nil
			}
			return hostast.Named("AnyObject"), nil
		case 1:
			return protos[0], nil
		}
		return hostast.Composition(protos...), nil
	}
	if bridge {
		if b, ok := s.bridgedObject(t); ok {
			return b, nil
		}
	}
	cls := s.importDeclImpl(t.Decl)
	if cls == nil {
		return nil, unrepresentable("class %s", t.Decl.Name)
	}
	base := hostast.NominalType(cls)
	if len(protos) == 0 {
		return base, nil
	}
	return hostast.Composition(append([]*hostast.Type{base}, protos...)...), nil
}

// bridgedObject returns the host value type for a bridgeable Foundation
// object type.
func (s *Session) bridgedObject(t *foreign.Type) (*hostast.Type, bool) {
	if t == nil || t.Kind != foreign.TypeObjCPointer || t.Decl == nil {
		return nil, false
	}
	name := t.Decl.Name
	if v, ok := bridgedClasses[name]; ok {
		return hostast.Named(v), true
	}
	arg := func(i int, def string) *hostast.Type {
		if i < len(t.TypeArgs) {
			if a, err := s.importType(t.TypeArgs[i], RoleBridgedValue, false, true, hostast.OptionalNone); err == nil {
				return a.Unwrapped()
			}
		}
		return hostast.Named(def)
	}
	switch name {
	case "NSArray":
		return hostast.Generic("Array", arg(0, "Any")), true
	case "NSDictionary":
		return hostast.Generic("Dictionary", arg(0, "AnyHashable"), arg(1, "Any")), true
	case "NSSet":
		return hostast.Generic("Set", arg(0, "AnyHashable")), true
	}
	return nil, false
}

// cfTypedefFor returns the "…Ref" typedef naming a CF record, if any.
func (s *Session) cfTypedefFor(rec *foreign.Decl) *foreign.Decl {
	stem := strings.TrimLeft(rec.Name, "_")
	if stem == "" {
		return nil
	}
	td := s.foreign.LookupTypedef(stem + "Ref")
	if td == nil {
		return nil
	}
	if r, ok := s.cfRecord(td); ok && r == rec {
		return td
	}
	return nil
}

// WidenedIntegerAllowed reports whether NSUInteger values of d may import
// as Int: d is not a bitmask, not a record field and not the result of a
// creation function.
func (s *Session) WidenedIntegerAllowed(d *foreign.Decl) bool {
	if d == nil {
		return false
	}
	switch d.Kind {
	case foreign.KindMethod, foreign.KindFunction, foreign.KindProperty, foreign.KindParam, foreign.KindVar:
	default:
		return false
	}
	words := names.SplitWords(d.Name)
	if d.Kind == foreign.KindMethod {
		words = nil
		for _, p := range d.Selector.Pieces() {
			words = append(words, names.SplitWords(p)...)
		}
	}
	for _, w := range words {
		switch strings.ToLower(w) {
		case "mask", "options", "flags", "bits", "bitmask":
			return false
		}
	}
	if d.Kind == foreign.KindFunction {
		for _, w := range words {
			if w == "Create" || w == "Make" {
				return false
			}
		}
	}
	if d.Kind == foreign.KindParam && d.Parent != nil && d.Parent.Kind == foreign.KindFunction {
		return s.WidenedIntegerAllowed(d.Parent)
	}
	return true
}
