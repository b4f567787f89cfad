package importer

import (
	"fmt"
	"strings"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/enums"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
)

// SpecialMethodKind selects how a method signature is shaped.
type SpecialMethodKind int

const (
	SpecialRegular SpecialMethodKind = iota
	// SpecialConstructor imports the result as the initializer's
	// failability.
	SpecialConstructor
	SpecialPropertyAccessor
	SpecialSubscriptGetter
)

func (k SpecialMethodKind) String() string {
	switch k {
	case SpecialRegular:
		return "regular"
	case SpecialConstructor:
		return "constructor"
	case SpecialPropertyAccessor:
		return "property-accessor"
	case SpecialSubscriptGetter:
		return "subscript-getter"
	}
	panic(fmt.Sprintf("importer: unknown special method kind %d", int(k)))
}

// Signature is an imported function or method type.
type Signature struct {
	Params []*hostast.Param
	// Result is nil for initializers.
	Result   *hostast.Type
	Failable hostast.OptionalKind
	Throws   bool
	Error    *hostast.ErrorConvention
}

// nonNullArgs records which parameter indices are known to be non-null.
type nonNullArgs []bool

func newNonNullArgs(n int, indices []int) nonNullArgs {
	b := make(nonNullArgs, n)
	for _, i := range indices {
		if i >= 0 && i < n {
			b[i] = true
		}
	}
	return b
}

func (b nonNullArgs) has(i int) bool { return i < len(b) && b[i] }

// ImportFunctionType imports the signature of a C function named by name.
func (s *Session) ImportFunctionType(fn *foreign.Decl, name ImportedName) (*Signature, error) {
	scope := s.coord.Enter()
	defer scope.Exit()
	return s.importFunctionType(fn, name)
}

func (s *Session) importFunctionType(fn *foreign.Decl, name ImportedName) (*Signature, error) {
	if fn.Variadic {
		return nil, unrepresentable("variadic function %s", fn.Name)
	}
	if fn.Type != nil && !supportedConventions[strings.ToLower(fn.Type.CallingConv)] {
		return nil, unrepresentable("calling convention %q of %s", fn.Type.CallingConv, fn.Name)
	}
	note := s.notes.Function(s.notesModule(fn), fn.Name)

	var result *hostast.Type
	if fn.Attrs.NoReturn {
		result = hostast.Never()
	} else {
		role := RoleResult
		if fn.Attrs.CFAudited || fn.Attrs.ReturnsRetained || fn.Attrs.ReturnsNotRetained {
			role = RoleAuditedResult
		}
		rt := fn.Result
		if note != nil {
			rt = withNote(rt, note.NullabilityOfRet)
		}
		var err error
		result, err = s.importType(rt, role, s.WidenedIntegerAllowed(fn), true, hostast.ImplicitlyUnwrapped)
		if err != nil {
			return nil, fmt.Errorf("result of %s: %w", fn.Name, err)
		}
	}

	var paramNotes []apinotes.Nullability
	if note != nil {
		paramNotes = note.Nullability
	}
	nonNull := newNonNullArgs(len(fn.Params), fn.Attrs.NonNullParams)
	params := make([]*hostast.Param, 0, len(fn.Params))
	for i, p := range fn.Params {
		hp, err := s.importParam(fn, p, i, RoleParameter, nonNull, paramNotes, name)
		if err != nil {
			return nil, err
		}
		params = append(params, hp)
	}
	return &Signature{Params: params, Result: result}, nil
}

// ImportMethodType imports the signature of an Objective-C method named by
// name, shaped according to kind.
func (s *Session) ImportMethodType(m *foreign.Decl, name ImportedName, kind SpecialMethodKind) (*Signature, error) {
	scope := s.coord.Enter()
	defer scope.Exit()
	return s.importMethodType(m, name, kind)
}

func (s *Session) importMethodType(m *foreign.Decl, name ImportedName, kind SpecialMethodKind) (*Signature, error) {
	if m.Variadic && !name.DroppedVariadic {
		return nil, unrepresentable("variadic method %s", m.Selector)
	}
	note := s.methodNote(m)
	var paramNotes []apinotes.Nullability
	rt := m.Result
	if note != nil {
		paramNotes = note.Nullability
		rt = withNote(rt, note.NullabilityOfRet)
	}

	sig := &Signature{}
	resultRole := RoleResult
	paramRole := RoleParameter
	switch kind {
	case SpecialRegular, SpecialConstructor, SpecialSubscriptGetter:
	case SpecialPropertyAccessor:
		resultRole = RolePropertyAccessor
		paramRole = RolePropertyAccessor
	default:
		panic(fmt.Sprintf("importer: unknown special method kind %d", int(kind)))
	}
	if m.Attrs.ReturnsRetained || m.Attrs.ReturnsNotRetained {
		resultRole = RoleAuditedResult
	}

	result, err := s.importType(rt, resultRole, s.WidenedIntegerAllowed(m), true, hostast.ImplicitlyUnwrapped)
	if err != nil {
		return nil, fmt.Errorf("result of %s: %w", m.Selector, err)
	}

	if info := name.Error; info != nil {
		conv := &hostast.ErrorConvention{
			Kind:                 info.Kind,
			ParamIndex:           info.ParamIndex,
			IsOwned:              info.IsOwned,
			ReplaceParamWithVoid: info.ReplaceParamWithVoid,
			ForeignResult:        result,
		}
		switch info.Kind {
		case hostast.ErrorZeroResult, hostast.ErrorNonZeroResult:
			result = hostast.Void()
		case hostast.ErrorNilResult:
			result = result.Unwrapped()
		case hostast.ErrorNonNilError:
		}
		sig.Throws = true
		sig.Error = conv
	}

	if kind == SpecialConstructor {
		sig.Failable = hostast.OptionalNone
		if result.IsOptional() {
			sig.Failable = result.Optional
		}
	} else {
		sig.Result = result
	}

	nonNull := newNonNullArgs(len(m.Params), m.Attrs.NonNullParams)
	for i, p := range m.Params {
		if info := name.Error; info != nil && i == info.ParamIndex {
			if info.ReplaceParamWithVoid {
				sig.Params = append(sig.Params, &hostast.Param{Name: paramName(p, i), Type: hostast.Void()})
			}
			continue
		}
		hp, err := s.importParam(m, p, i, paramRole, nonNull, paramNotes, name)
		if err != nil {
			return nil, err
		}
		if kind == SpecialSubscriptGetter {
			hp.Label = ""
		}
		sig.Params = append(sig.Params, hp)
	}
	if s.opts.InferDefaultArguments && (kind == SpecialRegular || kind == SpecialConstructor) {
		s.inferDefaults(sig.Params)
	}
	return sig, nil
}

// importParam imports parameter i of fn. Its label comes from name, skipping
// a dropped error parameter.
func (s *Session) importParam(fn, p *foreign.Decl, i int, role Role, nonNull nonNullArgs, notes []apinotes.Nullability, name ImportedName) (*hostast.Param, error) {
	pt := p.Type
	if pt == nil {
		return nil, unrepresentable("parameter %d of %s has no type", i, fn.Name)
	}
	if nonNull.has(i) && pt.Nullability == foreign.NullUnspecified && pt.IsPointerLike() {
		pt = pt.WithNullability(foreign.NullNonNull)
	}
	if i < len(notes) {
		pt = withNote(pt, notes[i])
	}
	switch {
	case p.Attrs.ReturnsRetained:
		role = RoleCFRetainedOutParameter
	case p.Attrs.ReturnsNotRetained:
		role = RoleCFUnretainedOutParameter
	}
	ht, err := s.importType(pt, role, s.WidenedIntegerAllowed(p), true, hostast.ImplicitlyUnwrapped)
	if err != nil {
		return nil, fmt.Errorf("parameter %d of %s: %w", i, fn.Name, err)
	}
	return &hostast.Param{Label: labelFor(name, i), Name: paramName(p, i), Type: ht}, nil
}

// labelFor maps a foreign parameter index onto the imported label list.
func labelFor(name ImportedName, i int) string {
	li := i
	if info := name.Error; info != nil && !info.ReplaceParamWithVoid && i > info.ParamIndex {
		li--
	}
	if li < len(name.Name.Labels) {
		return name.Name.Labels[li]
	}
	return ""
}

func paramName(p *foreign.Decl, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("arg%d", i)
}

// inferDefaults gives option-set parameters an empty default and the
// trailing run of optional parameters a nil default.
func (s *Session) inferDefaults(params []*hostast.Param) {
	for i := len(params) - 1; i >= 0; i-- {
		if !params[i].Type.IsOptional() {
			break
		}
		params[i].Default = "nil"
	}
	for _, p := range params {
		if p.Default != "" || p.Type.Kind != hostast.TypeNominal || p.Type.Decl == nil {
			continue
		}
		if fd := p.Type.Decl.Foreign; fd != nil && fd.Kind == foreign.KindEnum && s.enums.Classify(fd) == enums.OptionsSet {
			p.Default = "[]"
		}
	}
}
