package frontends

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
)

// SystemModule owns the C library typedefs synthesized on first use.
const SystemModule = "Darwin"

// TypeParser resolves C and Objective-C type spellings against a foreign
// context.
type TypeParser struct {
	ctx *foreign.Context
	mod *foreign.Module
	// AssumeNonnull marks unannotated single-level pointers nonnull, as
	// inside NS_ASSUME_NONNULL_BEGIN/END.
	AssumeNonnull bool
	// Classes names identifiers known to be Objective-C classes before their
	// @interface has been parsed.
	Classes map[string]bool
}

// NewTypeParser creates a parser that declares unknown names in m.
func NewTypeParser(ctx *foreign.Context, m *foreign.Module) *TypeParser {
	return &TypeParser{ctx: ctx, mod: m, Classes: make(map[string]bool)}
}

// Parse parses an abstract type spelling such as "NSString * _Nullable" or
// "void (^)(NSError *error)".
func (p *TypeParser) Parse(spelling string) (*foreign.Type, error) {
	t, _, err := p.ParseDecl(spelling)
	return t, err
}

// ParseDecl parses a declaration spelling, "type name", and returns the
// type with the declared name (empty for abstract spellings).
func (p *TypeParser) ParseDecl(spelling string) (*foreign.Type, string, error) {
	s := &typeScanner{p: p, toks: tokenize(spelling)}
	t, name, err := s.declaration()
	if err != nil {
		return nil, "", fmt.Errorf("parsing type %q: %w", spelling, err)
	}
	if s.pos < len(s.toks) {
		return nil, "", fmt.Errorf("parsing type %q: unexpected %q", spelling, s.peek())
	}
	return t, name, nil
}

// ParseNullability maps a nullability keyword in any of its spellings.
func ParseNullability(word string) (foreign.Nullability, bool) {
	n, ok := nullabilityWords[word]
	return n, ok
}

var nullabilityWords = map[string]foreign.Nullability{
	"_Nonnull":          foreign.NullNonNull,
	"__nonnull":         foreign.NullNonNull,
	"nonnull":           foreign.NullNonNull,
	"null_resettable":   foreign.NullNonNull,
	"_Nullable":         foreign.NullNullable,
	"__nullable":        foreign.NullNullable,
	"nullable":          foreign.NullNullable,
	"_Null_unspecified": foreign.NullUnspecified,
	"null_unspecified":  foreign.NullUnspecified,
}

var qualifierWords = map[string]bool{
	"const":               true,
	"volatile":            true,
	"restrict":            true,
	"__restrict":          true,
	"_Atomic":             true,
	"__strong":            true,
	"__weak":              true,
	"__unsafe_unretained": true,
	"__autoreleasing":     true,
	"__block":             true,
	"__unused":            true,
	"in":                  true,
	"out":                 true,
	"inout":               true,
	"bycopy":              true,
	"byref":               true,
	"oneway":              true,
	"extern":              true,
	"static":              true,
	"inline":              true,
}

var builtinWords = map[string]bool{
	"void":     true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"float":    true,
	"double":   true,
	"signed":   true,
	"unsigned": true,
	"_Bool":    true,
	"bool":     true,
	"__int128": true,
}

// stdTypedefs are C library typedefs headers use without declaring.
var stdTypedefs = map[string]string{
	"size_t":            "unsigned long",
	"ssize_t":           "long",
	"ptrdiff_t":         "long",
	"intptr_t":          "long",
	"uintptr_t":         "unsigned long",
	"int8_t":            "signed char",
	"int16_t":           "short",
	"int32_t":           "int",
	"int64_t":           "long long",
	"uint8_t":           "unsigned char",
	"uint16_t":          "unsigned short",
	"uint32_t":          "unsigned int",
	"uint64_t":          "unsigned long long",
	"unichar":           "unsigned short",
	"UniChar":           "unsigned short",
	"Boolean":           "unsigned char",
	"va_list":           "__builtin_va_list",
	"__builtin_va_list": "__builtin_va_list",
	"wchar_t":           "int",
}

type typeScanner struct {
	p    *TypeParser
	toks []string
	pos  int
}

func (s *typeScanner) peek() string { return s.peekAt(0) }

func (s *typeScanner) peekAt(n int) string {
	if s.pos+n < len(s.toks) {
		return s.toks[s.pos+n]
	}
	return ""
}

func (s *typeScanner) next() string {
	tok := s.peek()
	if tok != "" {
		s.pos++
	}
	return tok
}

func (s *typeScanner) accept(tok string) bool {
	if s.peek() == tok {
		s.pos++
		return true
	}
	return false
}

func (s *typeScanner) expect(tok string) error {
	if !s.accept(tok) {
		return fmt.Errorf("expected %q, found %q", tok, s.peek())
	}
	return nil
}

func (s *typeScanner) declaration() (*foreign.Type, string, error) {
	base, bare, outer, err := s.specifiers()
	if err != nil {
		return nil, "", err
	}
	t, name, err := s.declarator(base, bare)
	if err != nil {
		return nil, "", err
	}
	if outer != foreign.NullUnspecified && t.IsPointerLike() && t.Nullability == foreign.NullUnspecified {
		t = t.WithNullability(outer)
	}
	if s.p.AssumeNonnull {
		t = assumeNonnull(t)
	}
	return t, name, nil
}

// specifiers parses the declaration specifiers. bare reports an Objective-C
// class named without its pointer.
func (s *typeScanner) specifiers() (base *foreign.Type, bare bool, outer foreign.Nullability, err error) {
	var words []string
	isConst, kindOf := false, false
loop:
	for {
		tok := s.peek()
		switch {
		case tok == "":
			break loop
		case qualifierWords[tok]:
			s.next()
			if tok == "const" {
				isConst = true
			}
		case tok == "__kindof":
			s.next()
			kindOf = true
		default:
			if n, ok := nullabilityWords[tok]; ok {
				s.next()
				outer = n
				continue
			}
			if base != nil {
				break loop
			}
			if builtinWords[tok] {
				s.next()
				words = append(words, tok)
				continue
			}
			if len(words) > 0 || !isIdent(tok) {
				break loop
			}
			s.next()
			if tok == "struct" || tok == "union" || tok == "enum" {
				name := s.next()
				if !isIdent(name) {
					return nil, false, outer, fmt.Errorf("missing %s name", tok)
				}
				kind := foreign.KindRecord
				if tok == "enum" {
					kind = foreign.KindEnum
				}
				base = foreign.TagType(s.p.ctx.DeclareTag(s.p.mod, kind, name))
				continue
			}
			base, bare, err = s.named(tok)
			if err != nil {
				return nil, false, outer, err
			}
		}
	}
	if base == nil {
		if len(words) == 0 {
			return nil, false, outer, fmt.Errorf("missing type")
		}
		if name := builtinName(words); name == "void" {
			base = foreign.Void()
		} else {
			base = foreign.Builtin(name)
		}
	}
	if isConst {
		base = base.WithConst()
	}
	if kindOf && base.Kind == foreign.TypeObjCPointer {
		base.KindOf = true
	}
	return base, bare, outer, nil
}

func (s *typeScanner) named(name string) (*foreign.Type, bool, error) {
	ctx := s.p.ctx
	switch name {
	case "id":
		protos, _, err := s.angleList()
		if err != nil {
			return nil, false, err
		}
		return foreign.ObjCPointer(nil, protos...), false, nil
	case "Class":
		if _, _, err := s.angleList(); err != nil {
			return nil, false, err
		}
		return foreign.ObjCClassType(), false, nil
	case "SEL":
		return foreign.SelType(), false, nil
	case "instancetype":
		return foreign.InstanceType(), false, nil
	}
	if td := ctx.LookupTypedef(name); td != nil {
		return foreign.TypedefType(td), false, nil
	}
	if ctx.LookupClass(name) != nil || s.p.Classes[name] || (s.peek() == "*" && ctx.LookupTag(name) == nil && stdTypedefs[name] == "") {
		cls := ctx.DeclareClass(s.p.mod, name)
		protos, args, err := s.angleList()
		if err != nil {
			return nil, false, err
		}
		t := foreign.ObjCPointer(cls, protos...)
		t.TypeArgs = args
		return t, true, nil
	}
	if underlying, ok := stdTypedefs[name]; ok {
		return foreign.TypedefType(s.p.systemTypedef(name, underlying)), false, nil
	}
	if tag := ctx.LookupTag(name); tag != nil {
		return foreign.TagType(tag), false, nil
	}
	return nil, false, fmt.Errorf("unknown type name %q", name)
}

// angleList parses an optional <...> list after a class name or id.
// Elements naming protocols are returned as protocols, the rest as type
// arguments.
func (s *typeScanner) angleList() (protos []*foreign.Decl, args []*foreign.Type, err error) {
	if !s.accept("<") {
		return nil, nil, nil
	}
	for {
		tok := s.peek()
		if proto := s.p.ctx.LookupProtocol(tok); proto != nil && (s.peekAt(1) == "," || s.peekAt(1) == ">") {
			s.next()
			protos = append(protos, proto)
		} else {
			t, _, err := s.declaration()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, t)
		}
		if s.accept(",") {
			continue
		}
		return protos, args, s.expect(">")
	}
}

func (s *typeScanner) declarator(base *foreign.Type, bare bool) (*foreign.Type, string, error) {
	t := base
	for s.accept("*") {
		if bare {
			c := *base
			t = &c
			bare = false
		} else {
			t = foreign.PointerTo(t)
		}
		s.pointerQualifiers(t)
	}
	if bare {
		return nil, "", fmt.Errorf("object type %s must be a pointer", base.Decl.Name)
	}

	if s.peek() == "(" && (s.peekAt(1) == "^" || s.peekAt(1) == "*") {
		s.next()
		star := s.next()
		holder := &foreign.Type{}
		s.pointerQualifiers(holder)
		name := ""
		if isIdent(s.peek()) {
			name = s.next()
		}
		if err := s.expect(")"); err != nil {
			return nil, "", err
		}
		if err := s.expect("("); err != nil {
			return nil, "", err
		}
		params, variadic, err := s.params()
		if err != nil {
			return nil, "", err
		}
		fn := foreign.FunctionType(t, params...)
		fn.Variadic = variadic
		out := foreign.PointerTo(fn)
		if star == "^" {
			out = foreign.BlockType(fn)
		}
		out.Nullability = holder.Nullability
		out.Const = holder.Const
		return out, name, nil
	}

	name := ""
	if isIdent(s.peek()) && !qualifierWords[s.peek()] {
		name = s.next()
	}
	var dims []string
	for s.accept("[") {
		n := ""
		for s.peek() != "]" && s.peek() != "" {
			n += s.next()
		}
		if err := s.expect("]"); err != nil {
			return nil, "", err
		}
		dims = append(dims, n)
	}
	for i := len(dims) - 1; i >= 0; i-- {
		switch n, err := strconv.Atoi(dims[i]); {
		case dims[i] == "":
			t = foreign.IncompleteArray(t)
		case err != nil:
			t = foreign.VariableArray(t)
		default:
			t = foreign.ConstantArray(t, n)
		}
	}
	if s.peek() == "(" {
		s.next()
		params, variadic, err := s.params()
		if err != nil {
			return nil, "", err
		}
		fn := foreign.FunctionType(t, params...)
		fn.Variadic = variadic
		t = fn
	}
	return t, name, nil
}

func (s *typeScanner) pointerQualifiers(t *foreign.Type) {
	for {
		tok := s.peek()
		if n, ok := nullabilityWords[tok]; ok {
			t.Nullability = n
		} else if qualifierWords[tok] {
			if tok == "const" {
				t.Const = true
			}
		} else {
			return
		}
		s.next()
	}
}

// params parses a parameter list after its opening parenthesis.
func (s *typeScanner) params() ([]*foreign.Type, bool, error) {
	if s.accept(")") {
		return nil, false, nil
	}
	if s.peek() == "void" && s.peekAt(1) == ")" {
		s.pos += 2
		return nil, false, nil
	}
	var params []*foreign.Type
	for {
		if s.accept("...") {
			return params, true, s.expect(")")
		}
		t, _, err := s.declaration()
		if err != nil {
			return nil, false, err
		}
		params = append(params, t)
		if s.accept(",") {
			continue
		}
		return params, false, s.expect(")")
	}
}

func (p *TypeParser) systemTypedef(name, underlying string) *foreign.Decl {
	if td := p.ctx.LookupTypedef(name); td != nil {
		return td
	}
	td := &foreign.Decl{Kind: foreign.KindTypedef, Name: name, Type: foreign.Builtin(underlying)}
	p.ctx.Add(p.ctx.Module(SystemModule), td)
	return td
}

// assumeNonnull applies the audited-region default: a single-level pointer
// without an annotation is nonnull. Multi-level pointers are left alone.
func assumeNonnull(t *foreign.Type) *foreign.Type {
	if t.Nullability != foreign.NullUnspecified || !t.IsPointerLike() {
		return t
	}
	if d := t.Desugar(); d.Kind == foreign.TypePointer && d.Pointee != nil && d.Pointee.IsPointerLike() {
		return t
	}
	return t.WithNullability(foreign.NullNonNull)
}

// builtinName canonicalizes builtin specifier words: "unsigned long int"
// becomes "unsigned long", "signed" alone becomes "int".
func builtinName(words []string) string {
	var signed, unsigned bool
	longs := 0
	base := ""
	for _, w := range words {
		switch w {
		case "signed":
			signed = true
		case "unsigned":
			unsigned = true
		case "long":
			longs++
		case "int":
			if base == "" {
				base = "int"
			}
		default:
			base = w
		}
	}
	name := base
	switch {
	case base == "double" && longs > 0:
		return "long double"
	case base == "short":
	case longs == 1:
		name = "long"
	case longs >= 2:
		name = "long long"
	case base == "":
		name = "int"
	}
	if unsigned {
		return "unsigned " + name
	}
	if signed && name == "char" {
		return "signed char"
	}
	return name
}

func tokenize(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentByte(c):
			j := i + 1
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		case strings.HasPrefix(s[i:], "..."):
			toks = append(toks, "...")
			i += 3
		default:
			toks = append(toks, string(c))
			i++
		}
	}
	return toks
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isIdent(tok string) bool {
	return tok != "" && isIdentByte(tok[0]) && (tok[0] < '0' || tok[0] > '9')
}
