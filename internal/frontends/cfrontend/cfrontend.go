// Package cfrontend parses the C declarations of a header with the
// tree-sitter C grammar: enums, records, typedefs, functions, globals and
// object-like macros. Objective-C containers are left to objcfrontend.
package cfrontend

import (
	"context"
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsc "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/frontends"
)

// CFrontend extracts C declarations from headers using tree-sitter.
type CFrontend struct{}

// New creates a new CFrontend.
func New() *CFrontend {
	return &CFrontend{}
}

func (f *CFrontend) Name() string {
	return "c"
}

// Detect returns true for C and Objective-C headers.
func (f *CFrontend) Detect(file string) bool {
	return strings.ToLower(filepath.Ext(file)) == ".h"
}

// Parse adds the C declarations of unit to its context.
func (f *CFrontend) Parse(ctx context.Context, unit *frontends.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := prepare(unit.Source)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sitter.NewLanguage(tsc.Language()))

	tree := parser.Parse(src.tree, nil)
	defer tree.Close()

	for _, imp := range src.imports {
		addImport(unit.Module, imp)
	}

	w := &walker{
		unit:  unit,
		ctx:   unit.Context,
		src:   src,
		types: frontends.NewTypeParser(unit.Context, unit.Module),
	}
	w.items(tree.RootNode())
	if w.failed > 0 {
		log.Printf("[c-frontend] %s: skipped %d declarations", unit.File, w.failed)
	}
	return nil
}

func addImport(m *foreign.Module, name string) {
	if name == m.Name {
		return
	}
	for _, existing := range m.Imports {
		if existing == name {
			return
		}
	}
	m.Imports = append(m.Imports, name)
}

type walker struct {
	unit   *frontends.Unit
	ctx    *foreign.Context
	src    *source
	types  *frontends.TypeParser
	failed int
	// consumed is the end of text already attributed to a declaration.
	consumed uint
}

// items walks the declarations under parent. Each declaration's attribute
// window starts where the previous sibling ended, so leading annotations
// are attributed to the declaration that follows them.
func (w *walker) items(parent *sitter.Node) {
	prev := parent.StartByte()
	for i := range parent.NamedChildCount() {
		n := parent.NamedChild(i)
		if n == nil {
			continue
		}
		w.item(n, max(prev, w.consumed))
		prev = n.EndByte()
	}
}

func (w *walker) item(n *sitter.Node, winStart uint) {
	w.types.AssumeNonnull = w.src.inNonnull(int(n.StartByte()))
	switch n.Kind() {
	case "declaration", "function_definition":
		w.declaration(n, winStart)
	case "type_definition":
		w.typedef(n, winStart)
	case "enum_specifier":
		w.enum(n, winStart)
	case "struct_specifier", "union_specifier":
		w.record(n, winStart)
	case "preproc_def":
		w.macro(n)
	case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "declaration_list", "ERROR":
		w.items(n)
	case "linkage_specification":
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Kind() == "declaration_list" {
				w.items(body)
			} else {
				w.item(body, winStart)
			}
		}
	}
}

func (w *walker) declaration(n *sitter.Node, winStart uint) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	prefix := w.text(w.src.types, n.StartByte(), typeNode.EndByte())
	if tag := w.defineInline(typeNode, winStart); tag != nil {
		if tag.Anonymous {
			return
		}
		prefix = "struct " + tag.Name
		if tag.Kind == foreign.KindEnum {
			prefix = "enum " + tag.Name
		}
	}

	cursor := n.Walk()
	defer cursor.Close()
	for _, d := range n.ChildrenByFieldName("declarator", cursor) {
		d := d
		decl := &d
		if decl.Kind() == "init_declarator" {
			if inner := decl.ChildByFieldName("declarator"); inner != nil {
				decl = inner
			}
		}
		if fn := functionDeclarator(decl); fn != nil {
			w.function(n, prefix, decl, fn, winStart)
			continue
		}
		spelling := prefix + " " + w.text(w.src.types, decl.StartByte(), decl.EndByte())
		t, name, err := w.types.ParseDecl(spelling)
		if err != nil || name == "" {
			w.failed++
			continue
		}
		if w.ctx.LookupValue(name) != nil {
			continue
		}
		v := &foreign.Decl{Kind: foreign.KindVar, Name: name, Type: t}
		w.locate(v, n)
		frontends.ApplyAttributes(&v.Attrs, w.text(w.src.orig, winStart, n.EndByte()))
		w.ctx.Add(w.unit.Module, v)
	}
}

// functionDeclarator finds the function declarator under a chain of
// pointer declarators.
func functionDeclarator(d *sitter.Node) *sitter.Node {
	for d != nil {
		switch d.Kind() {
		case "function_declarator":
			return d
		case "pointer_declarator":
			d = d.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

func (w *walker) function(n *sitter.Node, prefix string, decl, fn *sitter.Node, winStart uint) {
	nameNode := fn.ChildByFieldName("declarator")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		w.failed++
		return
	}
	name := w.text(w.src.orig, nameNode.StartByte(), nameNode.EndByte())
	if w.ctx.LookupValue(name) != nil {
		return
	}
	result, err := w.types.Parse(prefix + " " + w.text(w.src.types, decl.StartByte(), fn.StartByte()))
	if err != nil {
		w.failed++
		return
	}

	var params []*foreign.Decl
	variadic := false
	if list := fn.ChildByFieldName("parameters"); list != nil {
		for i := range list.NamedChildCount() {
			p := list.NamedChild(i)
			if p == nil {
				continue
			}
			text := strings.TrimSpace(w.text(w.src.types, p.StartByte(), p.EndByte()))
			switch {
			case p.Kind() == "variadic_parameter" || text == "...":
				variadic = true
				continue
			case p.Kind() != "parameter_declaration", text == "void":
				continue
			}
			t, pname, err := w.types.ParseDecl(text)
			if err != nil {
				w.failed++
				return
			}
			param := foreign.NewParam(pname, t)
			frontends.ApplyAttributes(&param.Attrs, w.text(w.src.orig, p.StartByte(), p.EndByte()))
			params = append(params, param)
		}
		if strings.Contains(w.text(w.src.types, list.StartByte(), list.EndByte()), "...") {
			variadic = true
		}
	}

	f := foreign.NewFunction(name, result, params...)
	f.Variadic = variadic
	w.locate(f, n)
	if conv := frontends.ApplyAttributes(&f.Attrs, w.text(w.src.orig, winStart, n.EndByte())); conv != "" {
		types := make([]*foreign.Type, len(params))
		for i, p := range params {
			types[i] = p.Type
		}
		f.Type = foreign.FunctionType(result, types...)
		f.Type.Variadic = variadic
		f.Type.CallingConv = conv
	}
	if w.src.inAudited(int(n.StartByte())) {
		f.Attrs.CFAudited = true
	}
	w.ctx.Add(w.unit.Module, f)
}

func (w *walker) typedef(n *sitter.Node, winStart uint) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil || n.ChildCount() == 0 {
		return
	}
	tag := w.defineInline(typeNode, winStart)
	start := n.Child(0).EndByte()
	window := w.text(w.src.orig, winStart, n.EndByte())

	cursor := n.Walk()
	defer cursor.Close()
	for _, d := range n.ChildrenByFieldName("declarator", cursor) {
		d := d
		var t *foreign.Type
		var name string
		if tag != nil {
			t, name = w.tagDeclarator(foreign.TagType(tag), &d)
		} else {
			spelling := w.text(w.src.types, start, typeNode.EndByte()) + " " + w.text(w.src.types, d.StartByte(), d.EndByte())
			var err error
			if t, name, err = w.types.ParseDecl(spelling); err != nil {
				w.failed++
				continue
			}
		}
		if name == "" || w.ctx.LookupTypedef(name) != nil {
			continue
		}
		td := &foreign.Decl{Kind: foreign.KindTypedef, Name: name, Type: t}
		w.locate(td, n)
		frontends.ApplyAttributes(&td.Attrs, window)
		if tag != nil && tag.Anonymous && tag.TypedefName == nil && t.Kind != foreign.TypePointer {
			tag.TypedefName = td
		}
		if td.Attrs.ObjCBridge != "" {
			if pt := t.Desugar(); pt.Kind == foreign.TypePointer && pt.Pointee.Kind == foreign.TypeRecord {
				pt.Pointee.Decl.Attrs.ObjCBridge = td.Attrs.ObjCBridge
			}
		}
		w.ctx.Add(w.unit.Module, td)
	}
}

// tagDeclarator applies a typedef declarator to an inline tag: the name
// itself or pointers to it.
func (w *walker) tagDeclarator(base *foreign.Type, d *sitter.Node) (*foreign.Type, string) {
	switch d.Kind() {
	case "type_identifier", "identifier", "field_identifier":
		return base, w.text(w.src.orig, d.StartByte(), d.EndByte())
	case "pointer_declarator":
		inner := d.ChildByFieldName("declarator")
		if inner == nil {
			return nil, ""
		}
		pt := foreign.PointerTo(base)
		pt.Nullability = nullabilityIn(w.text(w.src.types, d.StartByte(), inner.StartByte()))
		return w.tagDeclarator(pt, inner)
	}
	return nil, ""
}

func nullabilityIn(text string) foreign.Nullability {
	for _, word := range strings.Fields(text) {
		if n, ok := frontends.ParseNullability(word); ok {
			return n
		}
	}
	return foreign.NullUnspecified
}

// defineInline defines the tag of a specifier with a body and returns it.
func (w *walker) defineInline(spec *sitter.Node, winStart uint) *foreign.Decl {
	if spec.ChildByFieldName("body") == nil {
		return nil
	}
	switch spec.Kind() {
	case "enum_specifier":
		return w.enum(spec, winStart)
	case "struct_specifier", "union_specifier":
		return w.record(spec, winStart)
	}
	return nil
}

func (w *walker) record(n *sitter.Node, winStart uint) *foreign.Decl {
	name := w.fieldText(n, "name")
	body := n.ChildByFieldName("body")
	m := w.unit.Module
	if body == nil {
		if name == "" {
			return nil
		}
		return w.ctx.DeclareTag(m, foreign.KindRecord, name)
	}
	if existing := w.ctx.LookupTag(name); name != "" && existing != nil && !existing.Forward {
		return existing
	}
	rec := w.ctx.DefineTag(m, foreign.KindRecord, name)
	rec.Union = n.Kind() == "union_specifier"
	w.locate(rec, n)
	frontends.ApplyAttributes(&rec.Attrs, w.text(w.src.orig, winStart, body.StartByte()))

	for i := range body.NamedChildCount() {
		f := body.NamedChild(i)
		if f == nil || f.Kind() != "field_declaration" {
			continue
		}
		w.fields(rec, f)
	}
	w.trailing(&rec.Attrs, n.EndByte())
	return rec
}

// trailing applies annotations between the end of a tag definition and the
// semicolon closing it, as in "} NS_SWIFT_NAME(Mode);".
func (w *walker) trailing(attrs *foreign.Attrs, end uint) {
	i := int(end)
	for i < len(w.src.tree) && (w.src.tree[i] == ' ' || w.src.tree[i] == '\t' || w.src.tree[i] == '\n' || w.src.tree[i] == '\r') {
		i++
	}
	if i >= len(w.src.tree) || w.src.tree[i] != ';' {
		return
	}
	frontends.ApplyAttributes(attrs, w.text(w.src.orig, end, uint(i)))
	w.consumed = uint(i + 1)
}

func (w *walker) fields(rec *foreign.Decl, f *sitter.Node) {
	typeNode := f.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	var base *foreign.Type
	prefix := w.text(w.src.types, f.StartByte(), typeNode.EndByte())
	if tag := w.defineInline(typeNode, typeNode.StartByte()); tag != nil {
		base = foreign.TagType(tag)
	}
	cursor := f.Walk()
	defer cursor.Close()
	for _, d := range f.ChildrenByFieldName("declarator", cursor) {
		d := d
		var t *foreign.Type
		var name string
		if base != nil {
			t, name = w.tagDeclarator(base, &d)
		} else {
			var err error
			t, name, err = w.types.ParseDecl(prefix + " " + w.text(w.src.types, d.StartByte(), d.EndByte()))
			if err != nil {
				w.failed++
				continue
			}
		}
		if name == "" {
			continue
		}
		field := &foreign.Decl{Kind: foreign.KindField, Name: name, Type: t}
		w.locate(field, f)
		w.ctx.AddMember(rec, field)
	}
}

func (w *walker) enum(n *sitter.Node, winStart uint) *foreign.Decl {
	name := w.fieldText(n, "name")
	body := n.ChildByFieldName("body")
	m := w.unit.Module
	if body == nil {
		if name == "" {
			return nil
		}
		return w.ctx.DeclareTag(m, foreign.KindEnum, name)
	}
	if existing := w.ctx.LookupTag(name); name != "" && existing != nil && !existing.Forward {
		return existing
	}
	e := w.ctx.DefineTag(m, foreign.KindEnum, name)
	w.locate(e, n)
	frontends.ApplyAttributes(&e.Attrs, w.text(w.src.orig, winStart, body.StartByte()))
	info := w.src.enums[name]
	e.Attrs.EnumMacro = info.macro

	var enumerators []*sitter.Node
	for i := range body.NamedChildCount() {
		if c := body.NamedChild(i); c != nil && c.Kind() == "enumerator" {
			enumerators = append(enumerators, c)
		}
	}
	values := make(map[string]int64)
	var next int64
	negative := false
	for i, c := range enumerators {
		cname := w.fieldText(c, "name")
		v := next
		if val := c.ChildByFieldName("value"); val != nil {
			if x, ok := w.eval(val, values); ok {
				v = x
			} else {
				log.Printf("[c-frontend] %s: cannot evaluate %s", w.unit.File, cname)
			}
		}
		values[cname] = v
		next = v + 1
		negative = negative || v < 0

		end := body.EndByte()
		if i+1 < len(enumerators) {
			end = enumerators[i+1].StartByte()
		}
		k := &foreign.Decl{Kind: foreign.KindEnumConstant, Name: cname, Value: v}
		w.locate(k, c)
		frontends.ApplyAttributes(&k.Attrs, w.text(w.src.orig, c.StartByte(), end))
		w.ctx.AddMember(e, k)
	}

	w.trailing(&e.Attrs, n.EndByte())

	switch {
	case info.underlying != "":
		t, err := w.types.Parse(info.underlying)
		if err != nil {
			t = foreign.Builtin("int")
		}
		e.Type = t
	case negative:
		e.Type = foreign.Builtin("int")
	default:
		e.Type = foreign.Builtin("unsigned int")
	}
	return e
}

func (w *walker) eval(n *sitter.Node, values map[string]int64) (int64, bool) {
	switch n.Kind() {
	case "number_literal":
		return parseInt(w.text(w.src.orig, n.StartByte(), n.EndByte()))
	case "char_literal":
		return parseChar(w.text(w.src.orig, n.StartByte(), n.EndByte()))
	case "identifier":
		name := w.text(w.src.orig, n.StartByte(), n.EndByte())
		if v, ok := values[name]; ok {
			return v, true
		}
		if d := w.ctx.LookupValue(name); d != nil && d.Kind == foreign.KindEnumConstant {
			return d.Value, true
		}
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return w.eval(n.NamedChild(0), values)
		}
	case "cast_expression":
		if v := n.ChildByFieldName("value"); v != nil {
			return w.eval(v, values)
		}
	case "unary_expression":
		op, arg := n.ChildByFieldName("operator"), n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return 0, false
		}
		x, ok := w.eval(arg, values)
		if !ok {
			return 0, false
		}
		switch op.Kind() {
		case "-":
			return -x, true
		case "+":
			return x, true
		case "~":
			return ^x, true
		case "!":
			if x == 0 {
				return 1, true
			}
			return 0, true
		}
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		l, r := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if op == nil || l == nil || r == nil {
			return 0, false
		}
		x, ok1 := w.eval(l, values)
		y, ok2 := w.eval(r, values)
		if !ok1 || !ok2 {
			return 0, false
		}
		return binary(op.Kind(), x, y)
	}
	return 0, false
}

func binary(op string, x, y int64) (int64, bool) {
	switch op {
	case "+":
		return x + y, true
	case "-":
		return x - y, true
	case "*":
		return x * y, true
	case "/":
		if y != 0 {
			return x / y, true
		}
	case "%":
		if y != 0 {
			return x % y, true
		}
	case "<<":
		return x << uint64(y), true
	case ">>":
		return x >> uint64(y), true
	case "|":
		return x | y, true
	case "&":
		return x & y, true
	case "^":
		return x ^ y, true
	}
	return 0, false
}

var intSuffix = regexp.MustCompile(`[uUlL]+$`)

func parseInt(text string) (int64, bool) {
	text = intSuffix.ReplaceAllString(strings.TrimSpace(text), "")
	if v, err := strconv.ParseInt(text, 0, 64); err == nil {
		return v, true
	}
	if v, err := strconv.ParseUint(text, 0, 64); err == nil {
		return int64(v), true
	}
	return 0, false
}

// parseChar evaluates character literals, including multi-character
// four-char codes such as 'abcd'.
func parseChar(text string) (int64, bool) {
	if len(text) < 3 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return 0, false
	}
	body := text[1 : len(text)-1]
	if strings.HasPrefix(body, "\\") {
		r, _, _, err := strconv.UnquoteChar(body, '\'')
		if err != nil {
			return 0, false
		}
		return int64(r), true
	}
	var v int64
	for i := 0; i < len(body); i++ {
		v = v<<8 | int64(body[i])
	}
	return v, true
}

var commentRe = regexp.MustCompile(`//.*$|/\*.*?\*/`)

func (w *walker) macro(n *sitter.Node) {
	nameNode, valueNode := n.ChildByFieldName("name"), n.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	name := w.text(w.src.orig, nameNode.StartByte(), nameNode.EndByte())
	if frontends.IsAttributeMacro(name) || w.ctx.Macro(name) != nil {
		return
	}
	value := strings.TrimSpace(commentRe.ReplaceAllString(w.text(w.src.orig, valueNode.StartByte(), valueNode.EndByte()), ""))
	if value == "" {
		return
	}
	d := &foreign.Decl{Kind: foreign.KindMacro, Name: name, MacroValue: value}
	w.locate(d, n)
	w.ctx.Add(w.unit.Module, d)
}

func (w *walker) locate(d *foreign.Decl, n *sitter.Node) {
	d.File = w.unit.File
	d.Line = int(n.StartPosition().Row) + 1
}

func (w *walker) fieldText(n *sitter.Node, field string) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return w.text(w.src.orig, c.StartByte(), c.EndByte())
}

func (w *walker) text(view []byte, start, end uint) string {
	if int(end) > len(view) {
		end = uint(len(view))
	}
	if start > end {
		return ""
	}
	return string(view[start:end])
}
