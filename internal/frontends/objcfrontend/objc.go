// Package objcfrontend extracts Objective-C declarations from headers:
// classes, categories, protocols and their methods and properties.
package objcfrontend

import (
	"context"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/frontends"
)

// ObjCFrontend extracts Objective-C containers using a statement scanner
// over comment-free header text.
type ObjCFrontend struct{}

// New creates a new ObjCFrontend.
func New() *ObjCFrontend {
	return &ObjCFrontend{}
}

func (f *ObjCFrontend) Name() string {
	return "objc"
}

// Detect returns true for headers.
func (f *ObjCFrontend) Detect(file string) bool {
	return strings.ToLower(filepath.Ext(file)) == ".h"
}

var (
	directiveRe = regexp.MustCompile(`@(interface|implementation|protocol|class)\b`)
	classListRe = regexp.MustCompile(`@class\s+([^;]*);`)
	interfaceRe = regexp.MustCompile(`@interface\s+(\w+)`)
)

// Parse adds the Objective-C declarations of unit to its context. It runs
// after the C frontend so that enums and typedefs used in signatures are
// already known.
func (f *ObjCFrontend) Parse(ctx context.Context, unit *frontends.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := string(stripDirectives(stripComments(unit.Source)))
	if !strings.Contains(text, "@") {
		return nil
	}

	p := &parser{
		unit:    unit,
		ctx:     unit.Context,
		text:    text,
		types:   frontends.NewTypeParser(unit.Context, unit.Module),
		nonnull: nonnullRegions(text),
		lines:   lineStarts(text),
	}

	// Prescan class names so bare uses resolve before their @interface.
	for _, m := range classListRe.FindAllStringSubmatch(text, -1) {
		for _, name := range strings.Split(m[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				p.types.Classes[name] = true
			}
		}
	}
	for _, m := range interfaceRe.FindAllStringSubmatch(text, -1) {
		p.types.Classes[m[1]] = true
	}

	p.run()
	if p.failed > 0 {
		log.Printf("[objc-frontend] %s: skipped %d declarations", unit.File, p.failed)
	}
	return nil
}

type parser struct {
	unit    *frontends.Unit
	ctx     *foreign.Context
	text    string
	types   *frontends.TypeParser
	nonnull [][2]int
	lines   []int
	failed  int
}

func (p *parser) run() {
	prev := 0
	for pos := 0; pos < len(p.text); {
		loc := directiveRe.FindStringSubmatchIndex(p.text[pos:])
		if loc == nil {
			return
		}
		start := pos + loc[0]
		keyword := p.text[pos+loc[2] : pos+loc[3]]
		window := p.text[leadingStart(p.text, prev, start):start]
		c := &cursor{text: p.text, pos: pos + loc[1]}

		switch keyword {
		case "class":
			p.forwardClasses(c)
		case "implementation":
			c.pos = p.endOf(c.pos)
		case "protocol":
			p.protocol(c, start, window)
		case "interface":
			p.iface(c, start, window)
		}
		if c.pos <= start {
			c.pos = start + 1
		}
		pos, prev = c.pos, c.pos
	}
}

// endOf returns the offset just past the @end closing a container body
// that starts at pos.
func (p *parser) endOf(pos int) int {
	i := strings.Index(p.text[pos:], "@end")
	if i < 0 {
		return len(p.text)
	}
	return pos + i + len("@end")
}

func (p *parser) forwardClasses(c *cursor) {
	end := strings.IndexByte(p.text[c.pos:], ';')
	if end < 0 {
		c.pos = len(p.text)
		return
	}
	for _, name := range strings.Split(p.text[c.pos:c.pos+end], ",") {
		if name = strings.TrimSpace(stripAngles(name)); name != "" {
			p.ctx.DeclareClass(p.unit.Module, name)
		}
	}
	c.pos += end + 1
}

func (p *parser) protocol(c *cursor, start int, window string) {
	name := c.ident()
	if name == "" {
		p.failed++
		return
	}
	c.skipSpace()
	if c.peek() == ';' || c.peek() == ',' {
		// Forward declarations: @protocol A, B;
		end := strings.IndexByte(p.text[c.pos:], ';')
		if end < 0 {
			end = len(p.text) - c.pos
		}
		p.ctx.DeclareProtocol(p.unit.Module, name)
		for _, other := range strings.Split(p.text[c.pos:c.pos+end], ",") {
			if other = strings.TrimSpace(other); other != "" {
				p.ctx.DeclareProtocol(p.unit.Module, other)
			}
		}
		c.pos = min(c.pos+end+1, len(p.text))
		return
	}

	proto := p.ctx.LookupProtocol(name)
	if proto != nil && !proto.Forward {
		log.Printf("[objc-frontend] %s: protocol %s redeclared", p.unit.File, name)
		c.pos = p.endOf(c.pos)
		return
	}
	proto = p.ctx.DefineProtocol(p.unit.Module, name)
	p.locate(proto, start)
	frontends.ApplyAttributes(&proto.Attrs, window)
	proto.Protocols = p.protocolList(c)
	p.body(proto, c, nil)
}

func (p *parser) iface(c *cursor, start int, window string) {
	name := c.ident()
	if name == "" {
		p.failed++
		return
	}
	c.skipSpace()

	var typeParams []string
	if c.peek() == '<' {
		save := c.pos
		list := c.balanced('<', '>')
		c.skipSpace()
		if c.peek() == ':' || c.peek() == '(' {
			for _, tp := range strings.Split(list, ",") {
				fields := strings.Fields(tp)
				// "__covariant ObjectType"
				if len(fields) > 0 {
					typeParams = append(typeParams, fields[len(fields)-1])
				}
			}
		} else {
			c.pos = save
		}
	}

	c.skipSpace()
	if c.peek() == '(' {
		p.category(c, name, start, window, typeParams)
		return
	}

	cls := p.ctx.LookupClass(name)
	if cls != nil && !cls.Forward {
		log.Printf("[objc-frontend] %s: class %s redeclared", p.unit.File, name)
		c.pos = p.endOf(c.pos)
		return
	}
	cls = p.ctx.DefineClass(p.unit.Module, name)
	p.locate(cls, start)
	frontends.ApplyAttributes(&cls.Attrs, window)

	if c.peek() == ':' {
		c.pos++
		if super := c.ident(); super != "" {
			cls.Super = p.ctx.DeclareClass(p.unit.Module, super)
		}
		c.skipSpace()
		if c.peek() == '<' && cls.Super != nil {
			// Type arguments of the superclass, not protocols, when
			// followed by another protocol list.
			save := c.pos
			c.balanced('<', '>')
			c.skipSpace()
			if c.peek() != '<' {
				c.pos = save
			}
		}
	}
	cls.Protocols = p.protocolList(c)
	p.body(cls, c, typeParams)
}

func (p *parser) category(c *cursor, class string, start int, window string, typeParams []string) {
	catName := strings.TrimSpace(c.balanced('(', ')'))
	cat := &foreign.Decl{
		Kind:     foreign.KindCategory,
		Name:     catName,
		Extended: p.ctx.DeclareClass(p.unit.Module, class),
	}
	p.locate(cat, start)
	frontends.ApplyAttributes(&cat.Attrs, window)
	cat.Protocols = p.protocolList(c)
	p.ctx.Add(p.unit.Module, cat)
	p.body(cat, c, typeParams)
}

func (p *parser) protocolList(c *cursor) []*foreign.Decl {
	c.skipSpace()
	if c.peek() != '<' {
		return nil
	}
	var out []*foreign.Decl
	for _, name := range strings.Split(c.balanced('<', '>'), ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, p.ctx.DeclareProtocol(p.unit.Module, name))
		}
	}
	return out
}

// body reads container members up to @end.
func (p *parser) body(container *foreign.Decl, c *cursor, typeParams []string) {
	c.skipSpace()
	if c.peek() == '{' {
		c.balanced('{', '}')
	}
	end := strings.Index(p.text[c.pos:], "@end")
	if end < 0 {
		end = len(p.text) - c.pos
	}
	stop := c.pos + end

	var params *regexp.Regexp
	if len(typeParams) > 0 {
		params = regexp.MustCompile(`\b(` + strings.Join(typeParams, "|") + `)\b`)
	}

	optional := false
	for i := c.pos; i < stop; {
		i = skipSpace(p.text, i, stop)
		if i >= stop {
			break
		}
		switch {
		case strings.HasPrefix(p.text[i:], "@optional"):
			optional = true
			i += len("@optional")
			continue
		case strings.HasPrefix(p.text[i:], "@required"):
			optional = false
			i += len("@required")
			continue
		}
		j := statementEnd(p.text, i, stop)
		stmt := p.text[i:j]
		if params != nil {
			stmt = params.ReplaceAllString(stmt, "id")
		}
		p.member(container, stmt, i, optional)
		i = j + 1
	}
	p.synthesizeAccessors(container)
	c.pos = min(stop+len("@end"), len(p.text))
}

func (p *parser) member(container *foreign.Decl, stmt string, pos int, optional bool) {
	lead, rest := splitLeadingMacros(stmt)
	rest = strings.TrimSpace(rest)
	p.types.AssumeNonnull = inRegions(p.nonnull, pos)

	var d *foreign.Decl
	switch {
	case strings.HasPrefix(rest, "-"), strings.HasPrefix(rest, "+"):
		d = p.method(rest)
	case strings.HasPrefix(rest, "@property"):
		d = p.property(strings.TrimPrefix(rest, "@property"))
	default:
		return
	}
	if d == nil {
		p.failed++
		return
	}
	frontends.ApplyAttributes(&d.Attrs, lead)
	d.Optional = optional && container.Kind == foreign.KindProtocol
	p.locate(d, pos)
	p.ctx.AddMember(container, d)
}

// method parses "- (T)piece:(T)arg piece:(T)arg ATTRS".
func (p *parser) method(stmt string) *foreign.Decl {
	c := &cursor{text: stmt}
	instance := c.next() == '-'
	c.skipSpace()

	result := "id"
	if c.peek() == '(' {
		result = c.balanced('(', ')')
	}
	resultType, err := p.types.Parse(result)
	if err != nil {
		log.Printf("[objc-frontend] %s: %v", p.unit.File, err)
		return nil
	}

	var sel strings.Builder
	var params []*foreign.Decl
	variadic := false
	for {
		c.skipSpace()
		save := c.pos
		piece := c.ident()
		c.skipSpace()
		if c.peek() != ':' {
			if sel.Len() == 0 && piece != "" {
				sel.WriteString(piece)
			} else {
				c.pos = save
			}
			break
		}
		if piece != "" && frontends.IsAttributeMacro(piece) {
			c.pos = save
			break
		}
		c.pos++
		sel.WriteString(piece + ":")
		c.skipSpace()
		spelling := "id"
		if c.peek() == '(' {
			spelling = c.balanced('(', ')')
		}
		t, err := p.types.Parse(spelling)
		if err != nil {
			log.Printf("[objc-frontend] %s: %v", p.unit.File, err)
			return nil
		}
		name := c.ident()
		params = append(params, foreign.NewParam(name, t))

		c.skipSpace()
		if c.peek() == ',' {
			rest := strings.TrimSpace(stmt[c.pos+1:])
			if strings.HasPrefix(rest, "...") {
				variadic = true
				c.pos = strings.Index(stmt, "...") + len("...")
				break
			}
		}
	}
	if sel.Len() == 0 {
		return nil
	}
	m := foreign.NewMethod(sel.String(), instance, resultType, params...)
	m.Variadic = variadic
	frontends.ApplyAttributes(&m.Attrs, stmt[c.pos:])
	return m
}

// property parses "(attrs) T name ATTRS".
func (p *parser) property(stmt string) *foreign.Decl {
	c := &cursor{text: stmt}
	c.skipSpace()
	var attrs []string
	if c.peek() == '(' {
		for _, a := range strings.Split(c.balanced('(', ')'), ",") {
			attrs = append(attrs, strings.TrimSpace(a))
		}
	}

	decl := stmt[c.pos:]
	var trailing strings.Builder
	for _, m := range frontends.ScanMacros(decl) {
		trailing.WriteString(decl[m.Start:m.End])
		trailing.WriteByte(' ')
	}
	decl = blankMacros(decl)

	instance, readOnly := true, false
	var getter, setter, nullability string
	for _, a := range attrs {
		switch {
		case a == "class":
			instance = false
		case a == "readonly":
			readOnly = true
		case a == "readwrite":
			readOnly = false
		case strings.HasPrefix(a, "getter="):
			getter = strings.TrimSpace(strings.TrimPrefix(a, "getter="))
		case strings.HasPrefix(a, "setter="):
			setter = strings.TrimSpace(strings.TrimPrefix(a, "setter="))
		default:
			if _, ok := frontends.ParseNullability(a); ok {
				nullability = a
			}
		}
	}
	if nullability != "" {
		decl = nullability + " " + decl
	}
	t, name, err := p.types.ParseDecl(strings.TrimSpace(decl))
	if err != nil || name == "" {
		if err != nil {
			log.Printf("[objc-frontend] %s: %v", p.unit.File, err)
		}
		return nil
	}
	prop := foreign.NewProperty(name, t, instance)
	prop.ReadOnly = readOnly
	prop.Getter = getter
	prop.Setter = setter
	frontends.ApplyAttributes(&prop.Attrs, trailing.String())
	return prop
}

// synthesizeAccessors adds the implicit getter and setter methods of each
// property that the container does not declare explicitly.
func (p *parser) synthesizeAccessors(container *foreign.Decl) {
	var props []*foreign.Decl
	for _, m := range container.Members {
		if m.Kind == foreign.KindProperty {
			props = append(props, m)
		}
	}
	for _, prop := range props {
		getter := prop.Getter
		if getter == "" {
			getter = prop.Name
		}
		if container.Method(getter, prop.Instance) == nil {
			m := foreign.NewMethod(getter, prop.Instance, prop.Type)
			p.accessor(container, prop, m)
		}
		if prop.ReadOnly {
			continue
		}
		setter := prop.Setter
		if setter == "" {
			setter = "set" + strings.ToUpper(prop.Name[:1]) + prop.Name[1:] + ":"
		}
		if container.Method(setter, prop.Instance) == nil {
			m := foreign.NewMethod(setter, prop.Instance, foreign.Void(), foreign.NewParam(prop.Name, prop.Type))
			p.accessor(container, prop, m)
		}
	}
}

func (p *parser) accessor(container, prop, m *foreign.Decl) {
	m.Attrs = prop.Attrs
	m.Attrs.SwiftName = ""
	m.Optional = prop.Optional
	m.File, m.Line = prop.File, prop.Line
	p.ctx.AddMember(container, m)
}

func (p *parser) locate(d *foreign.Decl, pos int) {
	d.File = p.unit.File
	d.Line = sort.SearchInts(p.lines, pos+1)
}

// leadingStart finds where the annotations before a directive at pos
// begin: after the last statement or closing brace.
func leadingStart(text string, floor, pos int) int {
	for i := pos - 1; i >= floor; i-- {
		if text[i] == ';' || text[i] == '}' {
			return i + 1
		}
	}
	return floor
}

// statementEnd returns the offset of the semicolon ending the statement at
// i, ignoring semicolons nested in parentheses or braces.
func statementEnd(text string, i, stop int) int {
	depth := 0
	for ; i < stop; i++ {
		switch text[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		case ';':
			if depth <= 0 {
				return i
			}
		}
	}
	return stop
}

// splitLeadingMacros separates annotation macros written before a member.
func splitLeadingMacros(stmt string) (lead, rest string) {
	i := skipSpace(stmt, 0, len(stmt))
	for _, m := range frontends.ScanMacros(stmt) {
		if m.Start != i {
			break
		}
		i = skipSpace(stmt, m.End, len(stmt))
	}
	return stmt[:i], stmt[i:]
}

func blankMacros(s string) string {
	b := []byte(s)
	for _, m := range frontends.ScanMacros(s) {
		for i := m.Start; i < m.End; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func stripAngles(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		return s[:i]
	}
	return s
}

func skipSpace(text string, i, stop int) int {
	for i < stop && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i++
	}
	return i
}
