package foreign

import (
	"sort"
)

// Provider is the read-only view of the foreign AST the importer consumes.
type Provider interface {
	// ModuleOf returns the module that owns d.
	ModuleOf(d *Decl) *Module
	// Definition returns the completing declaration of a class, protocol or
	// tag, or nil when only a forward declaration has been seen.
	Definition(d *Decl) *Decl
	LookupTypedef(name string) *Decl
	LookupTag(name string) *Decl
	LookupClass(name string) *Decl
	LookupProtocol(name string) *Decl
	// Categories enumerates the categories extending class.
	Categories(class *Decl) []*Decl
	Macro(name string) *Decl
	Modules() []*Module
}

// Context owns every foreign declaration produced by the frontends and
// indexes them by namespace. It implements Provider.
type Context struct {
	modules    []*Module
	byName     map[string]*Module
	typedefs   map[string]*Decl
	tags       map[string]*Decl
	classes    map[string]*Decl
	protocols  map[string]*Decl
	values     map[string]*Decl
	macros     map[string]*Decl
	categories map[*Decl][]*Decl
}

var _ Provider = (*Context)(nil)

// NewContext creates a context holding the Foundation prelude.
func NewContext() *Context {
	c := NewEmptyContext()
	installPrelude(c)
	return c
}

// NewEmptyContext creates a context without the prelude.
func NewEmptyContext() *Context {
	return &Context{
		byName:     make(map[string]*Module),
		typedefs:   make(map[string]*Decl),
		tags:       make(map[string]*Decl),
		classes:    make(map[string]*Decl),
		protocols:  make(map[string]*Decl),
		values:     make(map[string]*Decl),
		macros:     make(map[string]*Decl),
		categories: make(map[*Decl][]*Decl),
	}
}

// Module returns the named module, creating it when absent.
func (c *Context) Module(name string) *Module {
	if m, ok := c.byName[name]; ok {
		return m
	}
	m := &Module{Name: name}
	c.byName[name] = m
	c.modules = append(c.modules, m)
	return m
}

// HasModule reports whether a module with this name exists.
func (c *Context) HasModule(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Add registers a top-level declaration of module m.
func (c *Context) Add(m *Module, d *Decl) {
	d.Module = m
	if d.Kind == KindMacro {
		m.Macros = append(m.Macros, d)
		c.macros[d.Name] = d
		return
	}
	m.Decls = append(m.Decls, d)
	c.index(d)
}

func (c *Context) index(d *Decl) {
	switch d.Kind {
	case KindTypedef:
		c.typedefs[d.Name] = d
	case KindEnum, KindRecord:
		if d.Name != "" {
			if prev, ok := c.tags[d.Name]; !ok || prev.Forward {
				c.tags[d.Name] = d
			}
		}
		if d.Kind == KindEnum {
			for _, e := range d.Members {
				c.values[e.Name] = e
			}
		}
	case KindClass:
		c.classes[d.Name] = d
	case KindProtocol:
		c.protocols[d.Name] = d
	case KindCategory:
		if d.Extended != nil {
			c.categories[d.Extended] = append(c.categories[d.Extended], d)
		}
	case KindFunction, KindVar:
		c.values[d.Name] = d
	}
}

// AddMember attaches a member to its container and shares the container's
// module.
func (c *Context) AddMember(parent, d *Decl) {
	d.Parent = parent
	d.Module = parent.Module
	parent.Members = append(parent.Members, d)
	if parent.Kind == KindEnum && d.Kind == KindEnumConstant {
		c.values[d.Name] = d
	}
}

// DeclareClass returns the class with this name, creating a forward
// declaration owned by m when it is unknown.
func (c *Context) DeclareClass(m *Module, name string) *Decl {
	if d, ok := c.classes[name]; ok {
		return d
	}
	d := &Decl{Kind: KindClass, Name: name, Forward: true, Module: m}
	c.classes[name] = d
	return d
}

// DefineClass completes the class with this name inside m.
func (c *Context) DefineClass(m *Module, name string) *Decl {
	d := c.DeclareClass(m, name)
	if d.Forward {
		d.Forward = false
		d.Module = m
		m.Decls = append(m.Decls, d)
	}
	return d
}

// DeclareProtocol returns the protocol with this name, creating a forward
// declaration when it is unknown.
func (c *Context) DeclareProtocol(m *Module, name string) *Decl {
	if d, ok := c.protocols[name]; ok {
		return d
	}
	d := &Decl{Kind: KindProtocol, Name: name, Forward: true, Module: m}
	c.protocols[name] = d
	return d
}

// DefineProtocol completes the protocol with this name inside m.
func (c *Context) DefineProtocol(m *Module, name string) *Decl {
	d := c.DeclareProtocol(m, name)
	if d.Forward {
		d.Forward = false
		d.Module = m
		m.Decls = append(m.Decls, d)
	}
	return d
}

// DeclareTag returns the tag with this name, creating a forward record or
// enum when it is unknown.
func (c *Context) DeclareTag(m *Module, kind DeclKind, name string) *Decl {
	if d, ok := c.tags[name]; ok {
		return d
	}
	d := &Decl{Kind: kind, Name: name, Forward: true, Module: m}
	c.tags[name] = d
	return d
}

// DefineTag completes the tag with this name inside m.
func (c *Context) DefineTag(m *Module, kind DeclKind, name string) *Decl {
	if name == "" {
		d := &Decl{Kind: kind, Anonymous: true}
		c.Add(m, d)
		return d
	}
	d := c.DeclareTag(m, kind, name)
	if d.Forward {
		d.Forward = false
		d.Kind = kind
		c.Add(m, d)
	}
	return d
}

// Reindex refreshes the value index for an enum whose constants were added
// after it was registered.
func (c *Context) Reindex(d *Decl) { c.index(d) }

// ModuleOf implements Provider.
func (c *Context) ModuleOf(d *Decl) *Module {
	for d != nil && d.Module == nil {
		d = d.Parent
	}
	if d == nil {
		return nil
	}
	return d.Module
}

// Definition implements Provider.
func (c *Context) Definition(d *Decl) *Decl {
	if d == nil || d.Forward {
		return nil
	}
	return d
}

// LookupTypedef implements Provider.
func (c *Context) LookupTypedef(name string) *Decl { return c.typedefs[name] }

// LookupTag implements Provider.
func (c *Context) LookupTag(name string) *Decl { return c.tags[name] }

// LookupClass implements Provider.
func (c *Context) LookupClass(name string) *Decl { return c.classes[name] }

// LookupProtocol implements Provider.
func (c *Context) LookupProtocol(name string) *Decl { return c.protocols[name] }

// LookupValue returns the function, variable or enumerator with this name.
func (c *Context) LookupValue(name string) *Decl { return c.values[name] }

// Categories implements Provider.
func (c *Context) Categories(class *Decl) []*Decl { return c.categories[class] }

// Macro implements Provider.
func (c *Context) Macro(name string) *Decl { return c.macros[name] }

// Modules implements Provider.
func (c *Context) Modules() []*Module { return c.modules }

// ModuleNames returns all module names, sorted.
func (c *Context) ModuleNames() []string {
	out := make([]string, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m.Name)
	}
	sort.Strings(out)
	return out
}
