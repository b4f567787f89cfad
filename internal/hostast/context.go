package hostast

import "sort"

// Module collects the declarations announced for one imported module.
type Module struct {
	Name  string
	Decls []*Decl
}

// Context is the host AST context. The importer announces each declaration
// it produces exactly once through AddExternalDecl.
type Context struct {
	generation uint64
	modules    map[string]*Module
	external   []*Decl
	announced  map[*Decl]bool
}

// NewContext creates an empty host context at generation 1.
func NewContext() *Context {
	return &Context{
		generation: 1,
		modules:    make(map[string]*Module),
		announced:  make(map[*Decl]bool),
	}
}

// Generation returns the current generation.
func (c *Context) Generation() uint64 { return c.generation }

// BumpGeneration records that new foreign modules became visible.
func (c *Context) BumpGeneration() { c.generation++ }

// Module returns the named module, creating it when absent.
func (c *Context) Module(name string) *Module {
	if m, ok := c.modules[name]; ok {
		return m
	}
	m := &Module{Name: name}
	c.modules[name] = m
	return m
}

// Modules returns all modules sorted by name.
func (c *Context) Modules() []*Module {
	out := make([]*Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddExternalDecl announces a declaration. Top-level declarations join
// their module's list. Announcing the same declaration twice panics.
func (c *Context) AddExternalDecl(d *Decl) {
	if c.announced[d] {
		panic("hostast: declaration " + d.QualifiedName() + " announced twice")
	}
	c.announced[d] = true
	c.external = append(c.external, d)
	if d.Context == nil && d.Module != "" {
		m := c.Module(d.Module)
		m.Decls = append(m.Decls, d)
	}
}

// ExternalDecls returns every announced declaration in announcement order.
func (c *Context) ExternalDecls() []*Decl { return c.external }

// IsAnnounced reports whether d was announced.
func (c *Context) IsAnnounced(d *Decl) bool { return c.announced[d] }
