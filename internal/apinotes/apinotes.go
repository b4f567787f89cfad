// Package apinotes loads per-module API notes: YAML side files that override
// names, nullability, availability and initializer classification of foreign
// declarations without touching their headers.
package apinotes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/biyu6/swift/internal/foreign"
)

// Nullability is the one-letter nullability code used in API notes.
type Nullability string

const (
	NonNull     Nullability = "N"
	Nullable    Nullability = "O"
	Unspecified Nullability = "U"
	Scalar      Nullability = "S"
)

// Foreign converts the code to a foreign nullability.
func (n Nullability) Foreign() foreign.Nullability {
	switch n {
	case NonNull:
		return foreign.NullNonNull
	case Nullable:
		return foreign.NullNullable
	}
	return foreign.NullUnspecified
}

// Common holds the fields every entry may carry.
type Common struct {
	Name            string `yaml:"Name"`
	SwiftName       string `yaml:"SwiftName,omitempty"`
	Availability    string `yaml:"Availability,omitempty"`
	AvailabilityMsg string `yaml:"AvailabilityMsg,omitempty"`
	SwiftPrivate    bool   `yaml:"SwiftPrivate,omitempty"`
}

// Unavailable reports whether the entry hides the declaration from the host.
func (c Common) Unavailable() bool {
	return c.Availability == "nonswift" || c.Availability == "none"
}

// Method overrides one Objective-C method.
type Method struct {
	Common           `yaml:",inline"`
	Selector         string        `yaml:"Selector"`
	MethodKind       string        `yaml:"MethodKind"`
	DesignatedInit   bool          `yaml:"DesignatedInit,omitempty"`
	Required         bool          `yaml:"Required,omitempty"`
	FactoryAsInit    string        `yaml:"FactoryAsInit,omitempty"`
	Nullability      []Nullability `yaml:"Nullability,omitempty"`
	NullabilityOfRet Nullability   `yaml:"NullabilityOfRet,omitempty"`
	ErrorParam       *int          `yaml:"ErrorParam,omitempty"`
}

// Instance reports whether the entry targets an instance method.
func (m *Method) Instance() bool {
	return !strings.EqualFold(m.MethodKind, "Class")
}

// Property overrides one Objective-C property.
type Property struct {
	Common       `yaml:",inline"`
	PropertyKind string      `yaml:"PropertyKind,omitempty"`
	Nullability  Nullability `yaml:"Nullability,omitempty"`
}

// Instance reports whether the entry targets an instance property.
func (p *Property) Instance() bool {
	return !strings.EqualFold(p.PropertyKind, "Class")
}

// Container overrides a class or protocol and its members.
type Container struct {
	Common     `yaml:",inline"`
	Methods    []*Method   `yaml:"Methods,omitempty"`
	Properties []*Property `yaml:"Properties,omitempty"`
}

// Function overrides a C function.
type Function struct {
	Common           `yaml:",inline"`
	Nullability      []Nullability `yaml:"Nullability,omitempty"`
	NullabilityOfRet Nullability   `yaml:"NullabilityOfRet,omitempty"`
}

// Global overrides a global variable.
type Global struct {
	Common      `yaml:",inline"`
	Nullability Nullability `yaml:"Nullability,omitempty"`
	Mutable     *bool       `yaml:"Mutable,omitempty"`
}

// Tag overrides an enum, struct or union.
type Tag struct {
	Common   `yaml:",inline"`
	EnumKind string `yaml:"EnumKind,omitempty"`
}

// Notes is the content of one module's API notes file.
type Notes struct {
	Name        string       `yaml:"Name"`
	Classes     []*Container `yaml:"Classes,omitempty"`
	Protocols   []*Container `yaml:"Protocols,omitempty"`
	Functions   []*Function  `yaml:"Functions,omitempty"`
	Globals     []*Global    `yaml:"Globals,omitempty"`
	Enumerators []*Common    `yaml:"Enumerators,omitempty"`
	Tags        []*Tag       `yaml:"Tags,omitempty"`
	Typedefs    []*Common    `yaml:"Typedefs,omitempty"`
}

// Extension is the file extension of API notes side files.
const Extension = ".apinotes"

type memberKey struct {
	container string
	name      string
	instance  bool
}

type moduleIndex struct {
	classes     map[string]*Container
	protocols   map[string]*Container
	methods     map[memberKey]*Method
	properties  map[memberKey]*Property
	functions   map[string]*Function
	globals     map[string]*Global
	enumerators map[string]*Common
	tags        map[string]*Tag
	typedefs    map[string]*Common
}

// Store indexes API notes by (module, container, member).
type Store struct {
	modules map[string]*moduleIndex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{modules: make(map[string]*moduleIndex)}
}

// Parse decodes API notes. defaultName is used when the file has no Name.
func Parse(data []byte, defaultName string) (*Notes, error) {
	var n Notes
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing api notes: %w", err)
	}
	if n.Name == "" {
		n.Name = defaultName
	}
	if n.Name == "" {
		return nil, fmt.Errorf("api notes have no module name")
	}
	return &n, nil
}

// LoadFile reads an API notes file and adds it to the store. The module
// name defaults to the file's base name.
func (s *Store) LoadFile(path string) (*Notes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading api notes %s: %w", path, err)
	}
	n, err := Parse(data, strings.TrimSuffix(filepath.Base(path), Extension))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Add(n)
	return n, nil
}

// Add indexes n, replacing any previous notes for the same module.
func (s *Store) Add(n *Notes) {
	idx := &moduleIndex{
		classes:     make(map[string]*Container),
		protocols:   make(map[string]*Container),
		methods:     make(map[memberKey]*Method),
		properties:  make(map[memberKey]*Property),
		functions:   make(map[string]*Function),
		globals:     make(map[string]*Global),
		enumerators: make(map[string]*Common),
		tags:        make(map[string]*Tag),
		typedefs:    make(map[string]*Common),
	}
	addContainers := func(dst map[string]*Container, list []*Container) {
		for _, c := range list {
			dst[c.Name] = c
			for _, m := range c.Methods {
				idx.methods[memberKey{c.Name, m.Selector, m.Instance()}] = m
			}
			for _, p := range c.Properties {
				idx.properties[memberKey{c.Name, p.Name, p.Instance()}] = p
			}
		}
	}
	addContainers(idx.classes, n.Classes)
	addContainers(idx.protocols, n.Protocols)
	for _, f := range n.Functions {
		idx.functions[f.Name] = f
	}
	for _, g := range n.Globals {
		idx.globals[g.Name] = g
	}
	for _, e := range n.Enumerators {
		idx.enumerators[e.Name] = e
	}
	for _, t := range n.Tags {
		idx.tags[t.Name] = t
	}
	for _, t := range n.Typedefs {
		idx.typedefs[t.Name] = t
	}
	s.modules[n.Name] = idx
}

// Modules returns the names of modules with notes, sorted.
func (s *Store) Modules() []string {
	out := make([]string, 0, len(s.modules))
	for name := range s.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Class returns the entry for a class.
func (s *Store) Class(module, name string) *Container {
	if idx := s.modules[module]; idx != nil {
		return idx.classes[name]
	}
	return nil
}

// Protocol returns the entry for a protocol.
func (s *Store) Protocol(module, name string) *Container {
	if idx := s.modules[module]; idx != nil {
		return idx.protocols[name]
	}
	return nil
}

// Method returns the entry for a method of container.
func (s *Store) Method(module, container, selector string, instance bool) *Method {
	if idx := s.modules[module]; idx != nil {
		return idx.methods[memberKey{container, selector, instance}]
	}
	return nil
}

// Property returns the entry for a property of container.
func (s *Store) Property(module, container, name string, instance bool) *Property {
	if idx := s.modules[module]; idx != nil {
		return idx.properties[memberKey{container, name, instance}]
	}
	return nil
}

// Function returns the entry for a C function.
func (s *Store) Function(module, name string) *Function {
	if idx := s.modules[module]; idx != nil {
		return idx.functions[name]
	}
	return nil
}

// Global returns the entry for a global variable.
func (s *Store) Global(module, name string) *Global {
	if idx := s.modules[module]; idx != nil {
		return idx.globals[name]
	}
	return nil
}

// Enumerator returns the entry for an enum constant.
func (s *Store) Enumerator(module, name string) *Common {
	if idx := s.modules[module]; idx != nil {
		return idx.enumerators[name]
	}
	return nil
}

// Tag returns the entry for an enum, struct or union.
func (s *Store) Tag(module, name string) *Tag {
	if idx := s.modules[module]; idx != nil {
		return idx.tags[name]
	}
	return nil
}

// Typedef returns the entry for a typedef.
func (s *Store) Typedef(module, name string) *Common {
	if idx := s.modules[module]; idx != nil {
		return idx.typedefs[name]
	}
	return nil
}
