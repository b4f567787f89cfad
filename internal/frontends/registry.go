// Package frontends defines the header frontends that populate the foreign
// declaration context, plus the type-spelling and attribute parsing they
// share.
package frontends

import (
	"context"

	"github.com/biyu6/swift/internal/foreign"
)

// Unit is one header handed to a frontend.
type Unit struct {
	Context *foreign.Context
	Module  *foreign.Module
	// File is the header path relative to the header root.
	File   string
	Source []byte
}

// Frontend parses headers of one dialect into the foreign context.
type Frontend interface {
	// Name returns the frontend identifier (e.g. "c", "objc").
	Name() string
	// Detect returns true if this frontend handles the given file.
	Detect(file string) bool
	// Parse adds the declarations of unit to unit.Context.
	Parse(ctx context.Context, unit *Unit) error
}

// Registry holds registered frontends in registration order. Order matters:
// a frontend may resolve names declared by an earlier one.
type Registry struct {
	frontends []Frontend
}

// NewRegistry creates a new frontend registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a frontend to the registry.
func (r *Registry) Register(f Frontend) {
	r.frontends = append(r.frontends, f)
}

// Get returns the frontend with the given name, or nil if not found.
func (r *Registry) Get(name string) Frontend {
	for _, f := range r.frontends {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// All returns all registered frontends.
func (r *Registry) All() []Frontend {
	return r.frontends
}

// ForFile returns the frontends that handle file.
func (r *Registry) ForFile(file string) []Frontend {
	var matched []Frontend
	for _, f := range r.frontends {
		if f.Detect(file) {
			matched = append(matched, f)
		}
	}
	return matched
}
