// Package diagnostics inspects a finished import session and reports
// findings about the foreign modules it saw.
package diagnostics

import (
	"context"

	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/snapshot"
)

// Diagnostic analyzes an import session and produces insights.
type Diagnostic interface {
	// Name returns the diagnostic identifier (e.g. "cycles", "unavailable").
	Name() string
	// Diagnose inspects the session and returns insights.
	Diagnose(ctx context.Context, s *importer.Session) ([]snapshot.Insight, error)
}

// Registry holds registered diagnostics.
type Registry struct {
	diagnostics []Diagnostic
}

// NewRegistry creates a new diagnostic registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a diagnostic to the registry.
func (r *Registry) Register(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
}

// Get returns the diagnostic with the given name, or nil if not found.
func (r *Registry) Get(name string) Diagnostic {
	for _, d := range r.diagnostics {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// All returns all registered diagnostics.
func (r *Registry) All() []Diagnostic {
	return r.diagnostics
}
