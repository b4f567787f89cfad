// Package render turns an import session and its snapshot into output
// artifacts.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/snapshot"
)

// Renderer produces output artifacts from a snapshot.
type Renderer interface {
	// Name returns the renderer identifier (e.g. "interface").
	Name() string
	// Render produces artifacts from the snapshot and the session that
	// built it.
	Render(ctx context.Context, snap *snapshot.Snapshot, s *importer.Session) ([]snapshot.Artifact, error)
}

// Registry holds registered renderers.
type Registry struct {
	renderers []Renderer
}

// NewRegistry creates a new renderer registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a renderer to the registry.
func (r *Registry) Register(rnd Renderer) {
	r.renderers = append(r.renderers, rnd)
}

// Get returns the renderer with the given name, or nil if not found.
func (r *Registry) Get(name string) Renderer {
	for _, rnd := range r.renderers {
		if rnd.Name() == name {
			return rnd
		}
	}
	return nil
}

// All returns all registered renderers.
func (r *Registry) All() []Renderer {
	return r.renderers
}

// Section is one named block of rendered text.
type Section struct {
	Name    string
	Content string
}

// Budget joins sections in priority order within maxTokens, estimated at
// four characters per token. The first section that does not fit is cut
// at a line boundary; the ones after it are listed as omitted.
func Budget(header string, sections []Section, maxTokens int) string {
	maxChars := maxTokens * 4
	remaining := maxChars - len(header)

	var sb strings.Builder
	sb.WriteString(header)

	for i, sec := range sections {
		if sec.Content == "" {
			continue
		}
		if len(sec.Content) <= remaining {
			sb.WriteString(sec.Content)
			remaining -= len(sec.Content)
			continue
		}
		if remaining > 200 {
			cut := sec.Content[:remaining-100]
			if nl := strings.LastIndexByte(cut, '\n'); nl > 0 {
				cut = cut[:nl+1]
			}
			sb.WriteString(cut)
			fmt.Fprintf(&sb, "\n\n---\n*[Truncated in: %s]*\n", sec.Name)
			break
		}
		var omitted []string
		for _, s := range sections[i:] {
			if s.Content != "" {
				omitted = append(omitted, s.Name)
			}
		}
		fmt.Fprintf(&sb, "\n\n---\n*[Omitted: %s]*\n", strings.Join(omitted, ", "))
		break
	}
	return sb.String()
}
