// Package snapshot holds the result of one import run: what was parsed,
// what the diagnostics found and the rendered artifacts.
package snapshot

import (
	"github.com/google/uuid"

	"github.com/biyu6/swift/internal/importer"
)

// ModuleSummary describes one foreign module and what was imported from it.
type ModuleSummary struct {
	Name     string   `json:"name"`
	Dir      string   `json:"dir,omitempty"`
	Bridging bool     `json:"bridging,omitempty"`
	Headers  []string `json:"headers,omitempty"`
	Imports  []string `json:"imports,omitempty"`
	// Foreign counts top-level foreign declarations, Imported the host
	// declarations announced for the module.
	Foreign  int  `json:"foreign_decls"`
	Macros   int  `json:"macros"`
	Imported int  `json:"imported_decls"`
	Notes    bool `json:"api_notes,omitempty"`
}

// Insight is a finding produced by a diagnostic.
type Insight struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"` // 0.0 - 1.0
	Evidence    []Evidence `json:"evidence"`
	Actions     []string   `json:"suggested_actions,omitempty"`
}

// Evidence links an insight back to a module, file or declaration.
type Evidence struct {
	Module string `json:"module,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Decl   string `json:"decl,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Artifact is a generated output file.
type Artifact struct {
	Name    string `json:"name"` // e.g. "Kit.interface"
	Content []byte `json:"-"`
	Type    string `json:"type"` // MIME type hint
}

// Snapshot holds the complete result of an import run.
type Snapshot struct {
	Meta      Meta            `json:"meta"`
	Modules   []ModuleSummary `json:"modules"`
	Insights  []Insight       `json:"insights"`
	Artifacts []Artifact      `json:"artifacts"`
}

// Meta contains metadata about a snapshot generation run.
type Meta struct {
	ID           string         `json:"id"`
	Root         string         `json:"root"`
	GeneratedAt  string         `json:"generated_at"`
	Duration     string         `json:"duration"`
	Generation   uint64         `json:"generation"`
	Frontends    []string       `json:"frontends"`
	Diagnostics  []string       `json:"diagnostics"`
	Renderers    []string       `json:"renderers"`
	FileHashes   []FileHash     `json:"file_hashes,omitempty"`
	ModuleCount  int            `json:"module_count"`
	InsightCount int            `json:"insight_count"`
	Stats        importer.Stats `json:"stats"`
}

// FileHash tracks a header's content hash for incremental refreshes.
type FileHash struct {
	Path    string `json:"path"`
	Module  string `json:"module"`
	Hash    string `json:"hash"`
	ModTime string `json:"mod_time"`
}

// NewID returns a fresh snapshot identifier.
func NewID() string {
	return uuid.NewString()
}

// Module returns the summary with the given name, or nil.
func (s *Snapshot) Module(name string) *ModuleSummary {
	for i := range s.Modules {
		if s.Modules[i].Name == name {
			return &s.Modules[i]
		}
	}
	return nil
}

// Artifact returns the artifact with the given name, or nil.
func (s *Snapshot) Artifact(name string) *Artifact {
	for i := range s.Artifacts {
		if s.Artifacts[i].Name == name {
			return &s.Artifacts[i]
		}
	}
	return nil
}

// Hashes returns the recorded header hashes keyed by path.
func (m *Meta) Hashes() map[string]string {
	out := make(map[string]string, len(m.FileHashes))
	for _, fh := range m.FileHashes {
		out[fh.Path] = fh.Hash
	}
	return out
}
