package imports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/snapshot"
)

// ImportDiagnostic reports module imports that name no parsed module.
// Types declared in such modules resolve to forward declarations or fail
// to import.
type ImportDiagnostic struct {
	// system modules are expected to be absent and never reported.
	system map[string]bool
}

// New creates an ImportDiagnostic that ignores the given system modules.
func New(system ...string) *ImportDiagnostic {
	d := &ImportDiagnostic{system: make(map[string]bool, len(system))}
	for _, s := range system {
		d.system[s] = true
	}
	return d
}

func (d *ImportDiagnostic) Name() string {
	return "imports"
}

// Diagnose produces one insight per module with unresolved imports.
func (d *ImportDiagnostic) Diagnose(ctx context.Context, s *importer.Session) ([]snapshot.Insight, error) {
	modules := s.Foreign().Modules()
	known := make(map[string]bool, len(modules))
	for _, m := range modules {
		known[m.Name] = true
	}

	var insights []snapshot.Insight
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		missing := d.unresolved(m, known)
		if len(missing) == 0 {
			continue
		}

		evidence := make([]snapshot.Evidence, 0, len(missing))
		for _, imp := range missing {
			evidence = append(evidence, snapshot.Evidence{
				Module: m.Name,
				Detail: fmt.Sprintf("imports %q, which was not found under the header root", imp),
			})
		}
		insights = append(insights, snapshot.Insight{
			Title:       fmt.Sprintf("Unresolved imports in %s (%d)", m.Name, len(missing)),
			Description: fmt.Sprintf("Module %s imports %s. Declarations that depend on these modules import as forward declarations or are skipped.", m.Name, strings.Join(missing, ", ")),
			Confidence:  0.8,
			Evidence:    evidence,
			Actions: []string{
				"Add the imported module's headers under the header root",
				"List the module as a system module in the configuration if it is provided elsewhere",
			},
		})
	}
	return insights, nil
}

func (d *ImportDiagnostic) unresolved(m *foreign.Module, known map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, imp := range m.Imports {
		if known[imp] || d.system[imp] || seen[imp] {
			continue
		}
		seen[imp] = true
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}
