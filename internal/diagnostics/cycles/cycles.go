package cycles

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/snapshot"
)

// CycleDiagnostic detects cyclic imports between foreign modules using
// Tarjan's SCC algorithm.
type CycleDiagnostic struct{}

// New creates a new CycleDiagnostic.
func New() *CycleDiagnostic {
	return &CycleDiagnostic{}
}

func (d *CycleDiagnostic) Name() string {
	return "cycles"
}

// Diagnose builds the module import graph and reports every cycle in it.
func (d *CycleDiagnostic) Diagnose(ctx context.Context, s *importer.Session) ([]snapshot.Insight, error) {
	graph := buildImportGraph(s.Foreign().Modules())
	sccs := tarjanSCC(graph)

	var insights []snapshot.Insight
	for _, scc := range sccs {
		if len(scc) <= 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sort.Strings(scc)

		cyclePath := strings.Join(scc, " -> ") + " -> " + scc[0]
		evidence := make([]snapshot.Evidence, 0, len(scc))
		for _, mod := range scc {
			evidence = append(evidence, snapshot.Evidence{
				Module: mod,
				Detail: fmt.Sprintf("module %q is part of the cycle", mod),
			})
		}

		insights = append(insights, snapshot.Insight{
			Title:       fmt.Sprintf("Cyclic module import (%d modules)", len(scc)),
			Description: fmt.Sprintf("The following header modules import each other: %s. Declarations crossing the cycle may be seen before their module is registered.", cyclePath),
			Confidence:  1.0,
			Evidence:    evidence,
			Actions: []string{
				"Forward-declare the shared classes with @class instead of importing",
				"Move the shared declarations into a module both can import",
			},
		})
	}
	sort.Slice(insights, func(i, j int) bool { return insights[i].Description < insights[j].Description })

	return insights, nil
}

// buildImportGraph links each module to the known modules it imports.
// Imports of modules that were never parsed are dropped.
func buildImportGraph(modules []*foreign.Module) map[string][]string {
	graph := make(map[string][]string, len(modules))
	known := make(map[string]bool, len(modules))
	for _, m := range modules {
		known[m.Name] = true
		if _, ok := graph[m.Name]; !ok {
			graph[m.Name] = nil
		}
	}
	for _, m := range modules {
		for _, imp := range m.Imports {
			if imp == m.Name || !known[imp] {
				continue
			}
			graph[m.Name] = append(graph[m.Name], imp)
		}
	}
	return graph
}

// tarjanSCC implements Tarjan's strongly connected components algorithm.
func tarjanSCC(graph map[string][]string) [][]string {
	var (
		index    int
		stack    []string
		onStack  = make(map[string]bool)
		indices  = make(map[string]int)
		lowlinks = make(map[string]int)
		sccs     [][]string
	)

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		if lowlinks[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit in name order so results are stable across runs.
	vertices := make([]string, 0, len(graph))
	for v := range graph {
		vertices = append(vertices, v)
	}
	sort.Strings(vertices)
	for _, v := range vertices {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}

	return sccs
}
