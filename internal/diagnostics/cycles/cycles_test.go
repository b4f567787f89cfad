package cycles

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/importer"
)

func TestTarjanSCC_KnownGraphs(t *testing.T) {
	tests := []struct {
		name           string
		graph          map[string][]string
		wantCycleSizes []int // sorted sizes of non-trivial SCCs
	}{
		{name: "empty graph", graph: map[string][]string{}},
		{name: "single node no edges", graph: map[string][]string{"A": nil}},
		{
			name:           "simple cycle A<->B",
			graph:          map[string][]string{"A": {"B"}, "B": {"A"}},
			wantCycleSizes: []int{2},
		},
		{
			name:           "triangle A->B->C->A",
			graph:          map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"A"}},
			wantCycleSizes: []int{3},
		},
		{
			name: "two disjoint cycles",
			graph: map[string][]string{
				"A": {"B"}, "B": {"A"},
				"C": {"D"}, "D": {"C"},
			},
			wantCycleSizes: []int{2, 2},
		},
		{
			name:  "chain no cycle A->B->C",
			graph: map[string][]string{"A": {"B"}, "B": {"C"}, "C": nil},
		},
		{
			name:           "cycle with tail",
			graph:          map[string][]string{"X": {"A"}, "A": {"B"}, "B": {"A"}},
			wantCycleSizes: []int{2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sizes []int
			for _, scc := range tarjanSCC(tt.graph) {
				if len(scc) > 1 {
					sizes = append(sizes, len(scc))
				}
			}
			sort.Ints(sizes)
			assert.Equal(t, tt.wantCycleSizes, sizes)
		})
	}
}

func TestTarjanSCC_EveryVertexOnce(t *testing.T) {
	graph := map[string][]string{"A": {"B"}, "B": {"C", "A"}, "C": {"D"}, "D": nil}
	seen := map[string]int{}
	for _, scc := range tarjanSCC(graph) {
		for _, v := range scc {
			seen[v]++
		}
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1}, seen)
}

func TestBuildImportGraph(t *testing.T) {
	ctx := foreign.NewEmptyContext()
	kit := ctx.Module("Kit")
	kit.Imports = []string{"Foundation", "Core", "Kit"}
	core := ctx.Module("Core")
	core.Imports = []string{"Kit"}

	graph := buildImportGraph(ctx.Modules())
	assert.Equal(t, []string{"Core"}, graph["Kit"], "unknown and self imports are dropped")
	assert.Equal(t, []string{"Kit"}, graph["Core"])
}

func TestCycleDiagnostic(t *testing.T) {
	ctx := foreign.NewContext()
	ctx.Module("Kit").Imports = []string{"Foundation", "Render"}
	ctx.Module("Render").Imports = []string{"Shapes"}
	ctx.Module("Shapes").Imports = []string{"Kit"}
	ctx.Module("Leaf").Imports = []string{"Foundation"}

	d := New()
	assert.Equal(t, "cycles", d.Name())

	insights, err := d.Diagnose(context.Background(), newSession(ctx))
	require.NoError(t, err)
	require.Len(t, insights, 1)

	in := insights[0]
	assert.Equal(t, "Cyclic module import (3 modules)", in.Title)
	assert.Contains(t, in.Description, "Kit -> Render -> Shapes -> Kit")
	assert.Equal(t, 1.0, in.Confidence)
	require.Len(t, in.Evidence, 3)
	assert.Equal(t, "Kit", in.Evidence[0].Module)
	assert.NotEmpty(t, in.Actions)
}

func TestCycleDiagnostic_NoCycles(t *testing.T) {
	ctx := foreign.NewContext()
	ctx.Module("Kit").Imports = []string{"Foundation"}

	insights, err := New().Diagnose(context.Background(), newSession(ctx))
	require.NoError(t, err)
	assert.Empty(t, insights)
}

// --- helpers ---

func newSession(ctx *foreign.Context) *importer.Session {
	return importer.NewSession(ctx, nil, nil, importer.DefaultOptions())
}
