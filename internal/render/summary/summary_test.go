package summary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/snapshot"
)

func TestSummaryRenderer(t *testing.T) {
	snap := makeSnapshot()
	r := New(0)
	assert.Equal(t, "summary", r.Name())

	artifacts, err := r.Render(context.Background(), snap, newSession())
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "clangimport.md", artifacts[0].Name)
	assert.Equal(t, "text/markdown", artifacts[0].Type)

	content := string(artifacts[0].Content)
	tests := []struct {
		name string
		want string
	}{
		{"title", "# Import Summary"},
		{"module row", "| `Kit` | 2 | 14 | 3 | 11 | yes |"},
		{"bridging row", "`Bridging` (bridging)"},
		{"finding", "**Unresolved imports in Kit (1)** (confidence: 80%)"},
		{"evidence with location", "`KTLog` (KTKit.h:9): function: variadic"},
		{"evidence without location", "  - Kit: imports \"QuartzCore\""},
		{"stats", "- Generation: 1"},
		{"meta", "Snapshot 0b6c-test generated at 2026-01-01T00:00:00Z in 1s. 2 modules, 1 insights."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, content, tt.want)
		})
	}
}

func TestSummaryRendererEmpty(t *testing.T) {
	artifacts, err := New(0).Render(context.Background(), &snapshot.Snapshot{}, newSession())
	require.NoError(t, err)
	content := string(artifacts[0].Content)
	assert.Contains(t, content, "_No modules loaded._")
	assert.NotContains(t, content, "## Findings")
}

func TestSummaryRendererBudget(t *testing.T) {
	snap := makeSnapshot()
	for i := 0; i < 100; i++ {
		snap.Modules = append(snap.Modules, snapshot.ModuleSummary{Name: strings.Repeat("m", 40)})
	}
	artifacts, err := New(100).Render(context.Background(), snap, newSession())
	require.NoError(t, err)
	content := string(artifacts[0].Content)
	assert.Contains(t, content, "*[Truncated in: Modules]*")
	assert.Less(t, len(content), 100*4+100)
}

// --- helpers ---

func newSession() *importer.Session {
	return importer.NewSession(foreign.NewContext(), nil, nil, importer.DefaultOptions())
}

func makeSnapshot() *snapshot.Snapshot {
	insights := []snapshot.Insight{
		{
			Title:       "Unresolved imports in Kit (1)",
			Description: "Module Kit imports QuartzCore.",
			Confidence:  0.8,
			Evidence: []snapshot.Evidence{
				{Module: "Kit", Detail: `imports "QuartzCore", which was not found under the header root`},
				{Module: "Kit", File: "KTKit.h", Line: 9, Decl: "KTLog", Detail: "function: variadic"},
			},
		},
	}
	return &snapshot.Snapshot{
		Meta: snapshot.Meta{
			ID:           "0b6c-test",
			GeneratedAt:  "2026-01-01T00:00:00Z",
			Duration:     "1s",
			ModuleCount:  2,
			InsightCount: len(insights),
		},
		Modules: []snapshot.ModuleSummary{
			{Name: "Kit", Headers: []string{"Kit/KTKit.h", "Kit/KTView.h"}, Foreign: 14, Macros: 3, Imported: 11, Notes: true},
			{Name: "Bridging", Bridging: true},
		},
		Insights: insights,
	}
}
