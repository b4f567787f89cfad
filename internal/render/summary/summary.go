// Package summary renders a compact markdown overview of an import run.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/render"
	"github.com/biyu6/swift/internal/snapshot"
)

// SummaryRenderer produces clangimport.md.
type SummaryRenderer struct {
	maxTokens int
}

// New creates a SummaryRenderer with the given token budget.
func New(maxTokens int) *SummaryRenderer {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &SummaryRenderer{maxTokens: maxTokens}
}

func (r *SummaryRenderer) Name() string {
	return "summary"
}

// Render lists modules first, then findings, then session counters.
func (r *SummaryRenderer) Render(ctx context.Context, snap *snapshot.Snapshot, s *importer.Session) ([]snapshot.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sections := []render.Section{
		{Name: "Modules", Content: renderModules(snap)},
		{Name: "Findings", Content: renderFindings(snap)},
		{Name: "Session", Content: renderStats(s.Stats())},
		{Name: "Meta", Content: renderMeta(snap)},
	}
	content := render.Budget("# Import Summary\n\n", sections, r.maxTokens)
	return []snapshot.Artifact{
		{
			Name:    "clangimport.md",
			Content: []byte(content),
			Type:    "text/markdown",
		},
	}, nil
}

func renderModules(snap *snapshot.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("## Modules\n\n")
	if len(snap.Modules) == 0 {
		sb.WriteString("_No modules loaded._\n\n")
		return sb.String()
	}
	sb.WriteString("| Module | Headers | Foreign | Macros | Imported | API Notes |\n")
	sb.WriteString("|--------|---------|---------|--------|----------|-----------|\n")
	for _, m := range snap.Modules {
		name := "`" + m.Name + "`"
		if m.Bridging {
			name += " (bridging)"
		}
		notes := "no"
		if m.Notes {
			notes = "yes"
		}
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %s |\n",
			name, len(m.Headers), m.Foreign, m.Macros, m.Imported, notes)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderFindings(snap *snapshot.Snapshot) string {
	if len(snap.Insights) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Findings\n\n")
	for _, in := range snap.Insights {
		fmt.Fprintf(&sb, "- **%s** (confidence: %.0f%%): %s\n", in.Title, in.Confidence*100, in.Description)
		for _, ev := range in.Evidence {
			loc := ev.Module
			if ev.File != "" {
				loc = fmt.Sprintf("%s:%d", ev.File, ev.Line)
			}
			if ev.Decl != "" {
				fmt.Fprintf(&sb, "  - `%s` (%s): %s\n", ev.Decl, loc, ev.Detail)
			} else {
				fmt.Fprintf(&sb, "  - %s: %s\n", loc, ev.Detail)
			}
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderStats(st importer.Stats) string {
	var sb strings.Builder
	sb.WriteString("## Session\n\n")
	rows := []struct {
		label string
		value any
	}{
		{"Generation", st.Generation},
		{"Imported declarations", st.ImportedDecls},
		{"Announced declarations", st.Announced},
		{"Unrepresentable", st.Unrepresentable},
		{"Alternate declarations", st.Alternates},
		{"Mirrored protocol members", st.MirroredDecls},
		{"Extension rebuilds", st.ExtensionRebuilds},
		{"Visible-set rebuilds", st.VisibleRebuilds},
		{"Interned names", st.InternedNames},
	}
	for _, row := range rows {
		fmt.Fprintf(&sb, "- %s: %v\n", row.label, row.value)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderMeta(snap *snapshot.Snapshot) string {
	return fmt.Sprintf("---\n\n*Snapshot %s generated at %s in %s. %d modules, %d insights.*\n",
		snap.Meta.ID, snap.Meta.GeneratedAt, snap.Meta.Duration,
		snap.Meta.ModuleCount, snap.Meta.InsightCount)
}
