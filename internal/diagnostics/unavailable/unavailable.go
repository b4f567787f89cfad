package unavailable

import (
	"context"
	"fmt"
	"sort"

	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/snapshot"
)

// UnavailableDiagnostic reports declarations the importer skipped and
// imported declarations that carry an unavailable attribute.
type UnavailableDiagnostic struct{}

// New creates a new UnavailableDiagnostic.
func New() *UnavailableDiagnostic {
	return &UnavailableDiagnostic{}
}

func (d *UnavailableDiagnostic) Name() string {
	return "unavailable"
}

// Diagnose groups both kinds of findings by module.
func (d *UnavailableDiagnostic) Diagnose(ctx context.Context, s *importer.Session) ([]snapshot.Insight, error) {
	var insights []snapshot.Insight

	skipped := make(map[string][]importer.Skipped)
	for _, sk := range s.Skipped() {
		skipped[sk.Module] = append(skipped[sk.Module], sk)
	}
	for _, mod := range sortedKeys(skipped) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list := skipped[mod]
		evidence := make([]snapshot.Evidence, 0, len(list))
		for _, sk := range list {
			evidence = append(evidence, snapshot.Evidence{
				Module: mod,
				File:   sk.File,
				Line:   sk.Line,
				Decl:   sk.Name,
				Detail: fmt.Sprintf("%s: %s", sk.Kind, sk.Reason),
			})
		}
		insights = append(insights, snapshot.Insight{
			Title:       fmt.Sprintf("Unrepresentable declarations in %s (%d)", mod, len(list)),
			Description: fmt.Sprintf("%d declarations in %s have no host equivalent and were skipped or replaced by unavailable stubs.", len(list), mod),
			Confidence:  1.0,
			Evidence:    evidence,
			Actions: []string{
				"Wrap the declaration in a representable helper function",
				"Hide it from import with an API notes entry",
			},
		})
	}

	marked := make(map[string][]*hostast.Decl)
	for _, hd := range s.ImportedDecls() {
		if hd.IsUnavailable() {
			mod := moduleOf(hd)
			marked[mod] = append(marked[mod], hd)
		}
	}
	for _, mod := range sortedKeys(marked) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list := marked[mod]
		evidence := make([]snapshot.Evidence, 0, len(list))
		for _, hd := range list {
			ev := snapshot.Evidence{
				Module: mod,
				Decl:   hd.QualifiedName(),
				Detail: hd.UnavailableMessage(),
			}
			if f := hd.Foreign; f != nil {
				ev.File = f.File
				ev.Line = f.Line
			}
			if ev.Detail == "" {
				ev.Detail = "marked unavailable"
			}
			evidence = append(evidence, ev)
		}
		insights = append(insights, snapshot.Insight{
			Title:       fmt.Sprintf("Unavailable API in %s (%d)", mod, len(list)),
			Description: fmt.Sprintf("%d imported declarations in %s are unavailable on this platform or deployment target.", len(list), mod),
			Confidence:  0.9,
			Evidence:    evidence,
		})
	}

	return insights, nil
}

// moduleOf walks to the outermost context, which carries the module name.
func moduleOf(d *hostast.Decl) string {
	for d.Context != nil && d.Module == "" {
		d = d.Context
	}
	return d.Module
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
