// Package iface renders the host interface of every imported module.
package iface

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/lookup"
	"github.com/biyu6/swift/internal/render"
	"github.com/biyu6/swift/internal/snapshot"
)

// InterfaceRenderer prints one <Module>.interface artifact per module.
type InterfaceRenderer struct {
	maxTokens int
}

// New creates an InterfaceRenderer with the given per-module token budget.
func New(maxTokens int) *InterfaceRenderer {
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	return &InterfaceRenderer{maxTokens: maxTokens}
}

func (r *InterfaceRenderer) Name() string {
	return "interface"
}

// Render imports everything visible, then prints each module's top-level
// declarations grouped by kind. Types come first because the other
// sections refer to them.
func (r *InterfaceRenderer) Render(ctx context.Context, snap *snapshot.Snapshot, s *importer.Session) ([]snapshot.Artifact, error) {
	s.LookupVisibleDecls()
	if err := Settle(ctx, s); err != nil {
		return nil, err
	}

	foreignModules := make(map[string]*foreign.Module)
	for _, m := range s.Foreign().Modules() {
		name := m.Name
		if m.Bridging {
			name = lookup.BridgingModule
		}
		foreignModules[name] = m
	}

	var artifacts []snapshot.Artifact
	for _, m := range s.Host().Modules() {
		if len(m.Decls) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header := fmt.Sprintf("// Module: %s\n", m.Name)
		if fm := foreignModules[m.Name]; fm != nil {
			for _, imp := range fm.Imports {
				header += "import " + imp + "\n"
			}
		}
		header += "\n"

		content := render.Budget(header, sections(m.Decls), r.maxTokens)
		artifacts = append(artifacts, snapshot.Artifact{
			Name:    m.Name + ".interface",
			Content: []byte(content),
			Type:    "text/x-swift",
		})
	}
	return artifacts, nil
}

// Settle loads members and class extensions until no new declarations are
// announced, so printing does not import anything.
func Settle(ctx context.Context, s *importer.Session) error {
	host := s.Host()
	for {
		before := len(host.ExternalDecls())
		for _, m := range host.Modules() {
			for i := 0; i < len(m.Decls); i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				settleDecl(s, m.Decls[i])
			}
		}
		if len(host.ExternalDecls()) == before {
			return nil
		}
	}
}

func settleDecl(s *importer.Session, d *hostast.Decl) {
	switch d.Kind {
	case hostast.KindClass:
		s.ClassExtensions(d)
	case hostast.KindStruct, hostast.KindEnum, hostast.KindProtocol, hostast.KindExtension:
	default:
		return
	}
	for _, m := range d.Members() {
		settleDecl(s, m)
	}
}

var sectionOrder = []struct {
	name  string
	kinds []hostast.DeclKind
}{
	{"Types", []hostast.DeclKind{hostast.KindClass, hostast.KindProtocol, hostast.KindStruct, hostast.KindEnum, hostast.KindTypeAlias}},
	{"Extensions", []hostast.DeclKind{hostast.KindExtension}},
	{"Functions", []hostast.DeclKind{hostast.KindFunc, hostast.KindConstructor}},
	{"Variables", []hostast.DeclKind{hostast.KindVar, hostast.KindSubscript}},
}

func sections(decls []*hostast.Decl) []render.Section {
	byKind := make(map[hostast.DeclKind][]*hostast.Decl)
	for _, d := range decls {
		byKind[d.Kind] = append(byKind[d.Kind], d)
	}

	out := make([]render.Section, 0, len(sectionOrder))
	for _, so := range sectionOrder {
		var list []*hostast.Decl
		for _, k := range so.kinds {
			list = append(list, byKind[k]...)
		}
		sort.SliceStable(list, func(i, j int) bool { return sortKey(list[i]) < sortKey(list[j]) })

		var sb strings.Builder
		for _, d := range list {
			sb.WriteString(hostast.Print(d))
			sb.WriteByte('\n')
		}
		out = append(out, render.Section{Name: so.name, Content: sb.String()})
	}
	return out
}

func sortKey(d *hostast.Decl) string {
	if d.Kind == hostast.KindExtension && d.Type != nil {
		return d.Type.String() + "\x00" + d.Name.Base
	}
	return d.Name.String()
}
