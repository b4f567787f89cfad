// Package importer translates foreign C and Objective-C declarations into
// host declarations on demand. A Session owns every cache involved: the
// declaration identity map, generation-stamped extension lists, the enum
// constant table and the import coordinator.
package importer

import (
	"errors"
	"log"
	"sort"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/enums"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/lookup"
	"github.com/biyu6/swift/internal/names"
)

// ErrUnrepresentable reports a foreign construct with no host shape.
var ErrUnrepresentable = errors.New("unrepresentable")

// Options controls import policy.
type Options struct {
	// OmitNeedlessWords trims argument labels that restate their types.
	OmitNeedlessWords bool
	// InferDefaultArguments gives trailing nullable parameters a nil default
	// and option-set parameters an empty default.
	InferDefaultArguments bool
	// ImportForwardDeclarations imports @class and @protocol forward
	// declarations that never get a definition.
	ImportForwardDeclarations bool
	// CreateUnavailableStubs replaces unrepresentable declarations with
	// stubs marked unavailable.
	CreateUnavailableStubs bool
	// Platform selects which availability attributes apply.
	Platform string
	// DeploymentTarget is compared with obsoleted versions.
	DeploymentTarget string
	// DeprecatedAsUnavailable makes APIs deprecated at or before this
	// version unavailable. Empty disables the cut-off.
	DeprecatedAsUnavailable string
	Verbose                 bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		OmitNeedlessWords:      true,
		InferDefaultArguments:  true,
		CreateUnavailableStubs: true,
		Platform:               "macos",
		DeploymentTarget:       "13.0",
	}
}

// Skipped describes a declaration that could not be imported.
type Skipped struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// Stats summarizes session state.
type Stats struct {
	Generation         uint64 `json:"generation"`
	ImportedDecls      int    `json:"imported_decls"`
	Alternates         int    `json:"alternates"`
	MirroredDecls      int    `json:"mirrored_decls"`
	ExtensionRebuilds  int    `json:"extension_rebuilds"`
	VisibleRebuilds    int    `json:"visible_rebuilds"`
	OutstandingTickets int    `json:"outstanding_tickets"`
	ImportDepth        int    `json:"import_depth"`
	Drains             int    `json:"drains"`
	InternedNames      int    `json:"interned_names"`
	Unrepresentable    int    `json:"unrepresentable"`
	Announced          int    `json:"announced"`
}

type entryState int

const (
	stateInProgress entryState = iota
	stateComplete
)

// cacheEntry is the identity map slot of one foreign declaration. decl may
// be set while the entry is still in progress so that cycles see a shell.
type cacheEntry struct {
	state entryState
	decl  *hostast.Decl
}

type cachedExtensions struct {
	decls      []*hostast.Decl
	generation uint64
}

type visibleState int

const (
	visibleInvalid visibleState = iota
	visibleInProgress
	visibleValid
)

type mirrorKey struct {
	decl       *foreign.Decl
	context    *hostast.Decl
	forceClass bool
}

type nameKey struct {
	decl *foreign.Decl
	opts ImportNameOptions
}

type importedNameResult struct {
	name ImportedName
	ctx  *foreign.Decl
}

// Session imports declarations from one foreign world. It is not safe for
// concurrent use; callers serialize access to it.
type Session struct {
	foreign foreign.Provider
	notes   *apinotes.Store
	host    *hostast.Context
	opts    Options

	coord     *Coordinator
	enums     *enums.Classifier
	constants *enums.ConstantTable
	interner  *names.Interner
	tables    *lookup.Set

	imported     map[*foreign.Decl]*cacheEntry
	alternates   map[*hostast.Decl]*hostast.Decl
	mirrored     map[mirrorKey]*hostast.Decl
	classMethods map[*hostast.Decl]*hostast.Decl
	extensions   map[*hostast.Decl]*cachedExtensions
	nameCache    map[nameKey]importedNameResult
	stdlib       map[string]*hostast.Decl

	lazyDecls          []*foreign.Decl
	lazyIndex          map[*foreign.Decl]uint64
	loadedMembers      map[*hostast.Decl]bool
	loadedConformances map[*hostast.Decl][]*hostast.Conformance

	visible      []*hostast.Decl
	visibleState visibleState

	generation uint64
	skipped    []Skipped

	extensionRebuilds int
	visibleRebuilds   int
}

var _ hostast.LazyMemberLoader = (*Session)(nil)

// NewSession creates a session over provider. notes may be nil.
func NewSession(provider foreign.Provider, notes *apinotes.Store, host *hostast.Context, opts Options) *Session {
	if notes == nil {
		notes = apinotes.NewStore()
	}
	if host == nil {
		host = hostast.NewContext()
	}
	s := &Session{
		foreign:      provider,
		notes:        notes,
		host:         host,
		opts:         opts,
		enums:        enums.NewClassifier(notes),
		constants:    enums.NewConstantTable(),
		interner:     names.NewInterner(),
		tables:       lookup.NewSet(),
		imported:     make(map[*foreign.Decl]*cacheEntry),
		alternates:   make(map[*hostast.Decl]*hostast.Decl),
		mirrored:     make(map[mirrorKey]*hostast.Decl),
		classMethods: make(map[*hostast.Decl]*hostast.Decl),
		extensions:   make(map[*hostast.Decl]*cachedExtensions),
		nameCache:    make(map[nameKey]importedNameResult),
		stdlib:       make(map[string]*hostast.Decl),
		lazyIndex:    make(map[*foreign.Decl]uint64),
		generation:   1,

		loadedMembers:      make(map[*hostast.Decl]bool),
		loadedConformances: make(map[*hostast.Decl][]*hostast.Conformance),
	}
	s.coord = NewCoordinator(s.announce, s.completeConformance)
	return s
}

// Coordinator returns the session's import coordinator.
func (s *Session) Coordinator() *Coordinator { return s.coord }

// Host returns the host context declarations are announced to.
func (s *Session) Host() *hostast.Context { return s.host }

// Foreign returns the foreign AST provider.
func (s *Session) Foreign() foreign.Provider { return s.foreign }

// Notes returns the API notes store.
func (s *Session) Notes() *apinotes.Store { return s.notes }

// Tables returns the lookup tables.
func (s *Session) Tables() *lookup.Set { return s.tables }

// Enums returns the enum classifier.
func (s *Session) Enums() *enums.Classifier { return s.enums }

// Options returns the session options.
func (s *Session) Options() Options { return s.opts }

// Generation returns the current generation.
func (s *Session) Generation() uint64 { return s.generation }

// BumpGeneration records that new foreign modules became visible. Derived
// caches stamped with an older generation are rebuilt on next use and the
// visible-declaration cache is dropped; the identity map is kept.
func (s *Session) BumpGeneration() {
	s.generation++
	s.visible = nil
	s.visibleState = visibleInvalid
	s.host.BumpGeneration()
	log.Printf("[importer] generation bumped to %d", s.generation)
}

// Skipped returns the declarations that could not be imported, in the order
// they were found.
func (s *Session) Skipped() []Skipped {
	out := make([]Skipped, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Stats returns a summary of session state.
func (s *Session) Stats() Stats {
	imported := 0
	for _, e := range s.imported {
		if e.state == stateComplete && e.decl != nil {
			imported++
		}
	}
	return Stats{
		Generation:         s.generation,
		ImportedDecls:      imported,
		Alternates:         len(s.alternates),
		MirroredDecls:      len(s.mirrored),
		ExtensionRebuilds:  s.extensionRebuilds,
		VisibleRebuilds:    s.visibleRebuilds,
		OutstandingTickets: s.coord.OutstandingTickets(),
		ImportDepth:        s.coord.Depth(),
		Drains:             s.coord.drains,
		InternedNames:      s.interner.Len(),
		Unrepresentable:    len(s.skipped),
		Announced:          len(s.host.ExternalDecls()),
	}
}

// ImportedDecls returns every complete, non-nil identity map entry sorted
// by qualified name.
func (s *Session) ImportedDecls() []*hostast.Decl {
	var out []*hostast.Decl
	for _, e := range s.imported {
		if e.state == stateComplete && e.decl != nil {
			out = append(out, e.decl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out
}

func (s *Session) announce(d *hostast.Decl) {
	if s.host.IsAnnounced(d) {
		return
	}
	s.host.AddExternalDecl(d)
}

func (s *Session) moduleName(d *foreign.Decl) string {
	if m := s.foreign.ModuleOf(d); m != nil {
		if m.Bridging {
			return lookup.BridgingModule
		}
		return m.Name
	}
	return ""
}

// notesModule is the module API notes are keyed by; the bridging unit uses
// its own name.
func (s *Session) notesModule(d *foreign.Decl) string {
	if m := s.foreign.ModuleOf(d); m != nil {
		return m.Name
	}
	return ""
}

// lazyToken returns the context data handed to the host for d's lazy
// members.
func (s *Session) lazyToken(d *foreign.Decl) uint64 {
	if t, ok := s.lazyIndex[d]; ok {
		return t
	}
	t := uint64(len(s.lazyDecls))
	s.lazyDecls = append(s.lazyDecls, d)
	s.lazyIndex[d] = t
	return t
}

func (s *Session) lazyDecl(token uint64) *foreign.Decl {
	if token >= uint64(len(s.lazyDecls)) {
		panic("importer: unknown lazy member token")
	}
	return s.lazyDecls[token]
}

// stdlibProtocol returns a stand-in for a host standard-library protocol.
func (s *Session) stdlibProtocol(name string) *hostast.Decl {
	if p, ok := s.stdlib[name]; ok {
		return p
	}
	p := &hostast.Decl{Kind: hostast.KindProtocol, Name: names.SimpleName(name), Module: "Swift"}
	s.stdlib[name] = p
	return p
}

func (s *Session) skip(d *foreign.Decl, err error) {
	name := d.Name
	if d.Kind == foreign.KindMethod || d.Kind == foreign.KindProperty {
		if c := d.Container(); c != nil {
			name = c.Name + "." + name
		}
	}
	s.skipped = append(s.skipped, Skipped{
		Module: s.moduleName(d),
		Name:   name,
		Kind:   d.Kind.String(),
		Reason: err.Error(),
		File:   d.File,
		Line:   d.Line,
	})
	if s.opts.Verbose {
		log.Printf("[importer] skipping %s %s: %v", d.Kind, name, err)
	}
}
