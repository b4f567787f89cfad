package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/config"
	"github.com/biyu6/swift/internal/diagnostics"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/frontends"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/lookup"
	"github.com/biyu6/swift/internal/render"
	"github.com/biyu6/swift/internal/snapshot"
)

// ErrNoSnapshot is returned when an operation needs a generated snapshot.
var ErrNoSnapshot = errors.New("no snapshot generated")

// BridgingModuleName names the module formed by headers at the root of the
// header tree.
const BridgingModuleName = "Bridging"

// Engine orchestrates the import pipeline. It owns the only importer
// session; every method takes the engine lock, so callers never touch the
// session concurrently.
type Engine struct {
	mu          sync.Mutex
	cfg         *config.Config
	frontends   *frontends.Registry
	diagnostics *diagnostics.Registry
	renderers   *render.Registry

	root     string
	foreign  *foreign.Context
	notes    *apinotes.Store
	session  *importer.Session
	modules  map[string]*moduleState // module name -> state
	hashes   map[string]string       // header -> sha256 of the loaded content
	snapshot *snapshot.Snapshot
	// prevHashes come from the snapshot.meta.json of an earlier run.
	prevHashes map[string]string
}

type moduleState struct {
	mod     *foreign.Module
	dir     string   // relative to root, "." for the bridging unit
	headers []string // relative to root
	notes   bool
}

// New creates a new Engine with the given config.
// Frontends, diagnostics, and renderers must be registered after creation.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("creating engine: nil config")
	}
	return &Engine{
		cfg:         cfg,
		frontends:   frontends.NewRegistry(),
		diagnostics: diagnostics.NewRegistry(),
		renderers:   render.NewRegistry(),
	}, nil
}

// RegisterFrontend adds a frontend. Frontends run in registration order.
func (e *Engine) RegisterFrontend(f frontends.Frontend) {
	e.frontends.Register(f)
}

// RegisterDiagnostic adds a diagnostic to the engine.
func (e *Engine) RegisterDiagnostic(d diagnostics.Diagnostic) {
	e.diagnostics.Register(d)
}

// RegisterRenderer adds a renderer to the engine.
func (e *Engine) RegisterRenderer(r render.Renderer) {
	e.renderers.Register(r)
}

// Config returns the engine config.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Root returns the absolute header root of the last run.
func (e *Engine) Root() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// Snapshot returns the last generated snapshot, or nil.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// WithSession runs fn with exclusive access to the importer session.
func (e *Engine) WithSession(fn func(s *importer.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ErrNoSnapshot
	}
	return fn(e.session)
}

// Modules returns the names of the loaded modules, sorted.
func (e *Engine) Modules() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.modules))
	for name := range e.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GenerateSnapshot runs the full pipeline over a fresh session:
// walk -> parse -> notes -> register -> import -> diagnose -> render.
func (e *Engine) GenerateSnapshot(ctx context.Context, root string) (*snapshot.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generate(ctx, root)
}

func (e *Engine) generate(ctx context.Context, root string) (*snapshot.Snapshot, error) {
	start := time.Now()

	if root == "" {
		root = e.cfg.Headers
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving header root: %w", err)
	}

	e.loadPreviousHashes(absRoot)

	headers, err := e.walkHeaders(absRoot, ".")
	if err != nil {
		return nil, fmt.Errorf("walking headers: %w", err)
	}
	log.Printf("[engine] found %d headers in %s", len(headers), absRoot)

	hashes := hashFiles(absRoot, headers)
	changed := 0
	for path, hash := range hashes {
		if e.prevHashes[path] != hash {
			changed++
		}
	}
	log.Printf("[engine] %d of %d headers changed since last run", changed, len(headers))

	prev := e.saveState()
	e.root = absRoot
	e.hashes = hashes
	e.foreign = foreign.NewContext()
	e.notes = apinotes.NewStore()
	e.session = importer.NewSession(e.foreign, e.notes, nil, e.cfg.ImporterOptions())
	e.modules = make(map[string]*moduleState)

	var states []*moduleState
	for _, group := range groupByDir(headers) {
		st, err := e.newModule(group.dir, group.headers)
		if err != nil {
			log.Printf("[engine] %v", err)
			continue
		}
		states = append(states, st)
	}

	usedFrontends, err := e.parse(ctx, states)
	if err != nil {
		e.restoreState(prev)
		return nil, fmt.Errorf("parsing headers: %w", err)
	}
	for _, st := range states {
		e.loadNotes(st)
		e.session.RegisterModule(st.mod)
	}
	e.importAll()

	snap, err := e.finish(ctx, start, usedFrontends)
	if err != nil {
		e.restoreState(prev)
		return nil, err
	}
	return snap, nil
}

// sessionState is the part of the engine a regeneration replaces. A failed
// run puts the previous one back so it keeps matching e.snapshot.
type sessionState struct {
	root    string
	hashes  map[string]string
	foreign *foreign.Context
	notes   *apinotes.Store
	session *importer.Session
	modules map[string]*moduleState
}

func (e *Engine) saveState() sessionState {
	return sessionState{
		root:    e.root,
		hashes:  e.hashes,
		foreign: e.foreign,
		notes:   e.notes,
		session: e.session,
		modules: e.modules,
	}
}

func (e *Engine) restoreState(st sessionState) {
	e.root = st.root
	e.hashes = st.hashes
	e.foreign = st.foreign
	e.notes = st.notes
	e.session = st.session
	e.modules = st.modules
}

// LoadModule parses the headers directly inside dir, relative to the header
// root, as a new module of the running session. Registering it bumps the
// session generation; the snapshot is rebuilt from the same session.
func (e *Engine) LoadModule(ctx context.Context, dir string) (*snapshot.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadModule(ctx, dir)
}

func (e *Engine) loadModule(ctx context.Context, dir string) (*snapshot.Snapshot, error) {
	if e.session == nil {
		return nil, ErrNoSnapshot
	}
	start := time.Now()

	dir = filepath.ToSlash(filepath.Clean(dir))
	if filepath.IsAbs(dir) {
		rel, err := filepath.Rel(e.root, dir)
		if err != nil {
			return nil, fmt.Errorf("loading module %s: %w", dir, err)
		}
		dir = filepath.ToSlash(rel)
	}
	if strings.HasPrefix(dir, "..") {
		return nil, fmt.Errorf("loading module %s: outside header root", dir)
	}

	headers, err := e.walkHeaders(e.root, dir)
	if err != nil {
		return nil, fmt.Errorf("loading module %s: %w", dir, err)
	}
	var direct []string
	for _, h := range headers {
		if filepath.ToSlash(filepath.Dir(h)) == dir {
			direct = append(direct, h)
		}
	}
	if len(direct) == 0 {
		return nil, fmt.Errorf("loading module %s: no headers", dir)
	}

	st, err := e.newModule(dir, direct)
	if err != nil {
		return nil, err
	}
	usedFrontends, err := e.parse(ctx, []*moduleState{st})
	if err != nil {
		delete(e.modules, st.mod.Name)
		return nil, fmt.Errorf("loading module %s: %w", dir, err)
	}
	for path, hash := range hashFiles(e.root, direct) {
		e.hashes[path] = hash
	}
	e.loadNotes(st)
	e.session.RegisterModule(st.mod)
	e.importAll()
	log.Printf("[engine] loaded module %s (%d headers), generation %d", st.mod.Name, len(direct), e.session.Generation())

	return e.finish(ctx, start, usedFrontends)
}

// Refresh brings the session up to date with the header tree. New module
// directories are loaded into the running session; any change to a header
// that was already parsed regenerates everything, since declarations cannot
// be withdrawn from a session. It reports whether anything changed.
func (e *Engine) Refresh(ctx context.Context) (*snapshot.Snapshot, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, false, ErrNoSnapshot
	}
	headers, err := e.walkHeaders(e.root, ".")
	if err != nil {
		return nil, false, fmt.Errorf("walking headers: %w", err)
	}
	current := hashFiles(e.root, headers)

	regenerate := len(current) < len(e.hashes)
	newDirs := make(map[string]bool)
	for path, hash := range current {
		prev, known := e.hashes[path]
		switch {
		case known && prev != hash:
			regenerate = true
		case !known:
			dir := filepath.ToSlash(filepath.Dir(path))
			if e.moduleForDir(dir) != nil {
				regenerate = true
			} else {
				newDirs[dir] = true
			}
		}
	}

	if regenerate {
		log.Printf("[engine] headers changed, regenerating")
		snap, err := e.generate(ctx, e.root)
		return snap, true, err
	}
	if len(newDirs) == 0 {
		return e.snapshot, false, nil
	}

	dirs := make([]string, 0, len(newDirs))
	for d := range newDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	snap := e.snapshot
	for _, d := range dirs {
		s, err := e.loadModule(ctx, d)
		if err != nil {
			log.Printf("[engine] refresh: %v", err)
			continue
		}
		snap = s
	}
	return snap, true, nil
}

func (e *Engine) moduleForDir(dir string) *moduleState {
	for _, st := range e.modules {
		if st.dir == dir {
			return st
		}
	}
	return nil
}

// newModule creates the foreign module for dir and records it.
func (e *Engine) newModule(dir string, headers []string) (*moduleState, error) {
	name := BridgingModuleName
	if dir != "." {
		name = filepath.Base(dir)
	}
	if prev, ok := e.modules[name]; ok {
		return nil, fmt.Errorf("module %s from %s already loaded from %s", name, dir, prev.dir)
	}
	m := e.foreign.Module(name)
	m.Dir = dir
	m.Bridging = dir == "."
	st := &moduleState{mod: m, dir: dir, headers: headers}
	e.modules[name] = st
	return st, nil
}

// parse runs every enabled frontend over every header it detects. Each
// frontend sees all modules before the next one starts, so later
// frontends can resolve types declared by earlier ones.
func (e *Engine) parse(ctx context.Context, states []*moduleState) ([]string, error) {
	var used []string
	for _, f := range e.frontends.All() {
		if !e.cfg.IsFrontendEnabled(f.Name()) {
			continue
		}
		parsed := 0
		for _, st := range states {
			for _, h := range st.headers {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if !f.Detect(h) {
					continue
				}
				src, err := os.ReadFile(filepath.Join(e.root, h))
				if err != nil {
					log.Printf("[engine] frontend %s: reading %s: %v", f.Name(), h, err)
					continue
				}
				unit := &frontends.Unit{Context: e.foreign, Module: st.mod, File: h, Source: src}
				if err := f.Parse(ctx, unit); err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					log.Printf("[engine] frontend %s: %s: %v", f.Name(), h, err)
					continue
				}
				parsed++
			}
		}
		used = append(used, f.Name())
		log.Printf("[engine] frontend %s: parsed %d headers", f.Name(), parsed)
	}
	return used, nil
}

// loadNotes reads <Module>.apinotes from the module directory if present.
func (e *Engine) loadNotes(st *moduleState) {
	path := filepath.Join(e.root, st.dir, st.mod.Name+apinotes.Extension)
	if _, err := os.Stat(path); err != nil {
		return
	}
	if _, err := e.notes.LoadFile(path); err != nil {
		log.Printf("[engine] api notes %s: %v", path, err)
		return
	}
	st.notes = true
	log.Printf("[engine] loaded api notes for %s", st.mod.Name)
}

// importAll imports every top-level and Objective-C member entry of every
// lookup table.
func (e *Engine) importAll() {
	visible := e.session.LookupVisibleDecls()
	members := e.session.LookupAllObjCMembers()
	log.Printf("[engine] imported %d top-level declarations and %d members", len(visible), len(members))
}

// finish runs diagnostics and renderers and stores the new snapshot.
func (e *Engine) finish(ctx context.Context, start time.Time, usedFrontends []string) (*snapshot.Snapshot, error) {
	insights, usedDiagnostics, err := e.runDiagnostics(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	log.Printf("[engine] produced %d insights using %d diagnostics", len(insights), len(usedDiagnostics))

	var fileHashes []snapshot.FileHash
	for path, hash := range e.hashes {
		fileHashes = append(fileHashes, snapshot.FileHash{
			Path:    path,
			Module:  e.moduleOfHeader(path),
			Hash:    hash,
			ModTime: fileModTime(filepath.Join(e.root, path)),
		})
	}
	sort.Slice(fileHashes, func(i, j int) bool { return fileHashes[i].Path < fileHashes[j].Path })

	modules := e.summaries()
	snap := &snapshot.Snapshot{
		Meta: snapshot.Meta{
			ID:           snapshot.NewID(),
			Root:         e.root,
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			Generation:   e.session.Generation(),
			Frontends:    usedFrontends,
			Diagnostics:  usedDiagnostics,
			Renderers:    []string{},
			FileHashes:   fileHashes,
			ModuleCount:  len(modules),
			InsightCount: len(insights),
		},
		Modules:  modules,
		Insights: insights,
	}

	usedRenderers, err := e.runRenderers(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	snap.Meta.Renderers = usedRenderers
	snap.Meta.Stats = e.session.Stats()
	duration := time.Since(start)
	snap.Meta.Duration = duration.String()
	log.Printf("[engine] produced %d artifacts using %d renderers", len(snap.Artifacts), len(usedRenderers))

	e.snapshot = snap
	log.Printf("[engine] snapshot generated in %s", duration)
	return snap, nil
}

func (e *Engine) moduleOfHeader(path string) string {
	dir := filepath.ToSlash(filepath.Dir(path))
	if st := e.moduleForDir(dir); st != nil {
		return st.mod.Name
	}
	return ""
}

func (e *Engine) summaries() []snapshot.ModuleSummary {
	imported := make(map[string]int)
	for _, m := range e.session.Host().Modules() {
		imported[m.Name] = len(m.Decls)
	}

	out := make([]snapshot.ModuleSummary, 0, len(e.modules))
	for _, st := range e.modules {
		hostName := st.mod.Name
		if st.mod.Bridging {
			hostName = lookup.BridgingModule
		}
		out = append(out, snapshot.ModuleSummary{
			Name:     st.mod.Name,
			Dir:      st.dir,
			Bridging: st.mod.Bridging,
			Headers:  st.headers,
			Imports:  st.mod.Imports,
			Foreign:  len(st.mod.Decls),
			Macros:   len(st.mod.Macros),
			Imported: imported[hostName],
			Notes:    st.notes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// runDiagnostics runs all enabled diagnostics.
func (e *Engine) runDiagnostics(ctx context.Context) ([]snapshot.Insight, []string, error) {
	var all []snapshot.Insight
	var usedNames []string

	for _, d := range e.diagnostics.All() {
		if !e.cfg.IsDiagnosticEnabled(d.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		log.Printf("[engine] running diagnostic: %s", d.Name())
		insights, err := d.Diagnose(ctx, e.session)
		if err != nil {
			log.Printf("[engine] diagnostic %s error: %v", d.Name(), err)
			continue
		}

		all = append(all, insights...)
		usedNames = append(usedNames, d.Name())
		log.Printf("[engine] diagnostic %s: produced %d insights", d.Name(), len(insights))
	}

	return all, usedNames, nil
}

// runRenderers runs all enabled renderers.
func (e *Engine) runRenderers(ctx context.Context, snap *snapshot.Snapshot) ([]string, error) {
	var usedNames []string

	for _, r := range e.renderers.All() {
		if !e.cfg.IsRendererEnabled(r.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Printf("[engine] running renderer: %s", r.Name())
		artifacts, err := r.Render(ctx, snap, e.session)
		if err != nil {
			log.Printf("[engine] renderer %s error: %v", r.Name(), err)
			continue
		}

		snap.Artifacts = append(snap.Artifacts, artifacts...)
		usedNames = append(usedNames, r.Name())
	}

	return usedNames, nil
}

// WriteArtifacts writes all snapshot artifacts to the output directory,
// including diagnostics.json and snapshot.meta.json. An empty root writes
// under the header root of the last run.
func (e *Engine) WriteArtifacts(root string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return ErrNoSnapshot
	}
	if root == "" {
		root = e.root
	}

	outDir := filepath.Join(root, e.cfg.Output.Dir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, a := range e.snapshot.Artifacts {
		path := filepath.Join(outDir, a.Name)
		if err := os.WriteFile(path, a.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.Name, err)
		}
		log.Printf("[engine] wrote %s (%d bytes)", path, len(a.Content))
	}

	for _, name := range []string{"diagnostics.json", "snapshot.meta.json"} {
		data, err := e.jsonArtifact(name)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("[engine] wrote %s (%d bytes)", path, len(data))
	}

	return nil
}

// GetArtifact returns the content of a named artifact, or of the generated
// diagnostics.json / snapshot.meta.json files.
func (e *Engine) GetArtifact(name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	switch name {
	case "diagnostics.json", "snapshot.meta.json":
		return e.jsonArtifact(name)
	}
	if a := e.snapshot.Artifact(name); a != nil {
		return a.Content, nil
	}
	return nil, fmt.Errorf("artifact %q not found", name)
}

func (e *Engine) jsonArtifact(name string) ([]byte, error) {
	var v any
	switch name {
	case "diagnostics.json":
		insights := e.snapshot.Insights
		if insights == nil {
			insights = []snapshot.Insight{}
		}
		v = insights
	case "snapshot.meta.json":
		v = e.snapshot.Meta
	default:
		return nil, fmt.Errorf("artifact %q not found", name)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", name, err)
	}
	return data, nil
}

// walkHeaders collects the headers under root/dir that some frontend
// handles, applying ignore patterns. Paths are relative to root.
func (e *Engine) walkHeaders(root, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if relPath != "." && e.isIgnored(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && len(e.frontends.ForFile(relPath)) > 0 {
			files = append(files, filepath.ToSlash(relPath))
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// isIgnored checks whether a path matches any ignore pattern.
func (e *Engine) isIgnored(relPath string, isDir bool) bool {
	// Normalize to forward slashes for matching
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range e.cfg.Ignore {
		// Handle directory-only patterns
		if strings.HasSuffix(pattern, "/**") {
			dirPrefix := strings.TrimSuffix(pattern, "/**")
			if relPath == dirPrefix || strings.HasPrefix(relPath, dirPrefix+"/") {
				return true
			}
		}

		// Standard glob match
		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}

		// Also try matching just the filename for patterns like **/*.h
		if strings.HasPrefix(pattern, "**/") {
			subPattern := strings.TrimPrefix(pattern, "**/")
			matched, err = filepath.Match(subPattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(subPattern, relPath)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

type headerGroup struct {
	dir     string
	headers []string
}

// groupByDir splits headers into one group per directory, sorted by
// directory. Each group becomes a module.
func groupByDir(headers []string) []headerGroup {
	byDir := make(map[string][]string)
	for _, h := range headers {
		dir := filepath.ToSlash(filepath.Dir(h))
		byDir[dir] = append(byDir[dir], h)
	}
	out := make([]headerGroup, 0, len(byDir))
	for dir, hs := range byDir {
		out = append(out, headerGroup{dir: dir, headers: hs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dir < out[j].dir })
	return out
}

// loadPreviousHashes reads header hashes from the previous snapshot.meta.json.
func (e *Engine) loadPreviousHashes(root string) {
	metaPath := filepath.Join(root, e.cfg.Output.Dir, "snapshot.meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		e.prevHashes = nil
		return
	}

	var meta snapshot.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		e.prevHashes = nil
		return
	}

	e.prevHashes = meta.Hashes()
	log.Printf("[engine] loaded %d header hashes from previous snapshot", len(e.prevHashes))
}

// hashFiles computes SHA-256 hashes of files relative to root. Unreadable
// files are left out.
func hashFiles(root string, files []string) map[string]string {
	hashes := make(map[string]string, len(files))
	for _, relFile := range files {
		data, err := os.ReadFile(filepath.Join(root, relFile))
		if err != nil {
			continue
		}
		h := sha256.Sum256(data)
		hashes[relFile] = hex.EncodeToString(h[:])
	}
	return hashes
}

// fileModTime returns the modification time of a file as an RFC3339 string.
func fileModTime(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return info.ModTime().UTC().Format(time.RFC3339)
}
