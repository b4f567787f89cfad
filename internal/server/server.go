package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/biyu6/swift/internal/config"
	"github.com/biyu6/swift/internal/engine"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/names"
)

// Server wraps the MCP server and connects it to the import engine.
type Server struct {
	mcp *mcp.Server
	eng *engine.Engine
	cfg *config.Config
}

// New creates a new MCP server wired to the given engine.
func New(eng *engine.Engine, cfg *config.Config) (*Server, error) {
	if eng == nil {
		return nil, errors.New("server requires an engine")
	}
	s := &Server{
		eng: eng,
		cfg: cfg,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "clangimport",
		Version: "0.1.0",
	}, nil)

	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// registerResources adds MCP resources for snapshot artifacts.
func (s *Server) registerResources() {
	s.addArtifactResource(&mcp.Resource{
		URI:         "import://snapshot/interface",
		Name:        "Imported Interface",
		Description: "Generated host interfaces of every loaded module",
		MIMEType:    "text/x-swift",
	}, s.interfaceText)

	s.addArtifactResource(&mcp.Resource{
		URI:         "import://snapshot/summary",
		Name:        "Import Summary",
		Description: "Markdown summary of modules, findings and session counters",
		MIMEType:    "text/markdown",
	}, func() ([]byte, error) { return s.eng.GetArtifact("clangimport.md") })

	s.addArtifactResource(&mcp.Resource{
		URI:         "import://snapshot/diagnostics",
		Name:        "Import Diagnostics",
		Description: "Findings of the import diagnostics",
		MIMEType:    "application/json",
	}, func() ([]byte, error) { return s.eng.GetArtifact("diagnostics.json") })

	s.addArtifactResource(&mcp.Resource{
		URI:         "import://snapshot/meta",
		Name:        "Snapshot Metadata",
		Description: "Metadata about the last import run",
		MIMEType:    "application/json",
	}, func() ([]byte, error) { return s.eng.GetArtifact("snapshot.meta.json") })
}

func (s *Server) addArtifactResource(r *mcp.Resource, read func() ([]byte, error)) {
	mime := r.MIMEType
	s.mcp.AddResource(r, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := read()
		if err != nil {
			return nil, fmt.Errorf("no snapshot available: %w (run generate_snapshot first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: mime},
			},
		}, nil
	})
}

// interfaceText concatenates every generated module interface.
func (s *Server) interfaceText() ([]byte, error) {
	snap := s.eng.Snapshot()
	if snap == nil {
		return nil, engine.ErrNoSnapshot
	}
	var parts []string
	for _, a := range snap.Artifacts {
		if strings.HasSuffix(a.Name, ".interface") {
			parts = append(parts, string(a.Content))
		}
	}
	if len(parts) == 0 {
		return nil, errors.New("no interface artifacts")
	}
	return []byte(strings.Join(parts, "\n")), nil
}

type generateSnapshotArgs struct {
	Root string `json:"root,omitempty" jsonschema:"Header root to import. Defaults to the configured headers directory."`
}

type loadModulesArgs struct {
	Dirs []string `json:"dirs,omitempty" jsonschema:"Module directories relative to the header root. When empty the root is rescanned for changes."`
}

type declArgs struct {
	Name string `json:"name" jsonschema:"Foreign declaration name. Use Class.selector for Objective-C members."`
	Kind string `json:"kind,omitempty" jsonschema:"Namespace to search: class, protocol, tag, typedef, value or macro"`
}

type lookupNameArgs struct {
	Name string `json:"name" jsonschema:"Host base name to look up across all loaded modules"`
}

type importSelectorArgs struct {
	Selector string `json:"selector" jsonschema:"Objective-C selector such as initWithFrame:style:"`
}

type exportSelectorArgs struct {
	Name            string `json:"name" jsonschema:"Host name such as init(frame:style:)"`
	AllowSimpleName bool   `json:"allow_simple_name,omitempty" jsonschema:"Accept a name without an argument list as a nullary selector"`
}

type classifyEnumArgs struct {
	Name string `json:"name" jsonschema:"Enum tag or typedef name"`
}

type sessionStatsArgs struct {
	Skipped bool `json:"skipped,omitempty" jsonschema:"Include the declarations that could not be represented"`
}

// registerTools adds MCP tools for import runs and session queries.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "generate_snapshot",
		Description: "Import every module under a header root. Parses C and Objective-C headers, imports all visible declarations, runs diagnostics and writes the generated interfaces.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args generateSnapshotArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.generateSnapshot(ctx, args.Root))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "load_modules",
		Description: "Load additional module directories into the current session, or pick up changed headers when no directory is given.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args loadModulesArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.loadModules(ctx, args.Dirs))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "import_decl",
		Description: "Import one foreign declaration and print its host form.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args declArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.importDecl(args.Name, args.Kind))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "import_name",
		Description: "Show the host name chosen for a foreign declaration, including initializer and error conventions.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args declArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.importName(args.Name, args.Kind))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "lookup_name",
		Description: "Look up a host base name in every module lookup table and print the declarations it resolves to.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args lookupNameArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.lookupName(args.Name))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "import_selector",
		Description: "Map an Objective-C selector to its host declaration name.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args importSelectorArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.importSelector(args.Selector))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "export_selector",
		Description: "Map a host declaration name back to an Objective-C selector.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args exportSelectorArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.exportSelector(args.Name, args.AllowSimpleName))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "classify_enum",
		Description: "Report how a C enum is imported: as an enum, an option set, or constants.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args classifyEnumArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.classifyEnum(args.Name))
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "session_stats",
		Description: "Report importer session counters as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args sessionStatsArgs) (*mcp.CallToolResult, any, error) {
		return textResult(s.sessionStats(args.Skipped))
	})
}

func (s *Server) generateSnapshot(ctx context.Context, root string) (string, error) {
	if root == "" && s.cfg != nil {
		root = s.cfg.Headers
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid header root: %w", err)
	}

	snap, err := s.eng.GenerateSnapshot(ctx, absRoot)
	if err != nil {
		return "", fmt.Errorf("import failed: %w", err)
	}
	if err := s.eng.WriteArtifacts(absRoot); err != nil {
		log.Printf("[server] warning: failed to write artifacts: %v", err)
	}

	return fmt.Sprintf(
		"Snapshot generated successfully.\n\n"+
			"- Root: %s\n"+
			"- Modules: %d\n"+
			"- Imported declarations: %d\n"+
			"- Insights: %d\n"+
			"- Artifacts: %d\n"+
			"- Duration: %s\n\n"+
			"Read import://snapshot/interface for the generated interfaces.",
		snap.Meta.Root,
		snap.Meta.ModuleCount,
		snap.Meta.Stats.ImportedDecls,
		snap.Meta.InsightCount,
		len(snap.Artifacts),
		snap.Meta.Duration,
	), nil
}

func (s *Server) loadModules(ctx context.Context, dirs []string) (string, error) {
	if len(dirs) == 0 {
		snap, changed, err := s.eng.Refresh(ctx)
		if err != nil {
			return "", err
		}
		if !changed {
			return "No header changes found.", nil
		}
		return fmt.Sprintf("Refreshed: %d modules, %d insights.", snap.Meta.ModuleCount, snap.Meta.InsightCount), nil
	}

	var sb strings.Builder
	for _, dir := range dirs {
		snap, err := s.eng.LoadModule(ctx, dir)
		if err != nil {
			return sb.String(), fmt.Errorf("loading %s: %w", dir, err)
		}
		fmt.Fprintf(&sb, "Loaded %s (generation %d, %d modules)\n", dir, snap.Meta.Generation, snap.Meta.ModuleCount)
	}
	return sb.String(), nil
}

func (s *Server) importDecl(name, kind string) (string, error) {
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		d, err := resolve(sess.Foreign(), name, kind)
		if err != nil {
			return err
		}
		hd := sess.ImportDecl(d)
		if hd == nil {
			return fmt.Errorf("%s %q is not imported", d.Kind, name)
		}
		out = fmt.Sprintf("// %s %s from module %s\n%s\n", d.Kind, name, hd.Module, hostast.Print(hd))
		if alt := sess.AlternateDecl(hd); alt != nil {
			out += fmt.Sprintf("\n// alternate\n%s\n", hostast.Print(alt))
		}
		return nil
	})
	return out, err
}

// nameInfo is the JSON shape reported by import_name.
type nameInfo struct {
	Foreign         string     `json:"foreign"`
	Kind            string     `json:"kind"`
	Name            string     `json:"name"`
	Alias           string     `json:"alias,omitempty"`
	Context         string     `json:"context,omitempty"`
	CustomName      bool       `json:"custom_name,omitempty"`
	DroppedVariadic bool       `json:"dropped_variadic,omitempty"`
	Subscript       bool       `json:"subscript_accessor,omitempty"`
	InitKind        string     `json:"init_kind,omitempty"`
	Error           *errorInfo `json:"error,omitempty"`
}

type errorInfo struct {
	Kind       string `json:"kind"`
	ParamIndex int    `json:"param_index"`
	Owned      bool   `json:"owned,omitempty"`
	VoidParam  bool   `json:"void_param,omitempty"`
}

func (s *Server) importName(name, kind string) (string, error) {
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		d, err := resolve(sess.Foreign(), name, kind)
		if err != nil {
			return err
		}
		in, dc := sess.ImportFullName(d, importer.ImportNameOptions{})
		if !in.OK() {
			return fmt.Errorf("%s %q has no host name", d.Kind, name)
		}
		info := nameInfo{
			Foreign:         name,
			Kind:            d.Kind.String(),
			Name:            in.Name.String(),
			CustomName:      in.HasCustomName,
			DroppedVariadic: in.DroppedVariadic,
			Subscript:       in.IsSubscriptAccessor,
		}
		if !in.Alias.IsEmpty() {
			info.Alias = in.Alias.String()
		}
		if dc != nil {
			info.Context = dc.Name
		}
		if in.IsInit() {
			info.InitKind = in.InitKind.String()
		}
		if in.Error != nil {
			info.Error = &errorInfo{
				Kind:       in.Error.Kind.String(),
				ParamIndex: in.Error.ParamIndex,
				Owned:      in.Error.IsOwned,
				VoidParam:  in.Error.ReplaceParamWithVoid,
			}
		}
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal name: %w", err)
		}
		out = string(data)
		return nil
	})
	return out, err
}

func (s *Server) lookupName(name string) (string, error) {
	if name == "" {
		return "", errors.New("name is required")
	}
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		decls := sess.LookupValue(name)
		if len(decls) == 0 {
			return fmt.Errorf("no declarations named %q", name)
		}
		var sb strings.Builder
		for i, d := range decls {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "// %s in %s\n%s\n", d.Kind, d.Module, hostast.Print(d))
		}
		out = sb.String()
		return nil
	})
	return out, err
}

func (s *Server) importSelector(selector string) (string, error) {
	sel := names.ParseSelector(selector)
	if sel.IsNull() {
		return "", fmt.Errorf("invalid selector %q", selector)
	}
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		out = sess.ImportSelector(sel).String()
		return nil
	})
	return out, err
}

func (s *Server) exportSelector(name string, allowSimpleName bool) (string, error) {
	dn, ok := names.ParseDeclName(name)
	if !ok {
		return "", fmt.Errorf("invalid name %q", name)
	}
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		sel, ok := sess.ExportSelector(dn, allowSimpleName)
		if !ok {
			return fmt.Errorf("%s has no selector form", name)
		}
		out = sel.String()
		return nil
	})
	return out, err
}

func (s *Server) classifyEnum(name string) (string, error) {
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		p := sess.Foreign()
		e := p.LookupTag(name)
		if e == nil || e.Kind != foreign.KindEnum {
			if td := p.LookupTypedef(name); td != nil {
				if t := td.Type.Desugar(); t != nil && t.Kind == foreign.TypeEnum {
					e = t.Decl
				}
			}
		}
		if e == nil || e.Kind != foreign.KindEnum {
			return fmt.Errorf("no enum named %q", name)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s: %s\n", name, sess.Enums().Classify(e))
		if prefix := sess.Enums().Prefix(e); prefix != "" {
			fmt.Fprintf(&sb, "prefix: %s\n", prefix)
		}
		out = sb.String()
		return nil
	})
	return out, err
}

// statsReport is the JSON shape reported by session_stats.
type statsReport struct {
	Stats   importer.Stats     `json:"stats"`
	Modules []string           `json:"modules"`
	Skipped []importer.Skipped `json:"skipped,omitempty"`
}

func (s *Server) sessionStats(withSkipped bool) (string, error) {
	var out string
	err := s.eng.WithSession(func(sess *importer.Session) error {
		r := statsReport{Stats: sess.Stats(), Modules: s.eng.Modules()}
		if withSkipped {
			r.Skipped = sess.Skipped()
		}
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal stats: %w", err)
		}
		out = string(data)
		return nil
	})
	return out, err
}

type valueLookup interface {
	LookupValue(name string) *foreign.Decl
}

// resolve finds a foreign declaration by name. A dotted name selects a
// member of a class or protocol by selector or property name. Without a
// kind the namespaces are searched from classes down to macros.
func resolve(p foreign.Provider, name, kind string) (*foreign.Decl, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	if container, member, ok := strings.Cut(name, "."); ok {
		owner, err := resolve(p, container, "")
		if err != nil {
			return nil, err
		}
		if !owner.Kind.IsContainer() {
			return nil, fmt.Errorf("%s %q has no members", owner.Kind, container)
		}
		if def := p.Definition(owner); def != nil {
			owner = def
		}
		if m := owner.Method(member, true); m != nil {
			return m, nil
		}
		if m := owner.Method(member, false); m != nil {
			return m, nil
		}
		if m := owner.Member(foreign.KindProperty, member); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("no member %q in %s", member, container)
	}

	lookups := map[string]func(string) *foreign.Decl{
		"class":    p.LookupClass,
		"protocol": p.LookupProtocol,
		"tag":      p.LookupTag,
		"typedef":  p.LookupTypedef,
		"macro":    p.Macro,
	}
	if vl, ok := p.(valueLookup); ok {
		lookups["value"] = vl.LookupValue
	}

	order := []string{"class", "protocol", "typedef", "tag", "value", "macro"}
	if kind != "" {
		if _, ok := lookups[kind]; !ok {
			return nil, fmt.Errorf("unknown kind %q (want one of %s)", kind, strings.Join(sortedKinds(lookups), ", "))
		}
		order = []string{kind}
	}
	for _, k := range order {
		lookup, ok := lookups[k]
		if !ok {
			continue
		}
		if d := lookup(name); d != nil {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no foreign declaration named %q", name)
}

func sortedKinds(m map[string]func(string) *foreign.Decl) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func textResult(text string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
