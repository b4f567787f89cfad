package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/jessevdk/go-flags"

	"github.com/biyu6/swift/internal/config"
	"github.com/biyu6/swift/internal/diagnostics/cycles"
	"github.com/biyu6/swift/internal/diagnostics/imports"
	"github.com/biyu6/swift/internal/diagnostics/unavailable"
	"github.com/biyu6/swift/internal/engine"
	"github.com/biyu6/swift/internal/frontends/cfrontend"
	"github.com/biyu6/swift/internal/frontends/objcfrontend"
	"github.com/biyu6/swift/internal/render/iface"
	"github.com/biyu6/swift/internal/render/summary"
	"github.com/biyu6/swift/internal/server"
	"github.com/biyu6/swift/internal/snapshot"
	"github.com/biyu6/swift/internal/watch"
)

const version = "0.1.0"

type options struct {
	Config   string `short:"c" long:"config" default:"clangimport.yaml" description:"Configuration file"`
	Headers  string `long:"headers" description:"Header root, overrides the configured one"`
	Generate bool   `long:"generate" description:"Import once, write the artifacts and exit"`
	Watch    bool   `long:"watch" description:"Re-import when headers change"`
	Version  bool   `long:"version" description:"Print the version and exit"`
	Agent    bool   `long:"gops" description:"Start the gops diagnostics agent"`
}

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)

	opts := &options{}
	if _, err := flags.ParseArgs(opts, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.Version {
		fmt.Fprintf(os.Stderr, "clangimport %s\n", version)
		return
	}

	if opts.Agent {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Printf("[main] warning: gops agent: %v", err)
		} else {
			defer agent.Close()
		}
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if opts.Headers != "" {
		cfg.Headers = opts.Headers
	}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	// C runs before Objective-C so containers see the C types they use.
	eng.RegisterFrontend(cfrontend.New())
	eng.RegisterFrontend(objcfrontend.New())

	eng.RegisterDiagnostic(cycles.New())
	eng.RegisterDiagnostic(imports.New(cfg.SystemModules...))
	eng.RegisterDiagnostic(unavailable.New())

	eng.RegisterRenderer(iface.New(cfg.Output.MaxInterfaceTokens))
	eng.RegisterRenderer(summary.New(cfg.Output.MaxSummaryTokens))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := filepath.Abs(cfg.Headers)
	if err != nil {
		log.Fatalf("failed to resolve header root: %v", err)
	}

	// One-shot generation mode
	if opts.Generate {
		snap, err := eng.GenerateSnapshot(ctx, root)
		if err != nil {
			log.Fatalf("import failed: %v", err)
		}
		if err := eng.WriteArtifacts(root); err != nil {
			log.Fatalf("failed to write artifacts: %v", err)
		}
		printSummary(snap, filepath.Join(root, cfg.Output.Dir))
		return
	}

	// Import up front so session queries work without a generate_snapshot
	// call first.
	if _, err := eng.GenerateSnapshot(ctx, root); err != nil {
		log.Printf("[main] warning: initial import of %s failed: %v", root, err)
	} else if err := eng.WriteArtifacts(root); err != nil {
		log.Printf("[main] warning: failed to write artifacts: %v", err)
	}

	if opts.Watch {
		w, err := watch.New(root, eng, 0)
		if err != nil {
			log.Fatalf("failed to create watcher: %v", err)
		}
		w.OnChange = func(*snapshot.Snapshot) {
			if err := eng.WriteArtifacts(root); err != nil {
				log.Printf("[main] warning: failed to write artifacts: %v", err)
			}
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("[main] watcher stopped: %v", err)
			}
		}()
	}

	// MCP server mode (default)
	srv, err := server.New(eng, cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server error: %v", err)
	}
}

func printSummary(snap *snapshot.Snapshot, outDir string) {
	fmt.Fprintf(os.Stderr, "\nImport complete:\n")
	fmt.Fprintf(os.Stderr, "  Root:        %s\n", snap.Meta.Root)
	fmt.Fprintf(os.Stderr, "  Modules:     %d\n", snap.Meta.ModuleCount)
	fmt.Fprintf(os.Stderr, "  Imported:    %d\n", snap.Meta.Stats.ImportedDecls)
	fmt.Fprintf(os.Stderr, "  Insights:    %d\n", snap.Meta.InsightCount)
	fmt.Fprintf(os.Stderr, "  Artifacts:   %d\n", len(snap.Artifacts))
	fmt.Fprintf(os.Stderr, "  Duration:    %s\n", snap.Meta.Duration)
	fmt.Fprintf(os.Stderr, "  Output:      %s\n", outDir)
}
