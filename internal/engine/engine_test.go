package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/config"
	"github.com/biyu6/swift/internal/diagnostics/cycles"
	"github.com/biyu6/swift/internal/diagnostics/imports"
	"github.com/biyu6/swift/internal/diagnostics/unavailable"
	"github.com/biyu6/swift/internal/frontends/cfrontend"
	"github.com/biyu6/swift/internal/frontends/objcfrontend"
	"github.com/biyu6/swift/internal/importer"
	"github.com/biyu6/swift/internal/render/iface"
	"github.com/biyu6/swift/internal/render/summary"
	"github.com/biyu6/swift/internal/snapshot"
)

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		name     string
		relPath  string
		isDir    bool
		patterns []string
		want     bool
	}{
		{
			"build directory",
			"build/Generated.h", false,
			[]string{"build/**"},
			true,
		},
		{
			"build dir itself",
			"build", true,
			[]string{"build/**"},
			true,
		},
		{
			"git directory",
			".git/HEAD", false,
			[]string{".git/**"},
			true,
		},
		{
			"private headers with ** prefix",
			"Kit/KTView.private.h", false,
			[]string{"**/*.private.h"},
			true,
		},
		{
			"public header not ignored",
			"Kit/KTView.h", false,
			[]string{"**/*.private.h"},
			false,
		},
		{
			"output dir",
			".clangimport/Kit.interface", false,
			[]string{".clangimport/**"},
			true,
		},
		{
			"deeply nested derived data",
			"DerivedData/Kit/Build/Intermediates/KTView.h", false,
			[]string{"DerivedData/**"},
			true,
		},
		{
			"similar prefix is not a match",
			"buildtools/Tool.h", false,
			[]string{"build/**"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Ignore = tt.patterns

			eng, _ := New(cfg)
			got := eng.isIgnored(tt.relPath, tt.isDir)
			if got != tt.want {
				t.Errorf("isIgnored(%q, isDir=%v) with patterns %v = %v, want %v",
					tt.relPath, tt.isDir, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestGroupByDir(t *testing.T) {
	groups := groupByDir([]string{"Kit/B.h", "App.h", "Kit/A.h", "Vendor/Shapes/S.h"})
	require.Len(t, groups, 3)
	assert.Equal(t, ".", groups[0].dir)
	assert.Equal(t, "Kit", groups[1].dir)
	assert.Equal(t, []string{"Kit/B.h", "Kit/A.h"}, groups[1].headers)
	assert.Equal(t, "Vendor/Shapes", groups[2].dir)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestGenerateSnapshot(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)

	snap, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)

	t.Run("modules", func(t *testing.T) {
		assert.Equal(t, []string{"Bridging", "Kit", "Shapes"}, eng.Modules())
		require.Len(t, snap.Modules, 3)

		bridging := snap.Module("Bridging")
		require.NotNil(t, bridging)
		assert.True(t, bridging.Bridging)
		assert.Equal(t, []string{"App-Bridging.h"}, bridging.Headers)

		kit := snap.Module("Kit")
		require.NotNil(t, kit)
		assert.Equal(t, []string{"Kit/KTKit.h", "Kit/KTView.h"}, kit.Headers)
		assert.Contains(t, kit.Imports, "Shapes")
		assert.True(t, kit.Notes)
		assert.Greater(t, kit.Foreign, 0)
		assert.Greater(t, kit.Imported, 0)
	})

	t.Run("meta", func(t *testing.T) {
		assert.NotEmpty(t, snap.Meta.ID)
		assert.Equal(t, root, snap.Meta.Root)
		assert.Equal(t, []string{"c", "objc"}, snap.Meta.Frontends)
		assert.Equal(t, []string{"cycles", "imports", "unavailable"}, snap.Meta.Diagnostics)
		assert.Equal(t, []string{"interface", "summary"}, snap.Meta.Renderers)
		assert.Equal(t, 3, snap.Meta.ModuleCount)
		assert.Greater(t, snap.Meta.Generation, uint64(1))
		assert.Equal(t, snap.Meta.Generation, snap.Meta.Stats.Generation)
		assert.Len(t, snap.Meta.FileHashes, 4, "ignored headers are not hashed")
		for _, fh := range snap.Meta.FileHashes {
			assert.NotEmpty(t, fh.Module, fh.Path)
		}
	})

	t.Run("interfaces", func(t *testing.T) {
		kit := snap.Artifact("Kit.interface")
		require.NotNil(t, kit)
		content := string(kit.Content)
		assert.Contains(t, content, "import Shapes")
		assert.Contains(t, content, "class KTView")
		assert.Contains(t, content, "struct KTPoint")
		assert.Contains(t, content, "func kitVersion()", "api notes rename the function")

		bridging := snap.Artifact("__ObjC.interface")
		require.NotNil(t, bridging)
		assert.Contains(t, string(bridging.Content), "func app_main()")

		assert.NotNil(t, snap.Artifact("clangimport.md"))
		assert.Nil(t, snap.Artifact("Generated.interface"))
	})

	t.Run("diagnostics", func(t *testing.T) {
		var titles []string
		for _, in := range snap.Insights {
			titles = append(titles, in.Title)
		}
		assert.Contains(t, titles, "Cyclic module import (2 modules)")
		assert.Equal(t, len(snap.Insights), snap.Meta.InsightCount)
	})
}

func TestGenerateSnapshot_MissingRoot(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.GenerateSnapshot(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGenerateSnapshot_DisabledFrontend(t *testing.T) {
	root := writeTree(t)
	cfg := config.Default()
	cfg.Frontends = []string{"c"}
	eng := newEngineWith(t, cfg)

	snap, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, snap.Meta.Frontends)
	kit := snap.Artifact("Kit.interface")
	require.NotNil(t, kit)
	assert.NotContains(t, string(kit.Content), "class KTView")
}

func TestLoadModule(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)

	_, err := eng.LoadModule(context.Background(), "Extra")
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	first, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)
	session := currentSession(t, eng)

	writeHeader(t, root, "Extra/Extra.h", "int extra_value(void);\n")
	snap, err := eng.LoadModule(context.Background(), "Extra")
	require.NoError(t, err)

	assert.Same(t, session, currentSession(t, eng), "loading a module keeps the session")
	assert.Equal(t, first.Meta.Generation+1, snap.Meta.Generation)
	assert.NotEqual(t, first.Meta.ID, snap.Meta.ID)
	assert.Contains(t, eng.Modules(), "Extra")
	extra := snap.Artifact("Extra.interface")
	require.NotNil(t, extra)
	assert.Contains(t, string(extra.Content), "func extra_value()")

	_, err = eng.LoadModule(context.Background(), "Extra")
	assert.Error(t, err, "a module loads once")

	_, err = eng.LoadModule(context.Background(), "Empty")
	assert.Error(t, err)

	_, err = eng.LoadModule(context.Background(), "../outside")
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)

	_, _, err := eng.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	first, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)
	session := currentSession(t, eng)

	t.Run("unchanged", func(t *testing.T) {
		snap, changed, err := eng.Refresh(context.Background())
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Same(t, first, snap)
	})

	t.Run("new module directory", func(t *testing.T) {
		writeHeader(t, root, "Extra/Extra.h", "int extra_value(void);\n")
		snap, changed, err := eng.Refresh(context.Background())
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Same(t, session, currentSession(t, eng))
		assert.NotNil(t, snap.Artifact("Extra.interface"))
	})

	t.Run("edited header regenerates", func(t *testing.T) {
		writeHeader(t, root, "Shapes/Shapes.h", "int shapes_count(void);\nint shapes_area(void);\n")
		snap, changed, err := eng.Refresh(context.Background())
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NotSame(t, session, currentSession(t, eng))
		assert.Contains(t, string(snap.Artifact("Shapes.interface").Content), "shapes_area")
		assert.Contains(t, eng.Modules(), "Extra", "the regenerated tree includes new modules")
	})
}

func TestWriteArtifacts(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)

	assert.True(t, errors.Is(eng.WriteArtifacts(root), ErrNoSnapshot))
	_, err := eng.GetArtifact("Kit.interface")
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	snap, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, eng.WriteArtifacts(""))

	outDir := filepath.Join(root, ".clangimport")
	for _, name := range []string{"Kit.interface", "Shapes.interface", "__ObjC.interface", "clangimport.md", "diagnostics.json", "snapshot.meta.json"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	data, err := eng.GetArtifact("snapshot.meta.json")
	require.NoError(t, err)
	var meta snapshot.Meta
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, snap.Meta.ID, meta.ID)

	data, err = eng.GetArtifact("diagnostics.json")
	require.NoError(t, err)
	var insights []snapshot.Insight
	require.NoError(t, json.Unmarshal(data, &insights))
	assert.Len(t, insights, len(snap.Insights))

	_, err = eng.GetArtifact("missing.md")
	assert.Error(t, err)

	// A second run reads the hashes written above and skips the output dir.
	again, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, again.Meta.FileHashes, len(snap.Meta.FileHashes))
}

// TestGenerateSnapshot_ConcurrentCallsSerialized verifies that the engine mutex
// keeps concurrent pipeline runs and session access from interleaving.
func TestGenerateSnapshot_ConcurrentCallsSerialized(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := 0; i < 3; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = eng.GenerateSnapshot(context.Background(), root)
		}(i)
		go func(idx int) {
			defer wg.Done()
			err := eng.WithSession(func(s *importer.Session) error {
				s.LookupValue("kt_version")
				return nil
			})
			if errors.Is(err, ErrNoSnapshot) {
				err = nil
			}
			errs[idx] = err
		}(i + 3)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d error: %v", i, err)
		}
	}
	assert.NotNil(t, eng.Snapshot())
}

func TestGenerateSnapshot_Cancelled(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.GenerateSnapshot(ctx, root)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.ErrorIs(t, eng.WithSession(func(*importer.Session) error { return nil }), ErrNoSnapshot)
	assert.Empty(t, eng.Modules())
}

func TestGenerateSnapshot_CancelledKeepsPreviousSession(t *testing.T) {
	root := writeTree(t)
	eng := newEngine(t)
	snap, err := eng.GenerateSnapshot(context.Background(), root)
	require.NoError(t, err)
	session := currentSession(t, eng)
	modules := eng.Modules()

	writeHeader(t, root, "Extra/Extra.h", "int extra_value(void);\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.GenerateSnapshot(ctx, root)
	require.ErrorIs(t, err, context.Canceled)

	assert.Same(t, session, currentSession(t, eng))
	assert.Same(t, snap, eng.Snapshot())
	assert.Equal(t, modules, eng.Modules())
}

// --- helpers ---

var fixture = map[string]string{
	"App-Bridging.h": "int app_main(void);\n",
	"Kit/KTKit.h": `#import <Foundation/Foundation.h>
#import <Shapes/Shapes.h>

typedef struct KTPoint {
    double x;
    double y;
} KTPoint;

int kt_version(void);
`,
	"Kit/KTView.h": `#import <Foundation/Foundation.h>

@interface KTView : NSObject
- (void)draw;
@end
`,
	"Kit/Kit.apinotes": `Name: Kit
Functions:
  - Name: kt_version
    SwiftName: "kitVersion()"
`,
	"Kit/KTView.m":      "@implementation KTView\n@end\n",
	"Shapes/Shapes.h":   "#import <Kit/KTKit.h>\nint shapes_count(void);\n",
	"build/Generated.h": "int generated(void);\n",
}

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range fixture {
		writeHeader(t, root, name, content)
	}
	return root
}

func writeHeader(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newEngine(t *testing.T) *Engine {
	return newEngineWith(t, config.Default())
}

func newEngineWith(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	eng, err := New(cfg)
	require.NoError(t, err)
	eng.RegisterFrontend(cfrontend.New())
	eng.RegisterFrontend(objcfrontend.New())
	eng.RegisterDiagnostic(cycles.New())
	eng.RegisterDiagnostic(imports.New(cfg.SystemModules...))
	eng.RegisterDiagnostic(unavailable.New())
	eng.RegisterRenderer(iface.New(cfg.Output.MaxInterfaceTokens))
	eng.RegisterRenderer(summary.New(cfg.Output.MaxSummaryTokens))
	return eng
}

func currentSession(t *testing.T, eng *Engine) *importer.Session {
	t.Helper()
	var out *importer.Session
	require.NoError(t, eng.WithSession(func(s *importer.Session) error {
		out = s
		return nil
	}))
	return out
}
