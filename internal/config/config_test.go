package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".", cfg.Headers)
	assert.Equal(t, ".clangimport", cfg.Output.Dir)
	assert.True(t, cfg.IsFrontendEnabled("c"))
	assert.True(t, cfg.IsFrontendEnabled("objc"))
	assert.False(t, cfg.IsFrontendEnabled("swift"))
	assert.True(t, cfg.IsDiagnosticEnabled("cycles"))
	assert.True(t, cfg.IsDiagnosticEnabled("imports"))
	assert.True(t, cfg.IsRendererEnabled("interface"))
	assert.True(t, cfg.IsRendererEnabled("summary"))
	assert.Contains(t, cfg.SystemModules, "CoreGraphics")
	assert.Equal(t, 4000, cfg.Output.MaxSummaryTokens)
	assert.True(t, cfg.Importer.OmitNeedlessWords)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clangimport.yaml")
	writeFile(t, path, `
headers: ./include
frontends: [objc]
system_modules: [Metal]
importer:
  platform: ios
  deprecated_as_unavailable: "11.0"
output:
  dir: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./include", cfg.Headers)
	assert.Equal(t, []string{"objc"}, cfg.Frontends)
	assert.Equal(t, []string{"Metal"}, cfg.SystemModules)
	assert.Equal(t, "ios", cfg.Importer.Platform)
	assert.Equal(t, ".clangimport", cfg.Output.Dir, "empty output dir falls back to the default")
	assert.Equal(t, 8000, cfg.Output.MaxInterfaceTokens)
	assert.Equal(t, 4000, cfg.Output.MaxSummaryTokens)
	assert.True(t, cfg.Importer.InferDefaultArguments, "unset fields keep defaults")

	opts := cfg.ImporterOptions()
	assert.Equal(t, "ios", opts.Platform)
	assert.Equal(t, "11.0", opts.DeprecatedAsUnavailable)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "frontends: [c\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvHeaders, "/opt/sdk/include")
	t.Setenv(EnvPlatform, "tvos")
	t.Setenv(EnvVerbose, "true")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "/opt/sdk/include", cfg.Headers)
	assert.Equal(t, "tvos", cfg.Importer.Platform)
	assert.True(t, cfg.Importer.Verbose)
	assert.Equal(t, ".clangimport", cfg.Output.Dir, "unset variables leave settings alone")
}

// --- helpers ---

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
