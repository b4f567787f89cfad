package unavailable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/importer"
)

func TestUnavailableDiagnostic(t *testing.T) {
	ctx := foreign.NewContext()
	m := ctx.Module("Logging")

	logf := foreign.NewFunction("log_message", foreign.Void(),
		foreign.NewParam("format", foreign.PointerTo(foreign.Builtin("char").WithConst())))
	logf.Variadic = true
	logf.File, logf.Line = "Logging.h", 12
	ctx.Add(m, logf)

	legacy := foreign.NewFunction("log_flush", foreign.Void())
	legacy.Attrs.Unavailable = true
	legacy.Attrs.UnavailableMsg = "use log_sync"
	ctx.Add(m, legacy)

	s := importer.NewSession(ctx, nil, nil, importer.DefaultOptions())
	require.NotNil(t, s.ImportDecl(logf))
	require.NotNil(t, s.ImportDecl(legacy))

	d := New()
	assert.Equal(t, "unavailable", d.Name())
	insights, err := d.Diagnose(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, insights, 2)

	t.Run("skipped", func(t *testing.T) {
		in := insights[0]
		assert.Equal(t, "Unrepresentable declarations in Logging (1)", in.Title)
		require.Len(t, in.Evidence, 1)
		ev := in.Evidence[0]
		assert.Equal(t, "log_message", ev.Decl)
		assert.Equal(t, "Logging.h", ev.File)
		assert.Equal(t, 12, ev.Line)
		assert.Contains(t, ev.Detail, "function")
	})

	t.Run("unavailable", func(t *testing.T) {
		in := insights[1]
		assert.Equal(t, "Unavailable API in Logging (2)", in.Title)
		var details []string
		for _, ev := range in.Evidence {
			details = append(details, ev.Detail)
		}
		assert.Contains(t, details, "use log_sync")
	})
}

func TestUnavailableDiagnostic_Clean(t *testing.T) {
	ctx := foreign.NewContext()
	fn := foreign.NewFunction("kit_version", foreign.Builtin("int"))
	ctx.Add(ctx.Module("Kit"), fn)
	s := importer.NewSession(ctx, nil, nil, importer.DefaultOptions())
	require.NotNil(t, s.ImportDecl(fn))

	insights, err := New().Diagnose(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestModuleOf(t *testing.T) {
	outer := &hostast.Decl{Kind: hostast.KindClass, Module: "Kit"}
	inner := &hostast.Decl{Kind: hostast.KindFunc, Context: outer}
	assert.Equal(t, "Kit", moduleOf(inner))
	assert.Equal(t, "Kit", moduleOf(outer))
}
