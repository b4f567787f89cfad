package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/lookup"
	"github.com/biyu6/swift/internal/names"
)

func TestRegisterModuleAndLookupValue(t *testing.T) {
	ctx, m := lookupFixture()
	s := NewSession(ctx, nil, nil, DefaultOptions())

	before := s.Generation()
	table := s.RegisterModule(m)
	assert.Equal(t, before+1, s.Generation())
	assert.Equal(t, "Drawing", table.Module())

	t.Run("top level", func(t *testing.T) {
		got := s.LookupValue("DRCanvas")
		require.Len(t, got, 1)
		assert.Equal(t, hostast.KindClass, got[0].Kind)
		assert.Same(t, got[0], s.LookupValue("DRCanvas")[0])
	})

	t.Run("enum cases are members", func(t *testing.T) {
		assert.Empty(t, s.LookupValue("fill"))
		entries := table.Lookup("fill", "DRMode")
		require.Len(t, entries, 1)
	})

	t.Run("CF alias", func(t *testing.T) {
		cls := s.LookupValue("DRPath")
		require.Len(t, cls, 1)
		assert.Equal(t, hostast.KindClass, cls[0].Kind)
		alias := s.LookupValue("DRPathRef")
		require.Len(t, alias, 1)
		assert.Equal(t, hostast.KindTypeAlias, alias[0].Kind)
		assert.Same(t, cls[0], alias[0].Type.Decl)
	})

	t.Run("macros", func(t *testing.T) {
		tests := []struct {
			name string
			typ  string
		}{
			{"DR_VERSION", "Int32"},
			{"DR_MASK", "Int32"},
			{"DR_NAME", "String"},
			{"DR_SCALE", "Double"},
		}
		for _, tt := range tests {
			got := s.LookupValue(tt.name)
			require.Len(t, got, 1, tt.name)
			assert.Equal(t, tt.typ, got[0].Type.String(), tt.name)
		}
		assert.Empty(t, s.LookupValue("DR_NEXT"), "expressions are not imported")
	})

	t.Run("typedef chain", func(t *testing.T) {
		got := s.LookupValue("DRPoint")
		require.Len(t, got, 1)
		assert.Equal(t, hostast.KindStruct, got[0].Kind)
	})
}

func TestLookupVisibleDeclsCache(t *testing.T) {
	ctx, m := lookupFixture()
	s := NewSession(ctx, nil, nil, DefaultOptions())
	s.RegisterModule(m)

	first := s.LookupVisibleDecls()
	assert.NotEmpty(t, first)
	s.LookupVisibleDecls()
	assert.Equal(t, 1, s.Stats().VisibleRebuilds)

	other := ctx.Module("Extras")
	ctx.Add(other, foreign.NewFunction("EXReset", foreign.Void()))
	s.RegisterModule(other)
	second := s.LookupVisibleDecls()
	assert.Equal(t, 2, s.Stats().VisibleRebuilds)
	assert.Len(t, second, len(first)+1)

	var found bool
	for _, d := range second {
		if d.Name.Base == "EXReset" {
			found = true
		}
		assert.NotEqual(t, "DRPathRef", d.Name.Base, "alias entries are not listed")
	}
	assert.True(t, found)
}

func TestBridgingHeaderSharesTable(t *testing.T) {
	ctx := foreign.NewContext()
	a := ctx.Module("App-Bridging-Header")
	a.Bridging = true
	ctx.Add(a, foreign.NewFunction("AppStart", foreign.Void()))
	s := NewSession(ctx, nil, nil, DefaultOptions())

	table := s.RegisterModule(a)
	assert.Equal(t, lookup.BridgingModule, table.Module())
	got := s.LookupValue("AppStart")
	require.Len(t, got, 1)
	assert.Equal(t, lookup.BridgingModule, got[0].Module)
}

func TestLookupObjCMembers(t *testing.T) {
	ctx, m := lookupFixture()
	s := NewSession(ctx, nil, nil, DefaultOptions())
	s.RegisterModule(m)

	got := s.LookupObjCMembers("clear")
	require.Len(t, got, 1)
	assert.Equal(t, hostast.KindFunc, got[0].Kind)
	assert.Equal(t, "DRCanvas", got[0].Context.Name.Base)

	all := s.LookupAllObjCMembers()
	var bases []string
	for _, d := range all {
		bases = append(bases, d.Name.Base)
	}
	assert.ElementsMatch(t, []string{"clear", "lineWidth"}, bases)
}

func TestSelectorRoundTrip(t *testing.T) {
	s := NewSession(foreign.NewEmptyContext(), nil, nil, DefaultOptions())

	tests := []struct {
		selector string
		name     string
	}{
		{"count", "count"},
		{"insertObject:atIndex:", "insertObject(_:atIndex:)"},
		{"setValue:", "setValue(_:)"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			n := s.ImportSelector(names.ParseSelector(tt.selector))
			assert.Equal(t, tt.name, n.String())
			sel, ok := s.ExportSelector(n, true)
			require.True(t, ok)
			assert.Equal(t, tt.selector, sel.String())
		})
	}

	_, ok := s.ExportSelector(names.CompoundName("init", "frame"), true)
	assert.False(t, ok)
}

// --- helpers ---

// lookupFixture builds a small module with a class, an enum, a CF type, a
// typedef chain and macros.
func lookupFixture() (*foreign.Context, *foreign.Module) {
	ctx := foreign.NewContext()
	m := ctx.Module("Drawing")

	canvas := ctx.DefineClass(m, "DRCanvas")
	canvas.Super = ctx.LookupClass("NSObject")
	ctx.AddMember(canvas, foreign.NewMethod("clear", true, foreign.Void()))
	ctx.AddMember(canvas, foreign.NewProperty("lineWidth", foreign.Builtin("double"), true))

	mode := ctx.DefineTag(m, foreign.KindEnum, "DRMode")
	mode.Type = foreign.TypedefType(ctx.LookupTypedef("NSInteger"))
	mode.Attrs.EnumMacro = foreign.MacroNSEnum
	ctx.AddMember(mode, &foreign.Decl{Kind: foreign.KindEnumConstant, Name: "DRModeFill", Value: 0})
	ctx.AddMember(mode, &foreign.Decl{Kind: foreign.KindEnumConstant, Name: "DRModeStroke", Value: 1})

	path := ctx.DeclareTag(m, foreign.KindRecord, "__DRPath")
	ctx.Add(m, &foreign.Decl{Kind: foreign.KindTypedef, Name: "DRPathRef", Type: foreign.PointerTo(foreign.TagType(path))})

	point := ctx.DefineTag(m, foreign.KindRecord, "_DRPoint")
	ctx.AddMember(point, &foreign.Decl{Kind: foreign.KindField, Name: "x", Type: foreign.Builtin("double")})
	ctx.Add(m, &foreign.Decl{Kind: foreign.KindTypedef, Name: "DRPoint", Type: foreign.TagType(point)})

	macro := func(name, body string) {
		ctx.Add(m, &foreign.Decl{Kind: foreign.KindMacro, Name: name, MacroValue: body})
	}
	macro("DR_VERSION", "10")
	macro("DR_MASK", "0x10")
	macro("DR_NAME", `"drawing"`)
	macro("DR_SCALE", "1.5f")
	macro("DR_NEXT", "DR_VERSION + 1")
	return ctx, m
}
