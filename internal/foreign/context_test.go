package foreign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrelude(t *testing.T) {
	ctx := NewContext()

	assert.Equal(t, []string{PreludeModule}, ctx.ModuleNames())
	for _, name := range []string{"BOOL", "NSInteger", "NSUInteger", "CGFloat"} {
		assert.NotNil(t, ctx.LookupTypedef(name), name)
	}

	root := ctx.LookupClass("NSObject")
	require.NotNil(t, root)
	assert.Same(t, root, ctx.Definition(root))
	assert.NotNil(t, root.Method("init", true))
	assert.NotNil(t, ctx.LookupProtocol("NSObject"), "protocol and class share the name")

	str := ctx.LookupClass("NSString")
	require.NotNil(t, str)
	assert.Same(t, root, str.Super)

	assert.Empty(t, NewEmptyContext().Modules())
}

func TestDeclareThenDefine(t *testing.T) {
	ctx := NewEmptyContext()
	kit := ctx.Module("Kit")
	shapes := ctx.Module("Shapes")

	fwd := ctx.DeclareClass(shapes, "KTView")
	assert.True(t, fwd.Forward)
	assert.Nil(t, ctx.Definition(fwd))
	assert.Empty(t, shapes.Decls, "forward declarations are not module decls")

	def := ctx.DefineClass(kit, "KTView")
	assert.Same(t, fwd, def, "definition completes the forward declaration")
	assert.False(t, def.Forward)
	assert.Same(t, kit, ctx.ModuleOf(def))
	assert.Equal(t, []*Decl{def}, kit.Decls)

	again := ctx.DefineClass(kit, "KTView")
	assert.Same(t, def, again)
	assert.Len(t, kit.Decls, 1)

	assert.Same(t, kit, ctx.Module("Kit"))
	assert.True(t, ctx.HasModule("Shapes"))
	assert.False(t, ctx.HasModule("Other"))
}

func TestIndexing(t *testing.T) {
	ctx := NewEmptyContext()
	m := ctx.Module("Kit")

	fn := NewFunction("kt_version", Builtin("int"))
	ctx.Add(m, fn)
	assert.Same(t, fn, ctx.LookupValue("kt_version"))

	macro := &Decl{Kind: KindMacro, Name: "KT_MAX", MacroValue: "8"}
	ctx.Add(m, macro)
	assert.Same(t, macro, ctx.Macro("KT_MAX"))
	assert.Equal(t, []*Decl{macro}, m.Macros)
	assert.Equal(t, []*Decl{fn}, m.Decls)

	e := ctx.DefineTag(m, KindEnum, "KTMode")
	ctx.AddMember(e, &Decl{Kind: KindEnumConstant, Name: "KTModeA"})
	assert.Same(t, e, ctx.LookupTag("KTMode"))
	require.NotNil(t, ctx.LookupValue("KTModeA"))
	assert.Same(t, m, ctx.ModuleOf(ctx.LookupValue("KTModeA")), "members share the container's module")

	anon := ctx.DefineTag(m, KindRecord, "")
	assert.True(t, anon.Anonymous)
	assert.Nil(t, ctx.LookupTag(""))

	cls := ctx.DefineClass(m, "KTView")
	cat := &Decl{Kind: KindCategory, Name: "Drawing", Extended: cls}
	ctx.Add(m, cat)
	assert.Equal(t, []*Decl{cat}, ctx.Categories(cls))

	draw := NewMethod("drawInRect:", true, Void(), NewParam("rect", Builtin("int")))
	ctx.AddMember(cat, draw)
	assert.Same(t, cls, draw.Container(), "category members belong to the extended class")
	assert.Same(t, draw, cat.Method("drawInRect:", true))
	assert.Nil(t, cat.Method("drawInRect:", false))
}

func TestTypeString(t *testing.T) {
	ctx := NewContext()
	str := ctx.LookupClass("NSString")

	tests := []struct {
		name string
		typ  *Type
		want string
	}{
		{"builtin", Builtin("int"), "int"},
		{"pointer", PointerTo(Builtin("char")), "char *"},
		{"const pointer", PointerTo(Builtin("char").WithConst()), "const char *"},
		{"object", ObjCPointer(str), "NSString *"},
		{"id", ObjCPointer(nil), "id"},
		{"nullable object", ObjCPointer(str).WithNullability(NullNullable), "NSString * _Nullable"},
		{"typedef", TypedefType(ctx.LookupTypedef("NSInteger")), "NSInteger"},
		{"array", ConstantArray(Builtin("char"), 4), "char[4]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestDesugar(t *testing.T) {
	ctx := NewEmptyContext()
	m := ctx.Module("Kit")
	a := &Decl{Kind: KindTypedef, Name: "A", Type: Builtin("int")}
	ctx.Add(m, a)
	b := &Decl{Kind: KindTypedef, Name: "B", Type: TypedefType(a)}
	ctx.Add(m, b)

	got := TypedefType(b).Desugar()
	require.NotNil(t, got)
	assert.Equal(t, TypeBuiltin, got.Kind)
	assert.Equal(t, "int", got.Name)
}
