package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
)

func TestImportType(t *testing.T) {
	ctx := foreign.NewContext()
	nsuint := foreign.TypedefType(ctx.LookupTypedef("NSUInteger"))
	boolT := foreign.TypedefType(ctx.LookupTypedef("BOOL"))
	nsstring := ctx.LookupClass("NSString")
	nserror := ctx.LookupClass("NSError")
	nsarray := ctx.LookupClass("NSArray")
	copying := ctx.LookupProtocol("NSCopying")
	s := NewSession(ctx, nil, nil, DefaultOptions())

	tests := []struct {
		name   string
		typ    *foreign.Type
		role   Role
		widen  bool
		bridge bool
		want   string
	}{
		{"int", foreign.Builtin("int"), RoleValue, false, false, "Int32"},
		{"unsigned long", foreign.Builtin("unsigned long"), RoleValue, false, false, "UInt"},
		{"NSUInteger widened", nsuint, RoleParameter, true, true, "Int"},
		{"NSUInteger kept", nsuint, RoleParameter, false, true, "UInt"},
		{"const char pointer", foreign.PointerTo(foreign.Builtin("char").WithConst()), RoleParameter, false, true, "UnsafePointer<CChar>!"},
		{"nullable void pointer", foreign.PointerTo(foreign.Void()).WithNullability(foreign.NullNullable), RoleParameter, false, true, "UnsafeMutableRawPointer?"},
		{"const void pointer", foreign.PointerTo(foreign.Void().WithConst()).WithNullability(foreign.NullNonNull), RoleParameter, false, true, "UnsafeRawPointer"},
		{"NSString bridged", foreign.ObjCPointer(nsstring).WithNullability(foreign.NullNonNull), RoleParameter, false, true, "String"},
		{"NSString unbridged", foreign.ObjCPointer(nsstring).WithNullability(foreign.NullNonNull), RoleParameter, false, false, "NSString"},
		{"NSString in a field", foreign.ObjCPointer(nsstring), RoleRecordField, false, true, "NSString!"},
		{"id bridged", foreign.ObjCPointer(nil).WithNullability(foreign.NullNullable), RoleResult, false, true, "Any?"},
		{"id unbridged", foreign.ObjCPointer(nil).WithNullability(foreign.NullNullable), RoleValue, false, true, "AnyObject?"},
		{"id with protocol", foreign.ObjCPointer(nil, copying).WithNullability(foreign.NullNonNull), RoleParameter, false, true, "NSCopying"},
		{"NSArray bridged", foreign.ObjCPointer(nsarray).WithNullability(foreign.NullNonNull), RoleResult, false, true, "[Any]"},
		{
			"NSString array",
			&foreign.Type{Kind: foreign.TypeObjCPointer, Decl: nsarray, TypeArgs: []*foreign.Type{foreign.ObjCPointer(nsstring)}, Nullability: foreign.NullNonNull},
			RoleResult, false, true, "[String]",
		},
		{
			"error out parameter",
			foreign.PointerTo(foreign.ObjCPointer(nserror).WithNullability(foreign.NullNullable)).WithNullability(foreign.NullNullable),
			RoleParameter, false, true, "AutoreleasingUnsafeMutablePointer<NSError?>?",
		},
		{"BOOL pointer", foreign.PointerTo(boolT).WithNullability(foreign.NullNonNull), RoleParameter, false, true, "UnsafeMutablePointer<ObjCBool>"},
		{"BOOL", boolT, RoleResult, false, true, "Bool"},
		{"fixed array", foreign.ConstantArray(foreign.Builtin("int"), 4), RoleRecordField, false, false, "(Int32, Int32, Int32, Int32)"},
		{"fixed array parameter", foreign.ConstantArray(foreign.Builtin("int"), 4), RoleParameter, false, true, "UnsafeMutablePointer<Int32>"},
		{
			"block",
			foreign.BlockType(foreign.FunctionType(foreign.Void())).WithNullability(foreign.NullNullable),
			RoleParameter, false, true, "(@convention(block) () -> ())?",
		},
		{
			"function pointer",
			foreign.PointerTo(foreign.FunctionType(foreign.Builtin("int"), foreign.Builtin("int"))).WithNullability(foreign.NullNonNull),
			RoleParameter, false, true, "@convention(c) (Int32) -> Int32",
		},
		{"SEL", foreign.SelType().WithNullability(foreign.NullNonNull), RoleParameter, false, true, "Selector"},
		{"Class", foreign.ObjCClassType().WithNullability(foreign.NullNullable), RoleResult, false, true, "AnyClass?"},
		{"instancetype", foreign.InstanceType().WithNullability(foreign.NullNonNull), RoleResult, false, true, "Self"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ImportType(tt.typ, tt.role, tt.widen, tt.bridge, hostast.ImplicitlyUnwrapped)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
	assert.Equal(t, 0, s.Coordinator().Depth())
}

func TestImportTypeUnrepresentable(t *testing.T) {
	ctx := foreign.NewContext()
	s := NewSession(ctx, nil, nil, DefaultOptions())

	stdcall := foreign.FunctionType(foreign.Void())
	stdcall.CallingConv = "stdcall"
	variadic := foreign.FunctionType(foreign.Void(), foreign.Builtin("int"))
	variadic.Variadic = true

	tests := []struct {
		name string
		typ  *foreign.Type
		role Role
	}{
		{"variable-length array", foreign.VariableArray(foreign.Builtin("int")), RoleRecordField},
		{"incomplete array field", foreign.IncompleteArray(foreign.Builtin("int")), RoleRecordField},
		{"stdcall function pointer", foreign.PointerTo(stdcall), RoleParameter},
		{"variadic function pointer", foreign.PointerTo(variadic), RoleParameter},
		{"unknown builtin", foreign.Builtin("__int128"), RoleValue},
		{"vector", &foreign.Type{Kind: foreign.TypeVector, Name: "float4"}, RoleValue},
		{"missing", nil, RoleValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ImportType(tt.typ, tt.role, false, false, hostast.ImplicitlyUnwrapped)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnrepresentable))
		})
	}
}

func TestCFTypeRoles(t *testing.T) {
	ctx := foreign.NewContext()
	m := ctx.Module("CoreFoundation")
	rec := ctx.DeclareTag(m, foreign.KindRecord, "__CFString")
	td := &foreign.Decl{Kind: foreign.KindTypedef, Name: "CFStringRef", Type: foreign.PointerTo(foreign.TagType(rec).WithConst())}
	ctx.Add(m, td)
	s := NewSession(ctx, nil, nil, DefaultOptions())
	ref := foreign.TypedefType(td)

	result, err := s.ImportType(ref, RoleResult, false, true, hostast.ImplicitlyUnwrapped)
	require.NoError(t, err)
	assert.Equal(t, "Unmanaged<CFString>!", result.String())

	audited, err := s.ImportType(ref, RoleAuditedResult, false, true, hostast.ImplicitlyUnwrapped)
	require.NoError(t, err)
	assert.Equal(t, "CFString!", audited.String())

	param, err := s.ImportType(ref.WithNullability(foreign.NullNonNull), RoleParameter, false, true, hostast.ImplicitlyUnwrapped)
	require.NoError(t, err)
	assert.Equal(t, "CFString", param.String())

	for _, role := range []Role{RoleProperty, RolePropertyAccessor} {
		got, err := s.ImportType(ref, role, false, true, hostast.ImplicitlyUnwrapped)
		require.NoError(t, err)
		assert.Equal(t, "CFString!", got.String(), role.String())
	}
}

func TestPropertyAccessorSignatures(t *testing.T) {
	ctx := foreign.NewContext()
	m := ctx.Module("Labels")
	rec := ctx.DeclareTag(m, foreign.KindRecord, "__CFString")
	td := &foreign.Decl{Kind: foreign.KindTypedef, Name: "CFStringRef", Type: foreign.PointerTo(foreign.TagType(rec).WithConst())}
	ctx.Add(m, td)
	ref := foreign.TypedefType(td)

	label := ctx.DefineClass(m, "Label")
	label.Super = ctx.LookupClass("NSObject")
	text := foreign.NewProperty("text", ref, true)
	ctx.AddMember(label, text)
	getter := foreign.NewMethod("text", true, ref)
	ctx.AddMember(label, getter)
	setter := foreign.NewMethod("setText:", true, foreign.Void(), foreign.NewParam("text", ref))
	ctx.AddMember(label, setter)
	plainText := foreign.NewMethod("displayText", true, ref)
	ctx.AddMember(label, plainText)
	s := NewSession(ctx, nil, nil, DefaultOptions())

	prop := s.ImportDecl(text)
	require.NotNil(t, prop)
	assert.Equal(t, "CFString!", prop.Type.String())

	require.NotNil(t, prop.Getter)
	assert.Same(t, s.ImportDecl(getter), prop.Getter)
	assert.Equal(t, prop.Type.String(), prop.Getter.Result.String())

	require.NotNil(t, prop.Setter)
	require.Len(t, prop.Setter.Params, 1)
	assert.Equal(t, prop.Type.String(), prop.Setter.Params[0].Type.String())

	plain := s.ImportDecl(plainText)
	require.NotNil(t, plain)
	assert.Equal(t, "Unmanaged<CFString>!", plain.Result.String(), "unaudited results stay unmanaged")
}

func TestRoleStringPanicsOnUnknownRole(t *testing.T) {
	assert.Equal(t, "cf-retained-out-parameter", RoleCFRetainedOutParameter.String())
	assert.Panics(t, func() { _ = Role(99).String() })
	assert.Panics(t, func() { Role(99).bridges() })
	assert.Panics(t, func() { _ = SpecialMethodKind(7).String() })
}

func TestWidenedIntegerAllowed(t *testing.T) {
	ctx := foreign.NewContext()
	nsuint := foreign.TypedefType(ctx.LookupTypedef("NSUInteger"))
	s := NewSession(ctx, nil, nil, DefaultOptions())

	create := foreign.NewFunction("CFArrayCreate", nsuint, foreign.NewParam("count", nsuint))
	plain := foreign.NewFunction("CFArrayGetCount", nsuint, foreign.NewParam("count", nsuint))

	tests := []struct {
		name string
		decl *foreign.Decl
		want bool
	}{
		{"property", foreign.NewProperty("count", nsuint, true), true},
		{"mask property", foreign.NewProperty("autoresizingMask", nsuint, true), false},
		{"options setter", foreign.NewMethod("setOptions:", true, foreign.Void(), foreign.NewParam("options", nsuint)), false},
		{"creation function", create, false},
		{"creation function parameter", create.Params[0], false},
		{"plain function parameter", plain.Params[0], true},
		{"field", &foreign.Decl{Kind: foreign.KindField, Name: "count", Type: nsuint}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.WidenedIntegerAllowed(tt.decl))
		})
	}
}

func TestImportMethodTypeErrorConvention(t *testing.T) {
	ctx := foreign.NewContext()
	m := ctx.Module("Docs")
	doc := ctx.DefineClass(m, "Document")
	doc.Super = ctx.LookupClass("NSObject")
	nsstring := ctx.LookupClass("NSString")
	nserror := ctx.LookupClass("NSError")
	errPtr := foreign.PointerTo(foreign.ObjCPointer(nserror).WithNullability(foreign.NullNullable)).WithNullability(foreign.NullNullable)

	write := foreign.NewMethod("writeToFile:error:", true, foreign.TypedefType(ctx.LookupTypedef("BOOL")),
		foreign.NewParam("path", foreign.ObjCPointer(nsstring).WithNullability(foreign.NullNonNull)),
		foreign.NewParam("error", errPtr))
	ctx.AddMember(doc, write)
	load := foreign.NewMethod("contentsAndReturnError:", true, foreign.ObjCPointer(nsstring).WithNullability(foreign.NullNullable),
		foreign.NewParam("error", errPtr))
	ctx.AddMember(doc, load)
	s := NewSession(ctx, nil, nil, DefaultOptions())

	t.Run("zero result", func(t *testing.T) {
		name, _ := s.ImportFullName(write, ImportNameOptions{})
		require.NotNil(t, name.Error)
		assert.Equal(t, hostast.ErrorZeroResult, name.Error.Kind)
		assert.Equal(t, 1, name.Error.ParamIndex)
		assert.False(t, name.Error.ReplaceParamWithVoid)
		assert.Equal(t, "writeToFile(_:)", name.Name.String())

		sig, err := s.ImportMethodType(write, name, SpecialRegular)
		require.NoError(t, err)
		assert.True(t, sig.Throws)
		assert.True(t, sig.Result.IsVoid())
		assert.Equal(t, "Bool", sig.Error.ForeignResult.String())
		require.Len(t, sig.Params, 1)
		assert.Equal(t, "path", sig.Params[0].Name)
		assert.Equal(t, "String", sig.Params[0].Type.String())
	})

	t.Run("nil result", func(t *testing.T) {
		name, _ := s.ImportFullName(load, ImportNameOptions{})
		require.NotNil(t, name.Error)
		assert.Equal(t, hostast.ErrorNilResult, name.Error.Kind)
		assert.Equal(t, "contents", name.Name.String())

		sig, err := s.ImportMethodType(load, name, SpecialRegular)
		require.NoError(t, err)
		assert.Equal(t, "String", sig.Result.String())
		assert.Empty(t, sig.Params)
	})

	t.Run("declaration", func(t *testing.T) {
		hd := s.ImportDecl(write)
		require.NotNil(t, hd)
		assert.True(t, hd.Throws)
		require.NotNil(t, hd.Error)
		assert.Equal(t, "writeToFile:error:", hd.Selector)
		assert.Equal(t, "Document", hd.Context.Name.Base)
	})
}

func TestInferredDefaultArguments(t *testing.T) {
	ctx := foreign.NewContext()
	m := ctx.Module("Net")
	nsuint := foreign.TypedefType(ctx.LookupTypedef("NSUInteger"))
	opts := enumDecl(ctx, m, "NetFetchOptions", nsuint, foreign.MacroNSOptions,
		"NetFetchOptionsCached", 1, "NetFetchOptionsRetry", 2, "NetFetchOptionsGzip", 4)
	client := ctx.DefineClass(m, "NetClient")
	client.Super = ctx.LookupClass("NSObject")
	fetch := foreign.NewMethod("fetch:options:completion:", true, foreign.Void(),
		foreign.NewParam("url", foreign.ObjCPointer(ctx.LookupClass("NSString")).WithNullability(foreign.NullNonNull)),
		foreign.NewParam("options", foreign.TagType(opts)),
		foreign.NewParam("completion", foreign.BlockType(foreign.FunctionType(foreign.Void())).WithNullability(foreign.NullNullable)))
	ctx.AddMember(client, fetch)

	s := NewSession(ctx, nil, nil, DefaultOptions())
	hd := s.ImportDecl(fetch)
	require.NotNil(t, hd)
	require.Len(t, hd.Params, 3)
	assert.Equal(t, "", hd.Params[0].Default)
	assert.Equal(t, "[]", hd.Params[1].Default)
	assert.Equal(t, "nil", hd.Params[2].Default)
	assert.Equal(t, "(@convention(block) () -> ())?", hd.Params[2].Type.String())

	off := DefaultOptions()
	off.InferDefaultArguments = false
	s = NewSession(ctx, nil, nil, off)
	hd = s.ImportDecl(fetch)
	require.NotNil(t, hd)
	assert.Equal(t, "", hd.Params[2].Default)
}
