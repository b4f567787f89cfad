package frontends

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
)

func TestParseType(t *testing.T) {
	ctx := foreign.NewContext()
	p := NewTypeParser(ctx, ctx.Module("Kit"))

	tests := []struct {
		spelling string
		want     string
	}{
		{"int", "int"},
		{"unsigned long int", "unsigned long"},
		{"long long", "long long"},
		{"signed", "int"},
		{"signed char", "signed char"},
		{"long double", "long double"},
		{"const char *", "const char *"},
		{"char * _Nullable", "char * _Nullable"},
		{"NSString *", "NSString *"},
		{"nullable NSString *", "NSString * _Nullable"},
		{"NSString * _Nonnull", "NSString * _Nonnull"},
		{"NSError * _Nullable * _Nullable", "NSError * _Nullable * _Nullable"},
		{"id", "id"},
		{"id<NSCopying>", "id<NSCopying>"},
		{"NSArray<NSString *> *", "NSArray<NSString *> *"},
		{"instancetype", "instancetype"},
		{"SEL", "SEL"},
		{"Class", "Class"},
		{"NSInteger", "NSInteger"},
		{"void", "void"},
		{"void (^)(BOOL)", "void (^)(BOOL)"},
		{"int (*)(int, ...)", "int (*)(int, ...) *"},
		{"struct _NSZone *", "struct _NSZone *"},
	}
	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			got, err := p.Parse(tt.spelling)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDecl(t *testing.T) {
	ctx := foreign.NewContext()
	p := NewTypeParser(ctx, ctx.Module("Kit"))

	typ, name, err := p.ParseDecl("char name[16]")
	require.NoError(t, err)
	assert.Equal(t, "name", name)
	assert.Equal(t, foreign.TypeConstantArray, typ.Kind)
	assert.Equal(t, 16, typ.Size)

	typ, name, err = p.ParseDecl("int grid[2][3]")
	require.NoError(t, err)
	assert.Equal(t, "grid", name)
	require.Equal(t, foreign.TypeConstantArray, typ.Kind)
	assert.Equal(t, 2, typ.Size)
	assert.Equal(t, 3, typ.Pointee.Size)

	typ, name, err = p.ParseDecl("void (^ _Nullable completion)(NSError * _Nullable error)")
	require.NoError(t, err)
	assert.Equal(t, "completion", name)
	assert.Equal(t, foreign.TypeBlock, typ.Kind)
	assert.Equal(t, foreign.NullNullable, typ.Nullability)
	require.Len(t, typ.Pointee.Params, 1)
	assert.True(t, typ.Pointee.Params[0].IsClass("NSError"))

	typ, _, err = p.ParseDecl("size_t length")
	require.NoError(t, err)
	assert.Equal(t, foreign.TypeTypedef, typ.Kind)
	assert.Same(t, ctx.LookupTypedef("size_t"), typ.Decl)
	assert.True(t, ctx.HasModule(SystemModule))
}

func TestParseTypeAssumeNonnull(t *testing.T) {
	ctx := foreign.NewContext()
	p := NewTypeParser(ctx, ctx.Module("Kit"))
	p.AssumeNonnull = true

	tests := []struct {
		spelling string
		want     foreign.Nullability
	}{
		{"NSString *", foreign.NullNonNull},
		{"nullable NSString *", foreign.NullNullable},
		{"id", foreign.NullNonNull},
		{"NSError **", foreign.NullUnspecified},
		{"NSInteger", foreign.NullUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			got, err := p.Parse(tt.spelling)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Nullability)
		})
	}
}

func TestParseTypeForwardClasses(t *testing.T) {
	ctx := foreign.NewContext()
	m := ctx.Module("Kit")
	p := NewTypeParser(ctx, m)

	typ, err := p.Parse("KTWidget *")
	require.NoError(t, err)
	cls := ctx.LookupClass("KTWidget")
	require.NotNil(t, cls)
	assert.True(t, cls.Forward)
	assert.Same(t, cls, typ.Decl)

	_, err = p.Parse("KTUnknown")
	assert.Error(t, err)

	p.Classes["KTLater"] = true
	_, err = p.Parse("KTLater")
	assert.Error(t, err, "object types need a pointer")
}

func TestApplyAttributes(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, a foreign.Attrs, conv string)
	}{
		{
			name: "swift name",
			text: `void KTDraw(void) NS_SWIFT_NAME(draw());`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				assert.Equal(t, "draw()", a.SwiftName)
			},
		},
		{
			name: "api availability",
			text: `API_AVAILABLE(macos(10.15), ios(13.0)) API_UNAVAILABLE(tvos)`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				require.Len(t, a.Availability, 3)
				assert.Equal(t, foreign.Availability{Platform: "macos", Introduced: "10.15"}, a.Availability[0])
				assert.Equal(t, "13.0", a.Availability[1].Introduced)
				assert.True(t, a.Availability[2].Unavailable)
			},
		},
		{
			name: "api deprecated",
			text: `API_DEPRECATED("use draw", macos(10.0, 10.12))`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				require.Len(t, a.Availability, 1)
				av := a.Availability[0]
				assert.Equal(t, "10.0", av.Introduced)
				assert.Equal(t, "10.12", av.Deprecated)
				assert.Equal(t, "use draw", av.Message)
			},
		},
		{
			name: "legacy availability",
			text: `NS_AVAILABLE(10_10, NA)`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				require.Len(t, a.Availability, 2)
				assert.Equal(t, "10.10", a.Availability[0].Introduced)
				assert.True(t, a.Availability[1].Unavailable)
			},
		},
		{
			name: "gnu attributes",
			text: `__attribute__((availability(macos,introduced=10.9,obsoleted=11.0,message="gone"), cf_returns_retained, nonnull(1, 3)))`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				require.Len(t, a.Availability, 1)
				assert.Equal(t, "11.0", a.Availability[0].Obsoleted)
				assert.Equal(t, "gone", a.Availability[0].Message)
				assert.True(t, a.ReturnsRetained)
				assert.Equal(t, []int{0, 2}, a.NonNullParams)
			},
		},
		{
			name: "enum attributes",
			text: `__attribute__((flag_enum, enum_extensibility(open)))`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				assert.True(t, a.FlagEnum)
				assert.Equal(t, foreign.ExtensibilityOpen, a.Extensibility)
			},
		},
		{
			name: "unavailable and designated",
			text: `NS_DESIGNATED_INITIALIZER NS_SWIFT_UNAVAILABLE("not here")`,
			check: func(t *testing.T, a foreign.Attrs, _ string) {
				assert.True(t, a.DesignatedInit)
				assert.True(t, a.Unavailable)
				assert.Equal(t, "not here", a.UnavailableMsg)
			},
		},
		{
			name: "calling convention",
			text: `__attribute__((stdcall))`,
			check: func(t *testing.T, _ foreign.Attrs, conv string) {
				assert.Equal(t, "stdcall", conv)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a foreign.Attrs
			conv := ApplyAttributes(&a, tt.text)
			tt.check(t, a, conv)
		})
	}
}

func TestScanMacros(t *testing.T) {
	text := `typedef NS_ENUM(NSInteger, KTMode) { KTModeA } NS_SWIFT_NAME(Mode);`
	macros := ScanMacros(text)
	require.Len(t, macros, 1, "declaration macros are not attributes")
	assert.Equal(t, "NS_SWIFT_NAME", macros[0].Name)
	assert.Equal(t, "Mode", macros[0].Args)
	assert.Equal(t, "NS_SWIFT_NAME(Mode)", text[macros[0].Start:macros[0].End])
}

func TestSplitTopLevel(t *testing.T) {
	assert.Equal(t, []string{"a", " f(b, c)", ` "x,y"`}, SplitTopLevel(`a, f(b, c), "x,y"`))
	assert.Nil(t, SplitTopLevel(""))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(stubFrontend{name: "c", ext: ".h"})
	r.Register(stubFrontend{name: "modulemap", ext: ".modulemap"})

	assert.NotNil(t, r.Get("c"))
	assert.Nil(t, r.Get("swift"))
	assert.Len(t, r.All(), 2)
	got := r.ForFile("Kit/KTView.h")
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Name())
}

// --- helpers ---

type stubFrontend struct {
	name string
	ext  string
}

func (s stubFrontend) Name() string { return s.name }

func (s stubFrontend) Detect(file string) bool {
	return len(file) >= len(s.ext) && file[len(file)-len(s.ext):] == s.ext
}

func (s stubFrontend) Parse(context.Context, *Unit) error { return nil }
