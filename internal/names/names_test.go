package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		numArgs int
		pieces  []string
		null    bool
	}{
		{"description", 0, []string{"description"}, false},
		{"initWithFrame:", 1, []string{"initWithFrame"}, false},
		{"initWithFrame:style:", 2, []string{"initWithFrame", "style"}, false},
		{"foo::", 2, []string{"foo", ""}, false},
		{"foo:bar", 0, nil, true},
		{"", 0, nil, true},
		{"9lives", 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sel := ParseSelector(tt.in)
			if tt.null {
				assert.True(t, sel.IsNull())
				return
			}
			assert.Equal(t, tt.numArgs, sel.NumArgs())
			assert.Equal(t, tt.pieces, sel.Pieces())
			assert.Equal(t, tt.in, sel.String())
		})
	}
}

func TestImportSelector(t *testing.T) {
	tests := []struct {
		sel  string
		want string
	}{
		{"description", "description"},
		{"initWithFrame:", "initWithFrame(_:)"},
		{"initWithFrame:style:", "initWithFrame(_:style:)"},
		{"setObject:forKey:", "setObject(_:forKey:)"},
		{"foo::", "foo(_:_:)"},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got := ImportSelector(ParseSelector(tt.sel))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSelectorRoundTrip(t *testing.T) {
	for _, s := range []string{"description", "initWithFrame:", "initWithFrame:style:", "foo::", "a:b:c:d:"} {
		sel := ParseSelector(s)
		back, ok := ExportSelector(ImportSelector(sel), true)
		require.True(t, ok, s)
		assert.True(t, back.Equal(sel), "%s round-tripped to %s", s, back)
	}

	for _, n := range []DeclName{
		SimpleName("count"),
		CompoundName("insert", "", "at"),
		CompoundName("foo", ""),
		CompoundName("foo", "", ""),
	} {
		sel, ok := ExportSelector(n, true)
		require.True(t, ok, n.String())
		assert.True(t, ImportSelector(sel).Equal(n), "%s round-tripped to %s", n, ImportSelector(sel))
	}
}

func TestExportSelector(t *testing.T) {
	sel, ok := ExportSelector(SimpleName("reload"), false)
	require.True(t, ok)
	assert.Equal(t, 0, sel.NumArgs())
	assert.Equal(t, "reload", sel.String())

	_, ok = ExportSelector(CompoundName("init", "frame"), true)
	assert.False(t, ok, "a labeled first argument has no selector form")

	_, ok = ExportSelector(DeclName{}, true)
	assert.False(t, ok)
}

func TestParseDeclName(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want DeclName
	}{
		{"frame", true, SimpleName("frame")},
		{"init(frame:)", true, CompoundName("init", "frame")},
		{"insert(_:at:)", true, CompoundName("insert", "", "at")},
		{"reset()", true, DeclName{Base: "reset", Labels: []string{}}},
		{"UIView.init(frame:)", false, DeclName{}},
		{"init(frame)", false, DeclName{}},
		{"", false, DeclName{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDeclName(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %s", got)
			}
		})
	}
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a := in.Intern("frame")
	b := in.Intern("frame")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, in.Len())

	n := in.InternName(CompoundName("init", "", "frame"))
	assert.Equal(t, "init(_:frame:)", n.String())
	assert.Equal(t, 2, in.Len(), "empty labels are not interned")
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"initWithFrame", []string{"init", "With", "Frame"}},
		{"URLString", []string{"URL", "String"}},
		{"kCFStringEncodingUTF8", []string{"k", "CF", "String", "Encoding", "UTF8"}},
		{"NS_ENUM_VALUE", []string{"NS", "ENUM", "VALUE"}},
		{"x", []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitWords(tt.in))
		})
	}
}

func TestCommonWordPrefix(t *testing.T) {
	assert.Equal(t, "UIViewAnimationCurve", CommonWordPrefix("UIViewAnimationCurveEaseIn", "UIViewAnimationCurveLinear"))
	assert.Equal(t, "NSFoo", CommonWordPrefix("NSFooBar", "NSFooBaz"))
	assert.Equal(t, "FOO_BAR_", CommonWordPrefix("FOO_BAR_A", "FOO_BAR_B"))
	assert.Equal(t, "", CommonWordPrefix("Alpha", "Beta"))
}

func TestWordHelpers(t *testing.T) {
	assert.Equal(t, "urlString", LowerFirstWord("URLString"))
	assert.Equal(t, "frame", LowerFirstWord("Frame"))
	assert.Equal(t, "easeIn", LowerFirstWord("EaseIn"))
	assert.Equal(t, "Frame", UpperFirst("frame"))
	assert.Equal(t, "String", StripTypePrefix("NSString"))
	assert.Equal(t, "Color", StripTypePrefix("UIColor"))
	assert.Equal(t, "NSURL", StripTypePrefix("NSURL"))
	assert.True(t, HasWordPrefix("initWithFrame", "init"))
	assert.False(t, HasWordPrefix("initialize", "init"))
	assert.True(t, IsReservedName("default"))
	assert.False(t, IsReservedName("frame"))
}

func TestOmitNeedlessWords(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		params     []OmissionParam
		wantBase   string
		wantLabels []string
		changed    bool
	}{
		{
			name:       "base restates first argument type",
			base:       "appendString",
			params:     []OmissionParam{{TypeName: "String"}},
			wantBase:   "append",
			wantLabels: []string{""},
			changed:    true,
		},
		{
			name:       "trailing preposition moves into first label",
			base:       "moveToPoint",
			params:     []OmissionParam{{TypeName: "Point"}},
			wantBase:   "move",
			wantLabels: []string{"to"},
			changed:    true,
		},
		{
			name:       "index label against integer type",
			base:       "insertObject",
			params:     []OmissionParam{{TypeName: "Object"}, {Label: "atIndex", TypeName: "Int"}},
			wantBase:   "insert",
			wantLabels: []string{"", "at"},
			changed:    true,
		},
		{
			name:       "never trims to nothing",
			base:       "string",
			params:     []OmissionParam{{TypeName: "String"}, {Label: "options", TypeName: "Options"}},
			wantBase:   "string",
			wantLabels: []string{"", "options"},
			changed:    false,
		},
		{
			name:       "collision keeps the original label",
			base:       "compare",
			params:     []OmissionParam{{TypeName: "String"}, {Label: "withString", TypeName: "String"}, {Label: "with"}},
			wantBase:   "compare",
			wantLabels: []string{"", "withString", "with"},
			changed:    false,
		},
		{
			name:       "no arguments",
			base:       "reload",
			wantBase:   "reload",
			wantLabels: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OmitNeedlessWords(tt.base, tt.params)
			assert.Equal(t, tt.wantBase, got.Base)
			assert.Equal(t, tt.wantLabels, got.Labels)
			assert.Equal(t, tt.changed, got.Changed)
		})
	}
}
