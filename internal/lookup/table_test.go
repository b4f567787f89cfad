package lookup

import (
	"testing"

	"github.com/biyu6/swift/internal/foreign"
)

func TestTableAddAndLookup(t *testing.T) {
	tab := NewTable("UIKit")
	view := &foreign.Decl{Kind: foreign.KindClass, Name: "UIView"}
	layout := &foreign.Decl{Kind: foreign.KindMethod, Name: "layoutSubviews"}
	frame := &foreign.Decl{Kind: foreign.KindProperty, Name: "frame"}

	if !tab.Add(Entry{Name: "UIView", Decl: view}) {
		t.Fatal("first Add should report a new entry")
	}
	if tab.Add(Entry{Name: "UIView", Decl: view}) {
		t.Error("duplicate Add should be a no-op")
	}
	tab.Add(Entry{Name: "layoutSubviews", Context: "UIView", Decl: layout})
	tab.Add(Entry{Name: "frame", Context: "UIView", Decl: frame})

	if got := tab.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if got := tab.Lookup("UIView", ""); len(got) != 1 || got[0].Decl != view {
		t.Errorf("Lookup(UIView) = %v", got)
	}
	if got := tab.Lookup("frame", ""); len(got) != 0 {
		t.Errorf("members must not be found at top level, got %v", got)
	}
	if got := tab.Members("UIView"); len(got) != 2 {
		t.Errorf("Members(UIView) = %d entries, want 2", len(got))
	}
	if got := tab.ObjCMembers("frame"); len(got) != 1 {
		t.Errorf("ObjCMembers(frame) = %d entries, want 1", len(got))
	}
	if got := tab.AllObjCMembers(); len(got) != 2 {
		t.Errorf("AllObjCMembers() = %d entries, want 2", len(got))
	}
	if got := tab.TopLevel(); len(got) != 1 {
		t.Errorf("TopLevel() = %d entries, want 1", len(got))
	}

	names := tab.Names()
	want := []string{"UIView", "frame", "layoutSubviews"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	tab.Clear()
	if tab.Count() != 0 || len(tab.Lookup("UIView", "")) != 0 {
		t.Error("Clear should drop every entry")
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	a := s.Table("Foundation")
	if s.Table("Foundation") != a {
		t.Error("Table should return the existing table")
	}
	b := s.Bridging()
	if b.Module() != BridgingModule {
		t.Errorf("Bridging().Module() = %q", b.Module())
	}
	if s.Get("Missing") != nil {
		t.Error("Get should not create tables")
	}

	tests := []struct {
		idx  int
		want string
	}{
		{0, "Foundation"},
		{1, BridgingModule},
	}
	all := s.All()
	if len(all) != len(tests) {
		t.Fatalf("All() = %d tables, want %d", len(all), len(tests))
	}
	for _, tt := range tests {
		if got := all[tt.idx].Module(); got != tt.want {
			t.Errorf("All()[%d] = %q, want %q", tt.idx, got, tt.want)
		}
	}
}
