package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookups(t *testing.T) {
	snap := &Snapshot{
		Modules:   []ModuleSummary{{Name: "Kit"}, {Name: "Shapes"}},
		Artifacts: []Artifact{{Name: "Kit.interface", Content: []byte("// Module: Kit\n")}},
	}

	kit := snap.Module("Kit")
	if assert.NotNil(t, kit) {
		kit.Imported = 3
		assert.Equal(t, 3, snap.Modules[0].Imported, "Module returns a pointer into the slice")
	}
	assert.Nil(t, snap.Module("Missing"))

	assert.NotNil(t, snap.Artifact("Kit.interface"))
	assert.Nil(t, snap.Artifact("Shapes.interface"))
}

func TestHashes(t *testing.T) {
	meta := Meta{FileHashes: []FileHash{
		{Path: "Kit/KTKit.h", Module: "Kit", Hash: "aa"},
		{Path: "Shapes/Shapes.h", Module: "Shapes", Hash: "bb"},
	}}
	assert.Equal(t, map[string]string{"Kit/KTKit.h": "aa", "Shapes/Shapes.h": "bb"}, meta.Hashes())
	assert.Empty(t, (&Meta{}).Hashes())
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
