package imports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/importer"
)

func TestImportDiagnostic(t *testing.T) {
	ctx := foreign.NewContext()
	ctx.Module("Kit").Imports = []string{"Foundation", "QuartzCore", "CoreGraphics", "QuartzCore", "Shapes"}
	ctx.Module("Shapes").Imports = []string{"Foundation"}

	tests := []struct {
		name    string
		system  []string
		want    int
		missing []string
	}{
		{name: "all reported", want: 1, missing: []string{"CoreGraphics", "QuartzCore"}},
		{name: "system modules ignored", system: []string{"CoreGraphics"}, want: 1, missing: []string{"QuartzCore"}},
		{name: "nothing left", system: []string{"CoreGraphics", "QuartzCore"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.system...)
			insights, err := d.Diagnose(context.Background(), newSession(ctx))
			require.NoError(t, err)
			require.Len(t, insights, tt.want)
			if tt.want == 0 {
				return
			}
			in := insights[0]
			assert.Contains(t, in.Title, "Kit")
			require.Len(t, in.Evidence, len(tt.missing))
			for i, imp := range tt.missing {
				assert.Contains(t, in.Evidence[i].Detail, imp)
				assert.Equal(t, "Kit", in.Evidence[i].Module)
			}
		})
	}
}

func TestImportDiagnostic_Cancelled(t *testing.T) {
	ctx := foreign.NewContext()
	c, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Diagnose(c, newSession(ctx))
	assert.ErrorIs(t, err, context.Canceled)
}

// --- helpers ---

func newSession(ctx *foreign.Context) *importer.Session {
	return importer.NewSession(ctx, nil, nil, importer.DefaultOptions())
}
