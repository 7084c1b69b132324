package topos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"att", "single"}, Names())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		topo      string
		wantNodes int
		wantErr   error
	}{
		{name: "Geant", topo: "att", wantNodes: 56},
		{name: "Single", topo: "single", wantNodes: 3},
		{name: "Unknown", topo: "nope", wantErr: ErrUnknownTopology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := New(tt.topo)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, topo.Nodes(), tt.wantNodes)
			assert.NoError(t, topo.Validate())
		})
	}
}

func TestLookupReturnsFreshInstances(t *testing.T) {
	f, ok := Lookup("att")
	require.True(t, ok)

	a, b := f(), f()
	assert.NotSame(t, a, b)
	assert.True(t, a.Equal(b))

	a.AddHost("extra")
	assert.False(t, a.Equal(b))
}
