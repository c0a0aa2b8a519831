package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/minerva/internal/catalog"
	"github.com/m3rciful/minerva/internal/session"
)

func TestBuildTable(t *testing.T) {
	reg, err := catalog.Default()
	require.NoError(t, err)

	table, err := BuildTable(reg)
	require.NoError(t, err)

	start, ok := table.Node(session.StateStart)
	require.True(t, ok)
	assert.Equal(t, reg.StartMenu(), start.Help)
	assert.Len(t, start.Options, len(catalog.Keys))
	assert.Equal(t, session.State(catalog.KeyCajero), start.Options["4"])

	for _, k := range catalog.Keys {
		n, ok := table.Node(session.State(k))
		require.True(t, ok, "node for %s", k)
		assert.Equal(t, session.State(k), n.Fallback)
		assert.Equal(t, session.StateStart, n.Options["sí"])
		assert.Equal(t, session.StateStart, n.Options["si"])
		assert.Equal(t, session.StateEnd, n.Options["no"])
	}

	end, ok := table.Node(session.StateEnd)
	require.True(t, ok)
	assert.Equal(t, session.StateStart, end.Fallback)
}

func TestTableValidate(t *testing.T) {
	reg, err := catalog.Default()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(nodes map[session.State]Node)
	}{
		{"missing end", func(nodes map[session.State]Node) {
			delete(nodes, session.StateEnd)
		}},
		{"missing topic node", func(nodes map[session.State]Node) {
			delete(nodes, session.State(catalog.KeyGeneral))
		}},
		{"stray node", func(nodes map[session.State]Node) {
			nodes["fontaneria"] = Node{State: "fontaneria", Fallback: session.StateStart}
		}},
		{"no fallback", func(nodes map[session.State]Node) {
			n := nodes[session.State(catalog.KeyCajero)]
			n.Fallback = ""
			nodes[n.State] = n
		}},
		{"dangling option", func(nodes map[session.State]Node) {
			n := nodes[session.StateStart]
			n.Options["6"] = "fontaneria"
		}},
		{"empty option", func(nodes map[session.State]Node) {
			n := nodes[session.StateStart]
			n.Options[""] = session.StateStart
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := BuildTable(reg)
			require.NoError(t, err)
			tt.mutate(table.nodes)
			assert.Error(t, table.Validate(reg))
		})
	}
}
