// SPDX-License-Identifier: MIT

package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "   ", want: []string{}},
		{in: "linux", want: []string{"linux"}},
		{in: "linux docker", want: []string{"linux", "docker"}},
		{in: "linux,docker ,\tarm64", want: []string{"linux", "docker", "arm64"}},
	}
	for _, tt := range tests {
		got := ParseLabels(tt.in)
		if len(tt.want) == 0 {
			assert.Empty(t, got, "input %q", tt.in)
			continue
		}
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	s := NewStatic(
		Node{Name: "master", Executors: 2, Online: true},
		Node{Name: "agent-1", Labels: []string{"linux"}, Executors: 4, Online: true},
	)

	nodes, err := s.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.True(t, nodes[1].HasLabel("linux"))
	assert.False(t, nodes[0].HasLabel("linux"))

	nodes[1].Labels[0] = "mutated"
	again, err := s.Nodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "linux", again[1].Labels[0])

	s.Set(nil)
	again, err = s.Nodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStaticHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStatic().Nodes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNodeString(t *testing.T) {
	assert.Equal(t, "agent-1 (4 executors, offline)", Node{Name: "agent-1", Executors: 4}.String())
}
