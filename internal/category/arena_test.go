package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArena_Layout(t *testing.T) {
	a := NewArena(BuildTree(scenario()))

	require.Equal(t, 4, a.Len())
	assert.Equal(t, []int{0}, a.Roots)

	idxB, ok := a.Index("B")
	require.True(t, ok)
	idxC, _ := a.Index("C")
	idxD, _ := a.Index("D")

	assert.Equal(t, -1, a.Nodes[0].Parent)
	assert.Equal(t, []int{idxB, idxD}, a.Nodes[0].Children)
	assert.Equal(t, idxB, a.Nodes[idxC].Parent)
	assert.Equal(t, 2, a.Nodes[idxC].Depth)
}

func TestArena_Visible(t *testing.T) {
	a := NewArena(BuildTree(scenario()))
	name := func(idx []int) []string {
		out := make([]string, 0, len(idx))
		for _, i := range idx {
			out = append(out, a.Nodes[i].Category.ID)
		}
		return out
	}

	assert.Equal(t, []string{"A"}, name(a.Visible(nil)))
	assert.Equal(t, []string{"A", "B", "D"}, name(a.Visible(map[string]bool{"A": true})))
	assert.Equal(t, []string{"A", "B", "C", "D"}, name(a.Visible(map[string]bool{"A": true, "B": true})))
	// B open but A closed hides everything below A.
	assert.Equal(t, []string{"A"}, name(a.Visible(map[string]bool{"B": true})))
}

func TestArena_ExpandTo(t *testing.T) {
	a := NewArena(BuildTree(scenario()))
	in := map[string]bool{"D": true}

	out := a.ExpandTo(in, "C")

	assert.Equal(t, map[string]bool{"A": true, "B": true, "D": true}, out)
	assert.Equal(t, map[string]bool{"D": true}, in, "input set is not mutated")
}
