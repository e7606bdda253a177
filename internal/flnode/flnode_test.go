package flnode

import "testing"
import "unsafe"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func chainOf(n int) (unsafe.Pointer, []unsafe.Pointer) {
	nodes := make([]unsafe.Pointer, n)
	backing := make([][8]byte, n)
	for i := range nodes {
		nodes[i] = unsafe.Pointer(&backing[i])
	}
	for i := 0; i < n-1; i++ {
		Link(nodes[i], nodes[i+1])
	}
	if n > 0 {
		Link(nodes[n-1], nil)
	}
	if n == 0 {
		return nil, nodes
	}
	return nodes[0], nodes
}

func TestLinkAndNext(t *testing.T) {
	head, nodes := chainOf(3)
	require.Equal(t, nodes[0], head)
	assert.Equal(t, nodes[1], Next(head))
	assert.Equal(t, nodes[2], Next(Next(head)))
	assert.Nil(t, Next(nodes[2]))
}

func TestCount(t *testing.T) {
	head, _ := chainOf(5)
	assert.Equal(t, int64(5), Count(head))
	assert.Equal(t, int64(0), Count(nil))
}

func TestWalkStopsAtMax(t *testing.T) {
	head, nodes := chainOf(10)
	last, n := Walk(head, 4)
	assert.Equal(t, 4, n)
	assert.Equal(t, nodes[3], last)
}

func TestWalkStopsAtNilBeforeMax(t *testing.T) {
	head, nodes := chainOf(3)
	last, n := Walk(head, 10)
	assert.Equal(t, 3, n)
	assert.Equal(t, nodes[2], last)
}

func TestTail(t *testing.T) {
	head, nodes := chainOf(4)
	assert.Equal(t, nodes[3], Tail(head))
}
