package carousel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigator_EmptyListIsInactive(t *testing.T) {
	n := New(0)

	n.Next()
	n.Prev()

	_, active := n.Position()
	assert.False(t, active)
	assert.False(t, n.Active())
}

func TestNavigator_SingleItemStaysAtZero(t *testing.T) {
	n := New(1)

	n.Next()
	pos, _ := n.Position()
	assert.Equal(t, 0, pos)

	n.Prev()
	pos, _ = n.Position()
	assert.Equal(t, 0, pos)
}

func TestNavigator_WrapsBothWays(t *testing.T) {
	n := New(3)

	n.Prev()
	pos, active := n.Position()
	assert.True(t, active)
	assert.Equal(t, 2, pos)

	n.Next()
	pos, _ = n.Position()
	assert.Equal(t, 0, pos)
}

func TestNavigator_NextPrevIsIdentity(t *testing.T) {
	for length := 2; length <= 7; length++ {
		for start := 0; start < length; start++ {
			n := New(length)
			for i := 0; i < start; i++ {
				n.Next()
			}

			n.Next()
			n.Prev()
			pos, _ := n.Position()
			assert.Equal(t, start, pos, "next/prev length=%d start=%d", length, start)

			n.Prev()
			n.Next()
			pos, _ = n.Position()
			assert.Equal(t, start, pos, "prev/next length=%d start=%d", length, start)
		}
	}
}

func TestNavigator_NextVisitsEveryItem(t *testing.T) {
	n := New(4)
	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		pos, _ := n.Position()
		seen[pos] = true
		n.Next()
	}

	assert.Len(t, seen, 4)
	pos, _ := n.Position()
	assert.Equal(t, 0, pos)
}

func TestNavigator_ResetReturnsToFirst(t *testing.T) {
	n := New(5)
	n.Next()
	n.Next()

	n.Reset(2)

	pos, active := n.Position()
	assert.True(t, active)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 2, n.Length())
}
