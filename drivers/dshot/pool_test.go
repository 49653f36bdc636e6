package dshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolReserveLowestFirst(t *testing.T) {
	p := NewPool(4)
	idx, ok := p.Reserve(2)
	assert.True(t, ok)
	assert.Equal(t, [2]uint8{0, 1}, idx)

	idx, ok = p.Reserve(1)
	assert.True(t, ok)
	assert.Equal(t, uint8(2), idx[0])

	p.Release(0)
	idx, ok = p.Reserve(2)
	assert.True(t, ok)
	assert.Equal(t, [2]uint8{0, 3}, idx)
	assert.Zero(t, p.Free())
}

func TestPoolReserveAllOrNothing(t *testing.T) {
	p := NewPool(3)
	_, ok := p.Reserve(2)
	assert.True(t, ok)
	before := p

	_, ok = p.Reserve(2)
	assert.False(t, ok)
	assert.Equal(t, before, p)
	assert.Equal(t, 1, p.Free())

	_, ok = p.Reserve(3)
	assert.False(t, ok)
	_, ok = p.Reserve(0)
	assert.False(t, ok)
}

func TestPoolBounds(t *testing.T) {
	assert.Equal(t, MaxChannels, NewPool(64).Capacity())
	assert.Zero(t, NewPool(-1).Capacity())

	p := NewPool(2)
	p.Release(7) // never reserved
	p.Release(200)
	assert.Equal(t, 2, p.Free())
	assert.False(t, p.InUse(200))
}
