package io

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Send(t *testing.T) {
	assert := assert.New(t)

	ring := &Ring{Capacity: 3}
	ring.Rewind()

	for _, value := range []uint8{1, 2} {
		assert.NoError(ring.Send(value))
	}
	assert.Equal([]uint8{1, 2}, slices.Collect(ring.Values()))
	assert.Equal(0, ring.Dropped)

	for _, value := range []uint8{3, 4, 5} {
		assert.NoError(ring.Send(value))
	}
	assert.Equal([]uint8{3, 4, 5}, slices.Collect(ring.Values()))
	assert.Equal(3, ring.Len())
	assert.Equal(2, ring.Dropped)

	assert.NoError(ring.Send(6))
	assert.Equal([]uint8{4, 5, 6}, slices.Collect(ring.Values()))
}

func TestRing_Default(t *testing.T) {
	assert := assert.New(t)

	ring := &Ring{}
	assert.NoError(ring.Send(1))
	assert.Equal(RING_DEFAULT_CAPACITY, ring.Capacity)
	assert.Equal([]uint8{1}, slices.Collect(ring.Values()))
}

func TestRing_Rewind(t *testing.T) {
	assert := assert.New(t)

	ring := &Ring{Capacity: 2}
	for n := range 5 {
		ring.Send(uint8(n))
	}
	assert.Equal(3, ring.Dropped)

	ring.Rewind()
	assert.Equal(0, ring.Len())
	assert.Equal(0, ring.Dropped)
	assert.Empty(slices.Collect(ring.Values()))

	ring.Send(9)
	assert.Equal([]uint8{9}, slices.Collect(ring.Values()))
}
