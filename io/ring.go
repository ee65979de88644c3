package io

import (
	"iter"
)

// RING_DEFAULT_CAPACITY is the default capacity in values for a new ring.
const RING_DEFAULT_CAPACITY = 16

// Ring keeps the most recent Capacity values sent to it. Older values are
// overwritten and counted in Dropped.
type Ring struct {
	Capacity int

	Dropped    int
	WriteIndex int
	Data       []uint8
}

var _ Channel = (*Ring)(nil)

// Rewind empties the ring, allocating its storage if needed.
func (ring *Ring) Rewind() {
	if ring.Capacity <= 0 {
		ring.Capacity = RING_DEFAULT_CAPACITY
	}
	if cap(ring.Data) < ring.Capacity {
		ring.Data = make([]uint8, 0, ring.Capacity)
	}

	ring.Data = ring.Data[:0]
	ring.WriteIndex = 0
	ring.Dropped = 0
}

// Send records a value, overwriting the oldest value when full.
func (ring *Ring) Send(value uint8) (err error) {
	if ring.Capacity <= 0 || ring.Data == nil {
		ring.Rewind()
	}

	if len(ring.Data) < ring.Capacity {
		ring.Data = append(ring.Data, value)
	} else {
		ring.Data[ring.WriteIndex] = value
		ring.Dropped++
	}
	ring.WriteIndex = (ring.WriteIndex + 1) % ring.Capacity

	return
}

// Len is the number of values held.
func (ring *Ring) Len() int {
	return len(ring.Data)
}

// Values returns the held values, oldest first.
func (ring *Ring) Values() iter.Seq[uint8] {
	return func(yield func(uint8) bool) {
		start := 0
		if len(ring.Data) == ring.Capacity {
			start = ring.WriteIndex
		}
		for n := range len(ring.Data) {
			if !yield(ring.Data[(start+n)%len(ring.Data)]) {
				return
			}
		}
	}
}
