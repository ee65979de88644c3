package io

import (
	"iter"
	"slices"
)

// Temporary implements a FIFO queue of output values with a fixed capacity.
// A Capacity of zero or less is unbounded.
type Temporary struct {
	Capacity int // Capacity in values.

	Data []uint8
}

var _ Channel = (*Temporary)(nil)

// Rewind empties the queue.
func (temp *Temporary) Rewind() {
	temp.Data = temp.Data[:0]
}

// Receive returns an iterator that drains values from the queue until empty.
func (temp *Temporary) Receive() iter.Seq[uint8] {
	return func(yield func(value uint8) bool) {
		for len(temp.Data) > 0 {
			value := temp.Data[0]
			temp.Data = temp.Data[1:]
			if !yield(value) {
				return
			}
		}
	}
}

// Values returns a copy of the queued values, leaving the queue intact.
func (temp *Temporary) Values() []uint8 {
	return slices.Clone(temp.Data)
}

// Send appends a value to the queue.
// Returns ErrChannelFull if the queue has reached capacity.
func (temp *Temporary) Send(value uint8) (err error) {
	if temp.Capacity > 0 && len(temp.Data) >= temp.Capacity {
		err = ErrChannelFull
		return
	}

	temp.Data = append(temp.Data, value)

	return
}
