// Package io provides the output channels the CPU writes register values to.
// A Tape formats values as text on a writer, and a Temporary keeps them in a
// bounded in-memory queue.
package io

// Channel is the destination of the CPU output instruction.
type Channel interface {
	// Rewind resets the channel to its initial state.
	Rewind()
	// Send writes a single register value to the channel.
	Send(value uint8) error
}
