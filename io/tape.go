package io

import (
	"errors"
	"fmt"
	"io"
)

// Tape writes each value as a decimal line to Output.
type Tape struct {
	Output io.Writer

	Written int // Values written since the last rewind.
}

var _ Channel = (*Tape)(nil)

// Rewind is not possible on a tape, only the counter is cleared.
func (tc *Tape) Rewind() {
	tc.Written = 0
}

// Send writes the value followed by a newline.
func (tc *Tape) Send(value uint8) (err error) {
	if tc.Output == nil {
		err = ErrChannelClosed
		return
	}

	_, err = fmt.Fprintf(tc.Output, "%d\n", value)
	if err != nil {
		err = errors.Join(ErrChannelWrite, err)
		return
	}

	tc.Written++

	return
}
