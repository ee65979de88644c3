package io

import (
	"errors"

	"github.com/JamalLyons/Rustbucket/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrChannelFull   = errors.New(f("channel full"))
	ErrChannelClosed = errors.New(f("channel closed"))
	ErrChannelWrite  = errors.New(f("channel write"))
)
