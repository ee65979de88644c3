package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSources(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		compile, binary, data string
		err                   error
	}{
		{"", "", "", nil},
		{"prog.asm", "", "", nil},
		{"prog.asm", "", "data.bin", nil},
		{"", "image.bin", "", nil},
		{"prog.asm", "image.bin", "", errSources},
		{"", "image.bin", "data.bin", errSources},
		{"prog.asm", "image.bin", "data.bin", errSources},
	}

	for _, entry := range table {
		err := checkSources(entry.compile, entry.binary, entry.data)
		assert.Equal(entry.err, err, "%v", entry)
	}
}
