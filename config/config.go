// Package config loads machine configurations from CUE files.
//
// Files are unified, in order, with a closed schema that supplies the
// defaults of cpu.DefaultConfig and the permitted range of every field:
//
//	registers:           8
//	memory_size:         256
//	stack_capacity:      16
//	call_stack_capacity: 16
//	entry_point:         0
package config

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/JamalLyons/Rustbucket/cpu"
)

// Schema constrains a configuration file.
var Schema = fmt.Sprintf(`close({
	registers:           int & >=%d & <=%d | *%d
	memory_size:         int & >=1 & <=%d | *%d
	stack_capacity:      int & >=1 | *%d
	call_stack_capacity: int & >=1 | *%d
	entry_point:         int & >=0 | *%d
})`,
	cpu.REGISTERS_MIN, cpu.REGISTERS_MAX, cpu.DefaultConfig().Registers,
	cpu.MEMORY_SIZE_MAX, cpu.DefaultConfig().MemorySize,
	cpu.DefaultConfig().StackCapacity,
	cpu.DefaultConfig().CallStackCapacity,
	cpu.DefaultConfig().EntryPoint,
)

// Source is a named configuration text.
type Source struct {
	Name string
	Data []byte
}

// Load reads and merges configuration files. With no files, the default
// configuration is returned.
func Load(paths ...string) (config cpu.Config, err error) {
	var sources []Source
	for _, path := range paths {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return
		}
		sources = append(sources, Source{Name: path, Data: data})
	}

	config, err = Decode(sources...)
	return
}

// Parse decodes a single configuration text.
func Parse(name string, text string) (config cpu.Config, err error) {
	return Decode(Source{Name: name, Data: []byte(text)})
}

// Decode unifies the sources with the schema, and decodes the result.
func Decode(sources ...Source) (config cpu.Config, err error) {
	ctx := cuecontext.New()

	value := ctx.CompileString(Schema, cue.Filename("schema"))
	if err = value.Err(); err != nil {
		return
	}

	for _, source := range sources {
		file := ctx.CompileBytes(source.Data, cue.Filename(source.Name))
		if err = file.Err(); err != nil {
			err = errors.Join(cpu.ErrConfig, err)
			return
		}
		value = value.Unify(file)
	}

	if err = value.Validate(); err != nil {
		err = errors.Join(cpu.ErrConfig, err)
		return
	}

	if err = value.Decode(&config); err != nil {
		err = errors.Join(cpu.ErrConfig, err)
		return
	}

	err = config.Validate()
	return
}
