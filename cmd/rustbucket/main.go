package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/JamalLyons/Rustbucket/config"
	"github.com/JamalLyons/Rustbucket/cpu"
	"github.com/JamalLyons/Rustbucket/emulator"
	rbio "github.com/JamalLyons/Rustbucket/io"
	"github.com/JamalLyons/Rustbucket/logs"
)

func main() {
	var compile string
	var binary string
	var data string
	var conf string
	var save bool
	var output string
	var limit int
	var tail int
	var trace string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&binary, "b", "", "binary image to run")
	flag.StringVar(&data, "d", "", "static data file placed after the program")
	flag.StringVar(&conf, "config", "", ".cue machine configuration")
	flag.BoolVar(&save, "s", false, "Save compiled binary to output, do not execute")
	flag.StringVar(&output, "o", "-", "Binary output")
	flag.IntVar(&limit, "limit", emulator.TICK_LIMIT, "Maximum instructions to execute, 0 for none")
	flag.IntVar(&tail, "tail", 0, "Only print the last N output values")
	flag.StringVar(&trace, "trace", "", "Additional log file")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	writers := []io.Writer{os.Stderr}
	if len(trace) != 0 {
		ouf, err := os.Create(trace)
		if err != nil {
			fatal(slog.Default(), trace, err)
		}
		defer ouf.Close()
		writers = append(writers, ouf)
	}
	logger := logs.New(logs.Options{Level: level, Writers: writers, Journal: true})

	if flag.NArg() != 0 {
		logger.Error("unknown arguments", "args", flag.Args())
		os.Exit(2)
	}

	if err := checkSources(compile, binary, data); err != nil {
		logger.Error("arguments", "error", err)
		os.Exit(2)
	}

	var paths []string
	if len(conf) != 0 {
		paths = append(paths, conf)
	}
	machine, err := config.Load(paths...)
	if err != nil {
		fatal(logger, conf, err)
	}

	emu := emulator.NewEmulator(machine)
	emu.Verbose = verbose
	emu.Logger = logger
	emu.Limit = limit

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			fatal(logger, compile, err)
		}
		defer inf.Close()

		asm := emu.Assembler()
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			fatal(logger, compile, err)
		}
	}

	if len(data) != 0 {
		emu.Data, err = os.ReadFile(data)
		if err != nil {
			fatal(logger, data, err)
		}
	}

	image := emu.Image()
	if len(binary) != 0 {
		raw, err := os.ReadFile(binary)
		if err != nil {
			fatal(logger, binary, err)
		}
		emu.Program = &cpu.Program{}
		emu.Data = raw
		image = raw
	}

	if save {
		var w io.Writer = os.Stdout
		if output != "-" {
			ouf, err := os.Create(output)
			if err != nil {
				fatal(logger, output, err)
			}
			defer ouf.Close()
			w = ouf
		}
		_, err = w.Write(image)
		if err != nil {
			fatal(logger, output, err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var ring *rbio.Ring
	if tail > 0 {
		ring = &rbio.Ring{Capacity: tail}
		emu.Output = ring
	}

	err = emu.Reset()
	if err != nil {
		fatal(logger, "reset", err)
	}

	err = emu.Run(ctx)
	if ring != nil {
		for value := range ring.Values() {
			emu.Tape.Send(value)
		}
		if ring.Dropped != 0 {
			logger.Info("output truncated", "dropped", ring.Dropped)
		}
	}
	if err != nil {
		if verbose {
			logger.Debug("cpu state", "dump", emu.Cpu.String())
		}
		fatal(logger, "run", err)
	}

	logger.Debug("halted", "ticks", emu.Cpu.Ticks)
}

var errSources = errors.New("-b replaces the image, it cannot be combined with -c or -d")

// checkSources rejects a raw binary given alongside a program or its data.
func checkSources(compile, binary, data string) (err error) {
	if len(binary) != 0 && (len(compile) != 0 || len(data) != 0) {
		err = errSources
	}
	return
}

func fatal(logger *slog.Logger, what string, err error) {
	logger.Error(what, "error", err)
	os.Exit(1)
}
