// Command wasm-tracer compiles WebAssembly modules to flat bytecode and
// executes them with tracing enabled.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/zkvmlabs/wasm-tracer/compiler"
	"github.com/zkvmlabs/wasm-tracer/engine"
	"github.com/zkvmlabs/wasm-tracer/hostcall"
)

func main() {
	app := &cli.App{
		Name:  "wasm-tracer",
		Usage: "compile wasm to flat bytecode and record execution traces",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				compiler.SetLogger(logger)
				engine.SetLogger(logger)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "trace",
				Usage:     "run a module's main export and print the trace JSON",
				ArgsUsage: "<module.wasm>",
				Action:    runTrace,
			},
			{
				Name:      "compile",
				Usage:     "lower a module to flat bytecode",
				ArgsUsage: "<module.wasm>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "out.bin"},
					&cli.BoolFlag{Name: "no-entrypoint", Usage: "translate without requiring a main export"},
				},
				Action: runCompile,
			},
			{
				Name:      "dump",
				Usage:     "disassemble flat bytecode",
				ArgsUsage: "<module.bin>",
				Action:    runDump,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "wasm-tracer:", err)
		os.Exit(1)
	}
}

func readInput(ctx *cli.Context) ([]byte, error) {
	if ctx.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one input file")
	}
	return os.ReadFile(ctx.Args().First())
}

func runTrace(ctx *cli.Context) error {
	wasmBinary, err := readInput(ctx)
	if err != nil {
		return err
	}
	e, err := engine.NewFromWasm(wasmBinary)
	if err != nil {
		return err
	}
	if err := hostcall.NewEVM().BindAll(e.Linker()); err != nil {
		return err
	}
	trace, err := e.ComputeTrace()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(trace, '\n'))
	return err
}

func runCompile(ctx *cli.Context) error {
	wasmBinary, err := readInput(ctx)
	if err != nil {
		return err
	}
	c, err := compiler.New(wasmBinary)
	if err != nil {
		return err
	}
	if ctx.Bool("no-entrypoint") {
		err = c.TranslateWithoutEntrypoint()
	} else {
		err = c.Translate()
	}
	if err != nil {
		return err
	}
	flat, err := c.Finalize()
	if err != nil {
		return err
	}
	return os.WriteFile(ctx.String("output"), flat, 0o644)
}

func runDump(ctx *cli.Context) error {
	flat, err := readInput(ctx)
	if err != nil {
		return err
	}
	module, err := compiler.Load(flat)
	if err != nil {
		return err
	}
	fmt.Print(module.Disassemble())
	return nil
}
