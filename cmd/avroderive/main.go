// avroderive generates Avro record decoders for struct types marked with a
// //avro:derive comment. It is meant to be run by go generate:
//
//	//go:generate go run github.com/wippyai/avro-derive/cmd/avroderive
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/avro-derive/internal/cli"
	"github.com/wippyai/avro-derive/internal/gen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "avroderive: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts := gen.DefaultOptions()
	var (
		dryRun  bool
		verbose bool
	)

	flags := pflag.NewFlagSet("avroderive", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.Dir, "dir", "d", opts.Dir, "package directory to scan")
	flags.StringSliceVarP(&opts.Types, "type", "t", nil, "generate only these types (repeatable)")
	flags.StringVar(&opts.Suffix, "suffix", opts.Suffix, "suffix of generated files")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "print generated code instead of writing files")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log progress")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: avroderive [flags]")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &cli.UsageError{Msg: err.Error()}
	}
	if flags.NArg() > 0 {
		return &cli.UsageError{Msg: "unexpected argument: " + flags.Arg(0)}
	}

	logger := cli.NewLogger(stderr, verbose)
	defer logger.Sync() //nolint:errcheck
	opts.Logger = logger

	if dryRun {
		files, err := gen.Generate(opts)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(stdout, "// %s\n%s\n", f.Path, f.Content)
		}
		return nil
	}

	files, err := gen.Write(opts)
	if err != nil {
		return err
	}
	for _, f := range files {
		logger.Info("wrote decoders", zap.String("file", f.Path), zap.Strings("types", f.Types))
	}
	return nil
}
