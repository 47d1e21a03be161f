// avrocat prints the datums of an Avro object container file, or of a file
// of raw datums written with a known schema.
//
//	avrocat orders.avro
//	avrocat --format yaml --limit 10 orders.avro
//	avrocat --info orders.avro
//	avrocat --raw --schema order.avsc datums.bin
//	avrocat -i orders.avro
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/wippyai/avro-derive/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "avrocat: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type flagValues struct {
	format      string
	schemaPath  string
	configPath  string
	limit       int
	workers     int
	pretty      bool
	raw         bool
	info        bool
	interactive bool
	verbose     bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var fv flagValues

	flags := pflag.NewFlagSet("avrocat", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&fv.format, "format", "f", formatJSON, "output format: json, yaml or cbor")
	flags.StringVarP(&fv.schemaPath, "schema", "s", "", "schema file for --raw input")
	flags.StringVarP(&fv.configPath, "config", "c", "", "YAML or TOML file with default settings")
	flags.IntVarP(&fv.limit, "limit", "n", 0, "stop after this many datums (0 for all)")
	flags.IntVarP(&fv.workers, "workers", "w", 0, "goroutines decoding blocks (0 for one per CPU)")
	flags.BoolVarP(&fv.pretty, "pretty", "p", false, "indent JSON, or print CBOR diagnostic notation")
	flags.BoolVar(&fv.raw, "raw", false, "input holds raw datums instead of a container file")
	flags.BoolVar(&fv.info, "info", false, "print file and schema information instead of datums")
	flags.BoolVarP(&fv.interactive, "interactive", "i", false, "browse datums in a terminal UI")
	flags.BoolVarP(&fv.verbose, "verbose", "v", false, "log progress to stderr")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: avrocat [flags] FILE")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &cli.UsageError{Msg: err.Error()}
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return &cli.UsageError{Msg: "expected exactly one FILE"}
	}
	if fv.raw && fv.schemaPath == "" {
		return &cli.UsageError{Msg: "--raw needs --schema"}
	}

	cfg, err := resolveConfig(flags, fv)
	if err != nil {
		return &cli.UsageError{Msg: err.Error()}
	}
	maxBlock, err := cfg.maxBlockBytes()
	if err != nil {
		return &cli.UsageError{Msg: err.Error()}
	}

	if fv.interactive && !isTerminal(stdout) {
		return &cli.UsageError{Msg: "--interactive needs a terminal"}
	}

	logger := cli.NewLogger(stderr, fv.verbose)
	defer logger.Sync() //nolint:errcheck

	opts := loadOptions{
		logger:    logger,
		maxBlock:  maxBlock,
		limit:     cfg.Limit,
		workers:   cfg.Workers,
		countOnly: fv.info,
	}
	if opts.workers == 0 {
		opts.workers = defaultWorkers()
	}

	path := flags.Arg(0)
	var src *source
	if fv.raw {
		src, err = loadRaw(path, fv.schemaPath, opts)
	} else {
		src, err = loadContainer(ctx, path, opts)
	}
	if err != nil {
		return err
	}

	switch {
	case fv.info:
		return writeInfo(stdout, src)
	case fv.interactive:
		return runInteractive(src)
	default:
		return writeAll(stdout, src.records, cfg.Format, cfg.Pretty)
	}
}

// resolveConfig layers explicitly set flags over the config file over the
// defaults.
func resolveConfig(flags *pflag.FlagSet, fv flagValues) (config, error) {
	cfg := defaultConfig()
	if fv.configPath != "" {
		var err error
		if cfg, err = loadConfig(fv.configPath, cfg); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("format") {
		cfg.Format = fv.format
	}
	if flags.Changed("limit") {
		cfg.Limit = fv.limit
	}
	if flags.Changed("workers") {
		cfg.Workers = fv.workers
	}
	if flags.Changed("pretty") {
		cfg.Pretty = fv.pretty
	}
	return cfg, cfg.validate()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
