// gdsdump prints the contents of a GDSII stream file.
//
// Usage:
//
//	gdsdump [flags] FILE
//
// The file may be gzip, zstd or LZ4 compressed. Output goes to stdout
// unless --output is given. The exit status is 1 when the file cannot be
// opened and 2 when one or more structures failed to parse.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tsawler/gdsii"
	"github.com/tsawler/gdsii/export"
	"github.com/tsawler/gdsii/format"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// exitError carries a process exit status
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func run(args []string, stdout, stderr io.Writer) error {
	var (
		cfg        fileConfig
		configPath string
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("gdsdump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.Format, "format", "f", "text", "output format: text, json, jsonl, yaml, cbor, msgpack, csv, tsv")
	flagSet.StringSliceVarP(&cfg.Structures, "structure", "s", nil, "only dump the named structure (repeatable)")
	flagSet.BoolVar(&cfg.Summary, "summary", false, "list structures without their elements")
	flagSet.BoolVar(&cfg.NoVertices, "no-vertices", false, "omit polygon vertices")
	flagSet.BoolVar(&cfg.Pretty, "pretty", false, "indent JSON output")
	flagSet.BoolVar(&cfg.Eager, "eager", false, "parse every structure while opening")
	flagSet.Int64Var(&cfg.MaxSize, "max-size", format.DefaultMaxSize, "largest decompressed size in bytes")
	flagSet.StringVarP(&cfg.Output, "output", "o", "", "write to this file instead of stdout")
	flagSet.StringVar(&configPath, "config", "", "read settings from a JSONC file; flags override it")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log parsing progress")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet, stderr)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, stderr)
		return nil
	}

	if configPath != "" {
		fromFile, err := readConfig(configPath)
		if err != nil {
			return err
		}
		cfg = merge(*fromFile, cfg, flagSet)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		printHelp(flagSet, stderr)
		return fmt.Errorf("expected one input file, got %d", len(rest))
	}

	exportConfig, err := cfg.exportConfig()
	if err != nil {
		return err
	}

	logger := newLogger(verbose, stderr)
	defer logger.Sync() //nolint:errcheck

	return dump(rest[0], cfg, exportConfig, logger, stdout)
}

// merge overlays explicitly set flags on the file settings
func merge(file, flags fileConfig, fs *pflag.FlagSet) fileConfig {
	out := file
	if fs.Changed("format") || out.Format == "" {
		out.Format = flags.Format
	}
	if fs.Changed("structure") {
		out.Structures = flags.Structures
	}
	if fs.Changed("summary") {
		out.Summary = flags.Summary
	}
	if fs.Changed("no-vertices") {
		out.NoVertices = flags.NoVertices
	}
	if fs.Changed("pretty") {
		out.Pretty = flags.Pretty
	}
	if fs.Changed("eager") {
		out.Eager = flags.Eager
	}
	if fs.Changed("max-size") || out.MaxSize == 0 {
		out.MaxSize = flags.MaxSize
	}
	if fs.Changed("output") {
		out.Output = flags.Output
	}
	return out
}

// newLogger writes console-encoded entries to w: Debug and up with
// --verbose, Warn and up otherwise.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zap.WarnLevel
	config := zap.NewProductionEncoderConfig()
	if verbose {
		level = zap.DebugLevel
		config = zap.NewDevelopmentEncoderConfig()
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.AddSync(w), level)
	return zap.New(core)
}

func dump(path string, cfg fileConfig, exportConfig export.Config, logger *zap.Logger, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	opts := []gdsii.Option{gdsii.Logger(logger), gdsii.Compressed(cfg.MaxSize)}
	if cfg.Eager {
		opts = append(opts, gdsii.Eager())
	}
	h, err := gdsii.Open(data, opts...)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("%s: %w", path, err)}
	}
	defer h.Close()
	logger.Debug("library opened",
		zap.String("path", path),
		zap.Stringer("source", h.Source()),
		zap.Int("structures", h.Reader().StructureCount()))
	if ext := format.Detect(path); ext != format.Unknown && ext != h.Source() {
		logger.Warn("file extension does not match content",
			zap.String("path", path),
			zap.Stringer("extension", ext),
			zap.Stringer("content", h.Source()))
	}

	exporter := export.NewExporterWithConfig(exportConfig)
	if cfg.Output != "" {
		err = exporter.ExportToFile(h.Reader(), cfg.Output)
	} else {
		err = exporter.Export(h.Reader(), stdout)
	}
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	if st := h.Reader().Stats(); st.Failed > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%s: %d of %d structures failed to parse", path, st.Failed, st.Structures)}
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `gdsdump prints the contents of a GDSII stream file.

Usage:
  gdsdump [flags] FILE

Flags:
%s`, flagSet.FlagUsages())
}
