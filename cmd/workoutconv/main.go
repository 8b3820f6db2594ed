package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/claude/workoutconv/internal/config"
	"github.com/claude/workoutconv/internal/convert"
	"github.com/claude/workoutconv/internal/format"
	"github.com/claude/workoutconv/internal/ledger"
	"github.com/claude/workoutconv/internal/watch"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Exit codes.
const (
	exitOK             = 0
	exitFailure        = 1
	exitUnknownSource  = 2
	exitUnknownTarget  = 3
	exitNotImplemented = 4
	exitParse          = 5
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var notFound *format.FormatNotFoundError
	var parseErr *format.ParseError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &notFound):
		if notFound.Role == format.Source {
			return exitUnknownSource
		}
		return exitUnknownTarget
	case errors.Is(err, format.ErrNotImplemented):
		return exitNotImplemented
	case errors.As(err, &parseErr):
		return exitParse
	default:
		return exitFailure
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	var log *slog.Logger

	return &cli.App{
		Name:      "workoutconv",
		HelpName:  "workoutconv",
		Usage:     "convert structured workout files between formats",
		UsageText: "workoutconv [options] <input file or directory>",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output directory or file where the converted workout is saved",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "target format (use -F for available formats)",
			},
			&cli.BoolFlag{
				Name:    "formats",
				Aliases: []string{"F"},
				Usage:   "list available formats and exit",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "category for workouts that have none",
			},
			&cli.StringFlag{
				Name:  "subcategory",
				Usage: "subcategory for workouts that have none",
			},
			&cli.BoolFlag{
				Name:  "filename_title",
				Usage: "name output files after the workout title",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file",
				EnvVars: []string{"WORKOUTCONV_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "skip-unchanged",
				Usage: "skip inputs already converted to the same format",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "keep converting files as they appear in the input directory",
			},
			&cli.IntFlag{
				Name:  "history",
				Usage: "show the last `N` recorded conversions and exit",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "parallel conversions for directory input",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			log = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
			return config.LoadDotEnv(".env")
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			if log == nil {
				fmt.Fprintln(c.App.ErrWriter, "workoutconv:", err)
				return
			}
			log.Error("workoutconv failed", "error", err)
		},
		Action: func(c *cli.Context) error {
			return run(c, log)
		},
	}
}

func run(c *cli.Context, log *slog.Logger) error {
	registry := convert.DefaultRegistry()
	if c.Bool("formats") {
		listFormats(c.App.Writer, registry)
		return nil
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)

	if c.IsSet("history") {
		return history(c, cfg)
	}

	input := c.Args().First()
	if input == "" {
		return errors.New("input file is required")
	}
	target := cfg.Output.Format
	if target == "" {
		return errors.New("target format (-f, --format) is required")
	}

	info, statErr := os.Stat(input)
	isDir := statErr == nil && info.IsDir()
	if isDir {
		_, err = convert.ResolveTarget(registry, target)
	} else {
		_, _, err = convert.Resolve(registry, input, target)
	}
	if err != nil {
		return err
	}

	l := openLedger(cfg, log)
	if l != nil {
		defer l.Close()
	}

	conv := convert.New(registry, l, convert.Options{
		Category:      cfg.Defaults.Category,
		Subcategory:   cfg.Defaults.Subcategory,
		Output:        cfg.Output.Dir,
		FilenameTitle: cfg.Defaults.FilenameTitle,
		SkipUnchanged: c.Bool("skip-unchanged"),
		Concurrency:   cfg.Batch.Concurrency,
	}, log)

	if isDir {
		return convertDir(c, conv, log, input, target)
	}
	if c.Bool("watch") {
		return fmt.Errorf("--watch needs a directory, got %s", input)
	}

	res, err := conv.ConvertFile(c.Context, input, target)
	if err != nil {
		return err
	}
	if res.Skipped {
		log.Info("unchanged, skipped", "file", input, "output", res.Output)
		return nil
	}
	log.Info("converted", "file", input, "from", res.Source, "to", res.Target, "output", res.Output)
	return nil
}

// openLedger opens the conversion ledger. A ledger that cannot be opened
// only costs the skip-unchanged bookkeeping, so it is reported and dropped.
func openLedger(cfg *config.Config, log *slog.Logger) *ledger.Ledger {
	if !cfg.Ledger.Enabled {
		return nil
	}
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		log.Warn("ledger unavailable", "path", cfg.Ledger.Path, "error", err)
		return nil
	}
	return l
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("category") {
		cfg.Defaults.Category = c.String("category")
	}
	if c.IsSet("subcategory") {
		cfg.Defaults.Subcategory = c.String("subcategory")
	}
	if c.IsSet("filename_title") {
		cfg.Defaults.FilenameTitle = c.Bool("filename_title")
	}
	if c.IsSet("output") {
		cfg.Output.Dir = c.String("output")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("concurrency") {
		cfg.Batch.Concurrency = c.Int("concurrency")
	}
}

func convertDir(c *cli.Context, conv *convert.Converter, log *slog.Logger, dir, target string) error {
	stats, err := conv.ConvertDir(c.Context, dir, target)
	printStats(c.App.Writer, stats)
	if !c.Bool("watch") {
		return err
	}
	if err != nil {
		log.Warn("initial conversion had failures", "error", err)
	}
	return watch.New(conv, target, log).Run(c.Context, dir)
}

func listFormats(w io.Writer, registry *format.Registry) {
	fmt.Fprintln(w, "Available formats:")
	for _, f := range registry.Formats() {
		var caps []string
		if f.CanRead() {
			caps = append(caps, "read")
		}
		if f.CanWrite() {
			caps = append(caps, "write")
		}
		fmt.Fprintf(w, "  %s: %s (.%s) %v\n", f.ID, f.Name, f.Ext, caps)
	}
}

func history(c *cli.Context, cfg *config.Config) error {
	if !cfg.Ledger.Enabled {
		return errors.New("the conversion ledger is disabled")
	}
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.Recent(c.Context, c.Int("history"))
	if err != nil {
		return err
	}
	w := c.App.Writer
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s -> %s  %s -> %s\n",
			e.ConvertedAt.Local().Format("2006-01-02 15:04:05"),
			e.SourceFormat, e.TargetFormat, e.InputPath, e.OutputPath)
	}
	return nil
}

func printStats(w io.Writer, stats *convert.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Conversion Summary ===")
	fmt.Fprintf(w, "  Files total:      %d\n", stats.FilesTotal)
	fmt.Fprintf(w, "  Files converted:  %d\n", stats.FilesConverted)
	fmt.Fprintf(w, "  Files skipped:    %d (unchanged)\n", stats.FilesSkipped)
	fmt.Fprintf(w, "  Files errored:    %d\n", stats.FilesErrored)
	fmt.Fprintln(w)
}
