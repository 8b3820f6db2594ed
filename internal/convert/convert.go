// Package convert runs conversions between registered workout formats:
// format resolution, metadata defaults, output path resolution and the
// optional ledger that skips inputs already converted.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/claude/workoutconv/internal/format"
	"github.com/claude/workoutconv/internal/format/wahoo"
	"github.com/claude/workoutconv/internal/format/zwift"
	"github.com/claude/workoutconv/internal/ledger"
	"github.com/claude/workoutconv/internal/models"
)

var (
	// ErrOverwriteInput is returned when the resolved output path is the input file.
	ErrOverwriteInput = errors.New("output would overwrite input")
	// ErrDuplicateOutput is returned when two inputs of one batch resolve to
	// the same output file.
	ErrDuplicateOutput = errors.New("output already produced by another input")
	// ErrOutputNotDir is returned when a batch is given a file as output.
	ErrOutputNotDir = errors.New("batch output must be a directory")
)

// DefaultRegistry returns the registry of every built-in format.
func DefaultRegistry() *format.Registry {
	r, err := format.NewRegistry(zwift.Format(), wahoo.Format())
	if err != nil {
		panic(err)
	}
	return r
}

// Options controls a Converter.
type Options struct {
	Category    string // applied when the workout has no category
	Subcategory string // applied when the workout has no subcategory

	// Output is a file or an existing directory. A path ending in a separator
	// is treated as a directory and created. Empty means the input's directory.
	Output string

	// FilenameTitle names output files after the workout's full name instead
	// of the input file's stem.
	FilenameTitle bool

	// SkipUnchanged skips inputs the ledger has already converted to the same
	// format, as long as the previous output still exists.
	SkipUnchanged bool

	Concurrency int // parallel conversions in ConvertDir
}

// Result describes one conversion.
type Result struct {
	Input   string
	Output  string
	Source  string // source format id
	Target  string // target format id
	Skipped bool
}

// Stats tracks batch progress.
type Stats struct {
	FilesTotal     int
	FilesConverted int
	FilesSkipped   int
	FilesErrored   int
}

// Converter converts workout files. It is safe for concurrent use.
type Converter struct {
	registry *format.Registry
	ledger   *ledger.Ledger
	opts     Options
	runID    uuid.UUID
	log      *slog.Logger
}

// New creates a Converter. The ledger may be nil.
func New(registry *format.Registry, l *ledger.Ledger, opts Options, log *slog.Logger) *Converter {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Converter{
		registry: registry,
		ledger:   l,
		opts:     opts,
		runID:    uuid.New(),
		log:      log,
	}
}

// RunID identifies the conversions of this Converter in the ledger.
func (c *Converter) RunID() uuid.UUID {
	return c.runID
}

// Registry returns the formats the Converter resolves against.
func (c *Converter) Registry() *format.Registry {
	return c.registry
}

// CanConvert reports whether path has the extension of a readable format.
func (c *Converter) CanConvert(path string) bool {
	f, ok := c.registry.ByExt(filepath.Ext(path))
	return ok && f.CanRead()
}

// Resolve looks up the source format by the input's extension and the target
// format by id. It performs no I/O.
func (c *Converter) Resolve(input, targetID string) (src, dst format.Format, err error) {
	return Resolve(c.registry, input, targetID)
}

// Resolve looks up the source format of input and the target format
// targetID in registry and checks that the first can be read and the second
// written. It performs no I/O.
func Resolve(registry *format.Registry, input, targetID string) (src, dst format.Format, err error) {
	ext := strings.TrimPrefix(filepath.Ext(input), ".")
	src, ok := registry.ByExt(ext)
	if !ok {
		return src, dst, &format.FormatNotFoundError{Role: format.Source, Key: ext}
	}
	dst, ok = registry.ByID(targetID)
	if !ok {
		return src, dst, &format.FormatNotFoundError{Role: format.Target, Key: targetID}
	}
	if !src.CanRead() {
		return src, dst, &format.NotImplementedError{Format: src.ID, Capability: format.Reading}
	}
	if !dst.CanWrite() {
		return src, dst, &format.NotImplementedError{Format: dst.ID, Capability: format.Writing}
	}
	return src, dst, nil
}

// ResolveTarget looks up a writable target format by id. It performs no I/O.
func ResolveTarget(registry *format.Registry, targetID string) (format.Format, error) {
	dst, ok := registry.ByID(targetID)
	if !ok {
		return dst, &format.FormatNotFoundError{Role: format.Target, Key: targetID}
	}
	if !dst.CanWrite() {
		return dst, &format.NotImplementedError{Format: dst.ID, Capability: format.Writing}
	}
	return dst, nil
}

// ConvertFile converts input to the format identified by targetID.
func (c *Converter) ConvertFile(ctx context.Context, input, targetID string) (*Result, error) {
	return c.convert(ctx, input, targetID, nil)
}

// convert runs one conversion. claim, when set, is offered the resolved
// output path before anything is written and may refuse it.
func (c *Converter) convert(ctx context.Context, input, targetID string, claim func(output string) error) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, dst, err := c.Resolve(input, targetID)
	if err != nil {
		return nil, err
	}
	c.log.Debug("converting", "file", input, "from", src.Name, "to", dst.Name)

	wo, err := format.Load(src, input)
	if err != nil {
		return nil, err
	}
	wo.ApplyDefaults(c.opts.Category, c.opts.Subcategory)
	if wo.Name == "" {
		wo.Name = stem(input)
	}

	output, err := c.outputPath(input, wo, dst)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		if err := claim(output); err != nil {
			return nil, err
		}
	}
	res := &Result{Input: input, Output: output, Source: src.ID, Target: dst.ID}

	var hash string
	var size int64
	if c.ledger != nil {
		hash, size, err = ledger.HashFile(input)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", input, err)
		}
		if c.opts.SkipUnchanged {
			skip, err := c.alreadyConverted(ctx, input, hash, dst.ID, output)
			if err != nil {
				return nil, err
			}
			if skip {
				c.log.Debug("unchanged, skipping", "file", input, "output", output)
				res.Skipped = true
				return res, nil
			}
		}
	}

	if err := format.Save(dst, output, wo); err != nil {
		return nil, err
	}

	if c.ledger != nil {
		err := c.ledger.Record(ctx, ledger.Entry{
			RunID:        c.runID,
			InputPath:    absPath(input),
			InputSize:    size,
			InputHash:    hash,
			SourceFormat: src.ID,
			TargetFormat: dst.ID,
			OutputPath:   absPath(output),
		})
		if err != nil {
			// the output is already written; a missing ledger row only costs a reconversion
			c.log.Warn("ledger record failed", "file", input, "error", err)
		}
	}
	return res, nil
}

func (c *Converter) alreadyConverted(ctx context.Context, input, hash, target, output string) (bool, error) {
	e, err := c.ledger.Lookup(ctx, absPath(input), hash, target)
	if err != nil {
		return false, err
	}
	if e == nil || e.OutputPath != absPath(output) {
		return false, nil
	}
	_, err = os.Stat(output)
	return err == nil, nil
}

// outputPath resolves where the converted workout is written.
func (c *Converter) outputPath(input string, wo *models.Workout, dst format.Format) (string, error) {
	out := c.opts.Output
	if out == "" {
		out = filepath.Dir(input)
	}

	dir := strings.HasSuffix(out, string(filepath.Separator)) || strings.HasSuffix(out, "/")
	if dir {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	} else if info, err := os.Stat(out); err == nil && info.IsDir() {
		dir = true
	}
	if dir {
		name := stem(input)
		if c.opts.FilenameTitle {
			name = format.Filename(wo.FullName())
		}
		out = filepath.Join(out, name+"."+dst.Ext)
	}

	if sameFile(input, out) {
		return "", fmt.Errorf("%s: %w", out, ErrOverwriteInput)
	}
	return out, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func sameFile(a, b string) bool {
	if absPath(a) == absPath(b) {
		return true
	}
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
