package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ConvertDir converts every readable workout file directly inside dir to the
// format identified by targetID. A failing file is logged and counted and
// does not stop the others; all failures are returned joined.
//
// Options.Output, when set, must name a directory; a missing one is created.
// Two inputs resolving to the same output file fail the later one with
// ErrDuplicateOutput.
func (c *Converter) ConvertDir(ctx context.Context, dir, targetID string) (*Stats, error) {
	if _, err := ResolveTarget(c.registry, targetID); err != nil {
		return &Stats{}, err
	}
	bc, err := c.forBatch()
	if err != nil {
		return &Stats{}, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &Stats{}, fmt.Errorf("reading %s: %w", dir, err)
	}

	var (
		mu    sync.Mutex
		stats Stats
		errs  []error
	)

	var claimMu sync.Mutex
	claimed := make(map[string]string) // output -> input
	claim := func(input string) func(string) error {
		return func(output string) error {
			claimMu.Lock()
			defer claimMu.Unlock()
			key := absPath(output)
			if prev, ok := claimed[key]; ok {
				return fmt.Errorf("%s: %w: %s", output, ErrDuplicateOutput, prev)
			}
			claimed[key] = input
			return nil
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(c.opts.Concurrency)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !c.CanConvert(path) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		mu.Lock()
		stats.FilesTotal++
		mu.Unlock()

		g.Go(func() error {
			res, err := bc.convert(ctx, path, targetID, claim(path))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				c.log.Warn("conversion failed", "file", path, "error", err)
				stats.FilesErrored++
				errs = append(errs, err)
			case res.Skipped:
				stats.FilesSkipped++
			default:
				c.log.Info("converted", "file", path, "output", res.Output)
				stats.FilesConverted++
			}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return &stats, errors.Join(errs...)
}

// forBatch returns a copy of c whose output is a directory.
func (c *Converter) forBatch() (*Converter, error) {
	bc := *c
	out := c.opts.Output
	if out == "" || strings.HasSuffix(out, string(filepath.Separator)) || strings.HasSuffix(out, "/") {
		return &bc, nil
	}
	info, err := os.Stat(out)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		bc.opts.Output = out + string(filepath.Separator)
	case err != nil:
		return nil, fmt.Errorf("checking output %s: %w", out, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%s: %w", out, ErrOutputNotDir)
	}
	return &bc, nil
}
