package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Schewwpid/note2PDF/observability"
	"github.com/Schewwpid/note2PDF/recovery"
)

// ErrNotDirectory is returned by ConvertDir for a path that is not a directory.
var ErrNotDirectory = errors.New("convert: not a directory")

// BatchOptions configures ConvertDir.
type BatchOptions struct {
	// Workers bounds concurrent conversions. Values below 1 mean one.
	Workers int
	// Strategy decides whether a failure stops the batch. Defaults to a
	// lenient strategy that continues.
	Strategy recovery.Strategy
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
	// Results lists processed files in directory order. Files that were not
	// started because the batch stopped are absent.
	Results []Result
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(res Result) {
	switch res.Status {
	case StatusConverted:
		r.Converted++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

// ConvertDir converts the regular files directly inside dir, writing each PDF
// next to its input. Files run independently; a failure affects only its own
// file unless the strategy asks to stop, in which case files not yet started
// are left alone. The returned error is the failure that stopped the batch or
// the context error.
func (c *Converter) ConvertDir(ctx context.Context, dir string, opts BatchOptions) (*BatchResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return c.ConvertFiles(ctx, paths, opts)
}

// ConvertFiles converts each path like ConvertDir does for a directory.
func (c *Converter) ConvertFiles(ctx context.Context, paths []string, opts BatchOptions) (*BatchResult, error) {
	strategy := opts.Strategy
	if strategy == nil {
		strategy = recovery.NewLenientStrategy()
	}
	workers := max(opts.Workers, 1)
	log := c.logger()

	results := make([]Result, len(paths))
	var stopped atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if stopped.Load() || gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			// In-flight files finish even when another file stops the batch.
			res := c.ConvertFile(ctx, path, "")
			results[i] = res
			if res.Status != StatusFailed {
				return nil
			}
			var ce *Error
			loc := recovery.Location{Path: path}
			if errors.As(res.Err, &ce) {
				loc.Stage = string(ce.Stage)
			}
			if strategy.OnError(ctx, res.Err, loc) == recovery.ActionFail {
				stopped.Store(true)
				return res.Err
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	batch := &BatchResult{}
	for _, res := range results {
		if res.Input != "" {
			batch.add(res)
		}
	}
	log.Info("batch complete",
		observability.Int("converted", batch.Converted),
		observability.Int("skipped", batch.Skipped),
		observability.Int("failed", batch.Failed),
	)
	return batch, err
}
