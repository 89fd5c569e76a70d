package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	md2wechat "github.com/alnah/go-md2wechat"
	"go.uber.org/zap"
)

// ErrConverterInit marks files skipped because no converter could be built.
var ErrConverterInit = errors.New("failed to initialize converter")

// Exporter is the slice of the converter the CLI drives.
type Exporter interface {
	Render(ctx context.Context, input md2wechat.Input) (*md2wechat.Document, error)
	ExportHTML(ctx context.Context, doc *md2wechat.Document) (*md2wechat.ExportResult, error)
}

// Compile-time interface implementation check.
var _ Exporter = (*md2wechat.Converter)(nil)

// Pool abstracts converter pool operations for testability.
type Pool interface {
	Acquire() (Exporter, error)
	Release(Exporter)
	Size() int
}

// poolAdapter exposes *md2wechat.ConverterPool as a Pool.
type poolAdapter struct {
	pool *md2wechat.ConverterPool
}

// Compile-time check that poolAdapter implements Pool.
var _ Pool = (*poolAdapter)(nil)

func (a *poolAdapter) Acquire() (Exporter, error) {
	c, err := a.pool.Acquire()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Release panics on an Exporter the pool did not hand out (programmer error).
func (a *poolAdapter) Release(e Exporter) {
	c, ok := e.(*md2wechat.Converter)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", e))
	}
	a.pool.Release(c)
}

func (a *poolAdapter) Size() int { return a.pool.Size() }

// ExportFileResult holds the outcome of a single export.
type ExportFileResult struct {
	InputPath  string
	OutputPath string
	Images     int
	Err        error
	Duration   time.Duration
}

// exportBatch processes files concurrently using the converter pool.
// Results keep the order of files.
func exportBatch(ctx context.Context, pool Pool, files []FileToExport, params *renderParams, logger *zap.Logger) []ExportFileResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(files))

	results := make([]ExportFileResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			exp, err := pool.Acquire()
			if err != nil {
				// Drain so the other workers still finish the batch.
				for idx := range jobs {
					results[idx] = ExportFileResult{
						InputPath: files[idx].InputPath,
						Err:       fmt.Errorf("%w: %w", ErrConverterInit, err),
					}
				}
				return
			}
			defer pool.Release(exp)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ExportFileResult{
						InputPath: files[idx].InputPath,
						Err:       ctx.Err(),
					}
					continue
				}
				results[idx] = exportFile(ctx, exp, files[idx], params)
				logger.Debug("exported",
					zap.String("input", files[idx].InputPath),
					zap.Duration("duration", results[idx].Duration),
					zap.Error(results[idx].Err))
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// exportFile renders and exports a single file to its output path.
func exportFile(ctx context.Context, exp Exporter, f FileToExport, params *renderParams) (result ExportFileResult) {
	start := time.Now()
	result = ExportFileResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}
	defer func() { result.Duration = time.Since(start) }()

	input, err := readInput(f.InputPath, params)
	if err != nil {
		result.Err = err
		return result
	}

	doc, err := exp.Render(ctx, input)
	if err != nil {
		result.Err = err
		return result
	}

	res, err := exp.ExportHTML(ctx, doc)
	if err != nil {
		result.Err = err
		return result
	}
	if res == nil {
		result.Err = fmt.Errorf("%s: nothing to export", f.InputPath)
		return result
	}

	if err := writeOutput(f.OutputPath, []byte(res.HTML)); err != nil {
		result.Err = err
		return result
	}
	result.Images = res.Images
	return result
}

// ResultSummary holds the count of succeeded and failed exports.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed exports.
func countResults(results []ExportFileResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs export results and returns the tally.
func printResults(results []ExportFileResult, quiet, verbose bool, env *Environment) ResultSummary {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d images, %v)\n", r.InputPath, r.OutputPath, r.Images, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary
}

// firstError returns the first failed result's error.
func firstError(results []ExportFileResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
